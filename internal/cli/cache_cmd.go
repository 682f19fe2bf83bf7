package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *App) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "빌드된 프로필 캐시를 관리한다",
	}
	cmd.AddCommand(a.newCacheListCmd(), a.newCacheClearCmd())
	return cmd
}

func (a *App) newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "캐시된 프로필 목록을 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCacheList(cmd.OutOrStdout())
		},
	}
}

func (a *App) runCacheList(out io.Writer) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.profiles.Entries()
	if err != nil {
		return fmt.Errorf("cli.cache.list: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "캐시된 프로필이 없습니다.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVARS\tBUILDER\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Key.Short(), e.Env.Len(), e.Builder, e.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *App) newCacheClearCmd() *cobra.Command {
	var all bool
	var flake string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "현재 flake의 캐시 항목(또는 --all로 전체)을 삭제한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCacheClear(cmd.OutOrStdout(), all, flake)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "모든 캐시 항목 삭제")
	cmd.Flags().StringVar(&flake, "flake", "", "디렉토리 탐색 대신 사용할 flake 참조")
	return cmd
}

func (a *App) runCacheClear(out io.Writer, all bool, flake string) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	if all {
		n, err := svc.profiles.Clear()
		if err != nil {
			return fmt.Errorf("cli.cache.clear: %w", err)
		}
		fmt.Fprintf(out, "캐시 항목 %d개를 삭제했습니다.\n", n)
		return nil
	}

	ref, err := a.requireFlake(flake)
	if err != nil {
		return err
	}
	key, _, err := svc.loader.Inspect(ref)
	if err != nil {
		return err
	}
	if err := svc.profiles.Remove(key); err != nil {
		return fmt.Errorf("cli.cache.clear: %w", err)
	}
	fmt.Fprintf(out, "%s 캐시 항목(%s)을 삭제했습니다.\n", ref, key.Short())
	return nil
}
