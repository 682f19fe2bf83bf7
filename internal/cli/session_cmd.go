package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *App) newSessionIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "session-id",
		Short:  "새 세션 id를 출력한다 (hook 내부용)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), uuid.NewString())
			return nil
		},
	}
}

func (a *App) newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "셸 세션 기록을 관리한다",
	}
	cmd.AddCommand(a.newSessionEndCmd(), a.newSessionPruneCmd())
	return cmd
}

func (a *App) newSessionEndCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "세션 기록을 삭제한다 (셸 종료 시 hook이 호출)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.states.Clear(a.sessionID(session)); err != nil {
				return fmt.Errorf("cli.session.end: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "세션 id. 기본값은 $FLAKENV_SESSION")
	return cmd
}

func (a *App) newSessionPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "session_ttl_days 동안 갱신되지 않은 세션 기록을 삭제한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSessionPrune(cmd.OutOrStdout())
		},
	}
}

func (a *App) runSessionPrune(out io.Writer) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.states.Prune(svc.cfg.SessionTTL())
	if err != nil {
		return fmt.Errorf("cli.session.prune: %w", err)
	}
	fmt.Fprintf(out, "세션 기록 %d개를 삭제했습니다.\n", n)
	return nil
}
