package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func (a *App) newStatusCmd() *cobra.Command {
	var session, flake string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "세션에 불러온 환경과 현재 flake의 캐시 상태를 표시한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatus(cmd.OutOrStdout(), session, flake)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "세션 id. 기본값은 $FLAKENV_SESSION")
	cmd.Flags().StringVar(&flake, "flake", "", "디렉토리 탐색 대신 사용할 flake 참조")
	return cmd
}

func (a *App) runStatus(out io.Writer, session, flake string) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	id := a.sessionID(session)
	fmt.Fprintf(out, "세션: %s\n", id)

	ref, err := a.currentFlake(flake)
	if err != nil {
		return err
	}
	if ref == nil {
		fmt.Fprintln(out, "flake: 없음")
	} else {
		fmt.Fprintf(out, "flake: %s\n", ref)
		key, status, err := svc.loader.Inspect(*ref)
		if err != nil {
			fmt.Fprintf(out, "  캐시: 확인 실패 (%v)\n", err)
		} else {
			fmt.Fprintf(out, "  키:   %s\n", key.Short())
			fmt.Fprintf(out, "  캐시: %s (%s)\n", status.Kind, status.Reason)
		}
	}

	st, err := svc.states.Load(id)
	if err != nil {
		return fmt.Errorf("cli.status: %w", err)
	}
	if st == nil {
		fmt.Fprintln(out, "불러온 환경 없음")
		return nil
	}

	fmt.Fprintf(out, "불러온 환경: %s\n", st.Context.Ref)
	fmt.Fprintf(out, "  키:     %s\n", st.Context.Key.Short())
	fmt.Fprintf(out, "  갱신:   %s\n", st.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "  변수:   %d개\n", st.Snapshot.Len())
	for _, name := range st.Snapshot.Keys() {
		value, _ := st.Snapshot.Get(name)
		fmt.Fprintf(out, "    %s=%s\n", name, MaskValue(name, value))
	}
	if st.Restore.Len() > 0 {
		fmt.Fprintf(out, "  복원 대기: %d개\n", st.Restore.Len())
		for _, name := range st.Restore.Keys() {
			value, _ := st.Restore.Get(name)
			fmt.Fprintf(out, "    %s=%s\n", name, MaskValue(name, value))
		}
	}
	return nil
}
