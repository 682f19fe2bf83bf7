package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hbjs97/flakenv/internal/cmdexec"
	"github.com/hbjs97/flakenv/internal/shell"
	"github.com/spf13/cobra"
)

func (a *App) newHookCmd() *cobra.Command {
	var shellType string

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "셸 rc 파일에 넣을 hook 스니펫을 출력한다",
		Example: `  eval "$(flakenv hook --shell zsh)"
  flakenv hook --shell fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snippet := shell.HookSnippet(shellType)
			if snippet == "" {
				return fmt.Errorf("cli.hook: %w: %q", ErrUnsupportedShell, shellType)
			}
			fmt.Fprint(cmd.OutOrStdout(), snippet)
			return nil
		},
	}
	cmd.Flags().StringVar(&shellType, "shell", "zsh", "셸 유형 ("+strings.Join(shell.Supported, ", ")+")")
	return cmd
}

type exportOptions struct {
	shell   string
	session string
	flake   string
}

func (a *App) newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "현재 디렉토리의 환경으로 전환하는 셸 구문을 출력한다",
		Long: `현재 디렉토리에서 flake를 찾아 세션 환경을 전환하는 export/unset 구문을 stdout에 출력한다.
flake가 없으면 이전에 불러온 환경을 되돌린다. 빌드가 실패하면 아무것도 출력하지 않는다.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.runExport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
			if errors.Is(err, ErrBuildFailed) {
				cmd.SilenceErrors = true
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.shell, "shell", "", "출력 형식 (zsh, bash, fish, json). 기본값은 설정의 shell")
	cmd.Flags().StringVar(&opts.session, "session", "", "세션 id. 기본값은 $FLAKENV_SESSION")
	cmd.Flags().StringVar(&opts.flake, "flake", "", "디렉토리 탐색 대신 사용할 flake 참조")
	return cmd
}

func (a *App) runExport(ctx context.Context, out, errOut io.Writer, opts exportOptions) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	dialect := opts.shell
	if dialect == "" {
		dialect = svc.cfg.Shell
	}
	renderer, err := shell.ForShell(dialect)
	if err != nil {
		return fmt.Errorf("cli.export: %w", err)
	}

	ref, err := a.currentFlake(opts.flake)
	if err != nil {
		return err
	}

	ops, err := svc.loader.Resolve(ctx, a.sessionID(opts.session), ref)
	if err != nil {
		if errors.Is(err, ErrBuildFailed) {
			reportBuildFailure(errOut, ref.String(), err)
		}
		return err
	}
	fmt.Fprint(out, renderer.Render(ops))
	return nil
}

// reportBuildFailure는 nix가 남긴 진단 메시지를 그대로 stderr에 전달한다.
func reportBuildFailure(w io.Writer, ref string, err error) {
	fmt.Fprintf(w, "flakenv: %s 환경 빌드 실패\n", ref)
	var exitErr *cmdexec.ExitError
	if errors.As(err, &exitErr) && strings.TrimSpace(exitErr.Stderr) != "" {
		fmt.Fprintln(w, strings.TrimRight(exitErr.Stderr, "\n"))
		return
	}
	fmt.Fprintf(w, "flakenv: %v\n", err)
}

func (a *App) newDumpCmd() *cobra.Command {
	var flake string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "현재 flake의 환경을 JSON으로 출력한다 (세션은 바뀌지 않는다)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDump(cmd.Context(), cmd.OutOrStdout(), flake)
		},
	}
	cmd.Flags().StringVar(&flake, "flake", "", "디렉토리 탐색 대신 사용할 flake 참조")
	return cmd
}

func (a *App) runDump(ctx context.Context, out io.Writer, flake string) error {
	ref, err := a.requireFlake(flake)
	if err != nil {
		return err
	}
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	env, err := svc.loader.Peek(ctx, ref)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("cli.dump: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
