package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/hbjs97/flakenv/internal/config"
	"github.com/hbjs97/flakenv/internal/doctor"
	"github.com/spf13/cobra"
)

func (a *App) newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "환경 설정을 진단한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDoctor(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *App) runDoctor(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load(a.CfgPath)
	if err != nil {
		fmt.Fprintf(out, "  [FAIL] config: %v\n", err)
		fmt.Fprintln(out, "      Fix: flakenv setup 실행 또는 설정 파일 확인")
		cfg = config.Default()
	}

	workDir, err := a.getwd()
	if err != nil {
		workDir = "."
	}
	printDiagResults(out, doctor.RunAll(ctx, a.Commander, a.CfgPath, cfg, workDir))
	return nil
}

// printDiagResults는 진단 결과 목록을 출력한다.
func printDiagResults(out io.Writer, results []doctor.DiagResult) {
	for _, r := range results {
		icon := statusIcon(r.Status)
		fmt.Fprintf(out, "  [%s] %s: %s\n", icon, r.Name, r.Message)
		if r.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", r.Fix)
		}
	}
}

func statusIcon(s doctor.Status) string {
	switch s {
	case doctor.StatusOK:
		return "OK"
	case doctor.StatusWarn:
		return "!!"
	case doctor.StatusFail:
		return "FAIL"
	default:
		return "??"
	}
}
