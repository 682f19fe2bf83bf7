package cli

import (
	"github.com/hbjs97/flakenv/internal/setup"
	"github.com/spf13/cobra"
)

func (a *App) newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "flakenv 설정을 대화형으로 작성하고 셸 hook을 설치한다",
		RunE: func(cmd *cobra.Command, args []string) error {
			forms := a.Forms
			if forms == nil {
				forms = &setup.HuhFormRunner{}
			}
			workDir, _ := a.getwd()
			r := &setup.Runner{
				CfgPath:    a.CfgPath,
				Commander:  a.Commander,
				FormRunner: forms,
				Out:        cmd.OutOrStdout(),
				WorkDir:    workDir,
			}
			return r.Run(cmd.Context())
		},
	}
}
