package cli

import (
	"fmt"

	"github.com/hbjs97/flakenv/internal/nix"
	"github.com/hbjs97/flakenv/internal/state"
	"github.com/hbjs97/flakenv/internal/versiongate"
	"github.com/spf13/cobra"
)

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보를 표시한다",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "flakenv %s\n", Version)
			fmt.Fprintf(out, "  profile format: %d\n", versiongate.FormatVersion)
			fmt.Fprintf(out, "  session format: %d\n", state.FormatVersion)
			fmt.Fprintf(out, "  requires nix >= %s\n", nix.RequiredVersion)
			return nil
		},
	}
}
