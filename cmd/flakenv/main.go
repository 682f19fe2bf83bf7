package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbjs97/flakenv/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := &cli.App{}
	err := app.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(int(cli.MapExitCode(err)))
	}
}
