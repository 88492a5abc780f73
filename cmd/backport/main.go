package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"backport.dev/backport/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCmd(version, commit, date))
	stop()
	os.Exit(code)
}
