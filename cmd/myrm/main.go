// Package main provides the entry point for the myrm CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/myrm/pkg/myrm/errs"
	"github.com/jamesainslie/myrm/pkg/myrm/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	_ = logging.Close()

	if err != nil {
		printError(os.Stderr, "%v", err)
		os.Exit(errs.ExitCode(err))
	}
}
