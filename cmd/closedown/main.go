package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/closedown/internal/cli/command"
	"github.com/aussiebroadwan/closedown/pkg/closedown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.App().RunContext(ctx, os.Args); err != nil {
		if cdErr, ok := closedown.AsError(err); ok {
			fmt.Fprintf(os.Stderr, "error: [%d] %s\n", cdErr.Code, cdErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
