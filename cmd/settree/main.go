// Package main is the entry point for the settree command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/settree/cmd/settree/commands"
	"github.com/rs/zerolog/log"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := commands.Execute(ctx, version, commit, date); err != nil {
		log.Error().Err(err).Msg("command failed")
		return 1
	}
	return 0
}
