// Package main is the entry point for the taskmgr CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskmgr/internal/backend/rest"
	"taskmgr/internal/cli"
	"taskmgr/internal/commands"
	"taskmgr/internal/config"
	"taskmgr/internal/service"
	"taskmgr/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	factory := func(ctx context.Context, cfg *config.Config, sessions session.Store, logger *slog.Logger) (service.Service, error) {
		return rest.New(cfg, sessions, logger)
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory, cli.WithStdin(os.Stdin))

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
