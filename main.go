package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardnew/bloc/cli"
	"github.com/ardnew/bloc/log"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Error(
			"run failed",
			slog.Any("error", err),
		) // slog automatically uses LogValue()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	// Interrupting a watch or the REPL stops it cleanly.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cli.Run(ctx, os.Exit, args)
}
