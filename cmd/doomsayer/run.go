package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdulachik/doomsayer/internal/app"
	"github.com/spf13/cobra"
)

var dryRun bool

func init() {
	addPathFlags(rootCmd)
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the next line without posting or saving state")
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	slog.Info("starting run", "state", statePath, "toots", tootsPath, "dry_run", dryRun)

	a, err := app.New(ctx, cfg, app.Options{
		StatePath: statePath,
		TootsPath: tootsPath,
		DryRun:    dryRun,
		In:        cmd.InOrStdin(),
		Out:       cmd.OutOrStdout(),
	})
	if err != nil {
		return fmt.Errorf("set up: %w", err)
	}
	defer a.Close()

	res, err := a.Bot.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("run complete", "outcome", res.Outcome)
	return nil
}
