package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/abdulachik/doomsayer/internal/history"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the post history database",
	Long: `Create or upgrade the post history ledger named by HISTORY_PATH.

Posting opens and upgrades the ledger on its own; run this ahead of time to
catch a bad path or a read-only disk before the next scheduled toot.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.HistoryPath == "" {
		return errors.New("HISTORY_PATH is not set")
	}

	slog.Info("opening post history", "path", cfg.HistoryPath)
	store, err := history.NewStore(ctx, cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open post history: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("upgrade post history schema: %w", err)
	}

	count, err := store.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Post history ready at %s (%d toots recorded)\n", cfg.HistoryPath, count)
	return nil
}
