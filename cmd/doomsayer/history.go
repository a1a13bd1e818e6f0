package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdulachik/doomsayer/internal/history"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently published posts",
	Long: `List posts recorded in the history database named by HISTORY_PATH.

Examples:
  doomsayer history             # Last 10 posts
  doomsayer history --limit 50  # Last 50 posts`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of posts to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.HistoryPath == "" {
		return errors.New("HISTORY_PATH is not set")
	}
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", historyLimit)
	}

	store, err := history.Open(ctx, cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	posts, err := store.RecentPosts(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}

	if len(posts) == 0 {
		fmt.Fprintln(out, "No posts recorded yet.")
		return nil
	}

	for _, p := range posts {
		link := p.URL.String
		if link == "" {
			link = p.URI.String
		}
		fmt.Fprintf(out, "#%d  %s  %s\n", p.TootIndex, p.PostedAt.Local().Format(time.DateTime), link)
		fmt.Fprintf(out, "    %s\n", p.Text)
	}

	return nil
}
