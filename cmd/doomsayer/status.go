package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/abdulachik/doomsayer/internal/config"
	"github.com/abdulachik/doomsayer/internal/history"
	"github.com/abdulachik/doomsayer/internal/mastodon"
	"github.com/abdulachik/doomsayer/internal/poster"
	"github.com/abdulachik/doomsayer/internal/state"
	"github.com/abdulachik/doomsayer/internal/toots"
	"github.com/spf13/cobra"
)

var statusVerify bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show posting progress",
	Long: `Display the saved state (credential redacted), the next line to post and how many remain.

Examples:
  doomsayer status -s state.json -t toots.txt           # Local progress only
  doomsayer status -s state.json -t toots.txt --verify  # Also ask the instance whether the credential still works`,
	RunE: runStatus,
}

func init() {
	addPathFlags(statusCmd)
	statusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Check the saved credential against the instance")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== Doomsayer Status ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "State: %s\n", statePath)
	fmt.Fprintf(out, "Toots: %s\n", tootsPath)
	fmt.Fprintln(out)

	st, err := state.Load(statePath)
	if errors.Is(err, state.ErrNotFound) {
		fmt.Fprintln(out, "Not registered yet. The next run will register the bot.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	total, err := toots.NewSource(tootsPath).Count()
	if err != nil {
		return fmt.Errorf("count toots: %w", err)
	}

	next := st.NextIndex()
	remaining := total - next
	if remaining < 0 {
		remaining = 0
	}

	fmt.Fprintf(out, "Instance: %s\n", st.Credential.Base)
	fmt.Fprintf(out, "Saved state: %v\n", st)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Total lines: %d\n", total)
	fmt.Fprintf(out, "  Next index: %d\n", next)
	fmt.Fprintf(out, "  Remaining: %d\n", remaining)
	if remaining == 0 {
		fmt.Fprintln(out, "  Out of content: append lines to the toots file to resume.")
	}
	fmt.Fprintln(out)

	if statusVerify {
		if err := verifyCredential(ctx, cfg, st.Credential, out); err != nil {
			return err
		}
	}

	if cfg.HistoryPath != "" {
		store, err := history.Open(ctx, cfg.HistoryPath)
		if err != nil {
			slog.Warn("failed to open post history", "error", err)
			return nil
		}
		defer store.Close()

		count, err := store.CountPosts(ctx)
		if err != nil {
			slog.Warn("failed to count posts", "error", err)
			return nil
		}
		fmt.Fprintln(out, "History:")
		fmt.Fprintf(out, "  Path: %s\n", cfg.HistoryPath)
		fmt.Fprintf(out, "  Recorded posts: %d\n", count)
		fmt.Fprintln(out)
	}

	return nil
}

// verifyCredential asks the credential's instance whether it still accepts
// the token and reports the answer to out.
func verifyCredential(ctx context.Context, cfg *config.Config, cred state.Credential, out io.Writer) error {
	p := poster.NewMastodonPoster(poster.MastodonConfig{
		Client:     mastodon.New(mastodon.Config{Timeout: cfg.HTTPTimeout}),
		Credential: cred,
	})

	fmt.Fprintln(out, "Credential:")
	if err := p.ValidateCredentials(ctx); err != nil {
		fmt.Fprintf(out, "  Rejected by %s: %v\n", cred.Base, err)
		fmt.Fprintln(out, "  Delete the state file and run again to register a new credential.")
		fmt.Fprintln(out)
		return err
	}
	fmt.Fprintf(out, "  Accepted by %s\n", cred.Base)
	fmt.Fprintln(out)
	return nil
}
