package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/doomsayer/internal/config"
)

var (
	configPath string
	statePath  string
	tootsPath  string
)

// logLevel backs the default logger so the level can follow the loaded
// configuration.
var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:   "doomsayer",
	Short: "Post the next line of a text file to Mastodon",
	Long: `Doomsayer posts one line of a text file to a Mastodon account per run,
remembering in a state file which line went out last. Run it from cron or a
systemd timer.

The first run, when the state file does not exist yet, registers the bot
with the instance and asks for an authorization code instead of posting.

Examples:
  doomsayer -s state.json -t toots.txt            # Post the next line
  doomsayer -s state.json -t toots.txt --dry-run  # Show it without posting`,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging; LOG_LEVEL applies until the config is loaded
	if lvl, err := config.ParseLogLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logLevel.Set(lvl)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DOOMSAYER_CONFIG"), "Optional TOML config file")
}

// loadConfig loads the configuration and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	lvl, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel.Set(lvl)
	return cfg, nil
}

// addPathFlags registers the state and toots file flags on cmd.
func addPathFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&statePath, "state", "s", "", "File to store the bot's state in; does not need to exist")
	cmd.Flags().StringVarP(&tootsPath, "toots", "t", "", "Text file containing the lines to post")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("toots")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
