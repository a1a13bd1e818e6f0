package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultInstanceURL   = "https://botsin.space"
	DefaultClientName    = "doomsayer"
	DefaultClientWebsite = "https://github.com/deifactor/doomsayer"
)

// Config holds all application configuration.
type Config struct {
	// Mastodon instance used for registration. Posting uses the instance
	// recorded in the credential.
	InstanceURL string

	// Application identity sent at registration
	ClientName    string
	ClientWebsite string

	HTTPTimeout time.Duration

	// HistoryPath is the SQLite post ledger. Empty disables it.
	HistoryPath string

	LogLevel string
}

// FileConfig mirrors Config with TOML-friendly types.
type FileConfig struct {
	InstanceURL   string `toml:"instance_url"`
	ClientName    string `toml:"client_name"`
	ClientWebsite string `toml:"client_website"`
	HTTPTimeout   string `toml:"http_timeout"`
	HistoryPath   string `toml:"history_path"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// Load builds the configuration. Values from the optional TOML file at path
// are overridden by environment variables, and a .env file is loaded first
// if present.
func Load(path string) (*Config, error) {
	var fc FileConfig
	if path != "" {
		var err error
		fc, err = LoadFileConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		InstanceURL:   getEnv("INSTANCE_URL", or(fc.InstanceURL, DefaultInstanceURL)),
		ClientName:    getEnv("CLIENT_NAME", or(fc.ClientName, DefaultClientName)),
		ClientWebsite: getEnv("CLIENT_WEBSITE", or(fc.ClientWebsite, DefaultClientWebsite)),
		HistoryPath:   getEnv("HISTORY_PATH", fc.HistoryPath),
		LogLevel:      getEnv("LOG_LEVEL", or(fc.LogLevel, "info")),
	}

	var err error
	cfg.HTTPTimeout, err = time.ParseDuration(getEnv("HTTP_TIMEOUT", or(fc.HTTPTimeout, "30s")))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel converts a level name such as "debug" or "WARN" into a
// slog.Level. An empty name means info.
func ParseLogLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	name = strings.TrimSpace(name)
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", name, err)
	}
	return lvl, nil
}

// ValidateForRegistration checks configuration needed to register the bot.
func (c *Config) ValidateForRegistration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.InstanceURL == "" {
		return errors.New("INSTANCE_URL is required for registration")
	}
	u, err := url.Parse(c.InstanceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("INSTANCE_URL must be an absolute http(s) URL, got %q", c.InstanceURL)
	}
	if c.ClientName == "" {
		return errors.New("CLIENT_NAME is required for registration")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func or(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
