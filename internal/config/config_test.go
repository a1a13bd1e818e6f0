package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env and restore after test
	origEnv := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, e := range origEnv {
			for i := 0; i < len(e); i++ {
				if e[i] == '=' {
					os.Setenv(e[:i], e[i+1:])
					break
				}
			}
		}
	})

	t.Run("defaults", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, DefaultInstanceURL, cfg.InstanceURL)
		assert.Equal(t, DefaultClientName, cfg.ClientName)
		assert.Equal(t, DefaultClientWebsite, cfg.ClientWebsite)
		assert.Equal(t, "", cfg.HistoryPath)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("INSTANCE_URL", "https://mastodon.example")
		os.Setenv("HISTORY_PATH", "/var/lib/doomsayer/history.db")
		os.Setenv("HTTP_TIMEOUT", "5s")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "https://mastodon.example", cfg.InstanceURL)
		assert.Equal(t, "/var/lib/doomsayer/history.db", cfg.HistoryPath)
		assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	})

	t.Run("config file", func(t *testing.T) {
		os.Clearenv()
		path := filepath.Join(t.TempDir(), "doomsayer.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
instance_url = "https://file.example"
client_name = "from-file"
http_timeout = "10s"
history_path = "file.db"
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://file.example", cfg.InstanceURL)
		assert.Equal(t, "from-file", cfg.ClientName)
		assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, "file.db", cfg.HistoryPath)
		assert.Equal(t, DefaultClientWebsite, cfg.ClientWebsite)
	})

	t.Run("log level from config file", func(t *testing.T) {
		os.Clearenv()
		path := filepath.Join(t.TempDir(), "doomsayer.toml")
		require.NoError(t, os.WriteFile(path, []byte(`log_level = "warn"`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)

		os.Setenv("LOG_LEVEL", "error")
		cfg, err = Load(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.LogLevel)
	})

	t.Run("env overrides config file", func(t *testing.T) {
		os.Clearenv()
		path := filepath.Join(t.TempDir(), "doomsayer.toml")
		require.NoError(t, os.WriteFile(path, []byte(`instance_url = "https://file.example"`), 0o644))
		os.Setenv("INSTANCE_URL", "https://env.example")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example", cfg.InstanceURL)
	})

	t.Run("missing config file", func(t *testing.T) {
		os.Clearenv()
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("malformed config file", func(t *testing.T) {
		os.Clearenv()
		path := filepath.Join(t.TempDir(), "doomsayer.toml")
		require.NoError(t, os.WriteFile(path, []byte(`instance_url = `), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid duration", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("HTTP_TIMEOUT", "invalid")

		_, err := Load("")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := &Config{HTTPTimeout: time.Second}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
	})

	t.Run("unknown log level", func(t *testing.T) {
		cfg := &Config{HTTPTimeout: time.Second, LogLevel: "loud"}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "LOG_LEVEL")
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "", want: slog.LevelInfo},
		{name: "debug", want: slog.LevelDebug},
		{name: "INFO", want: slog.LevelInfo},
		{name: "warn", want: slog.LevelWarn},
		{name: " error ", want: slog.LevelError},
		{name: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_ValidateForRegistration(t *testing.T) {
	valid := func() *Config {
		return &Config{
			InstanceURL: "https://botsin.space",
			ClientName:  "doomsayer",
			HTTPTimeout: time.Second,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().ValidateForRegistration())
	})

	t.Run("missing instance", func(t *testing.T) {
		cfg := valid()
		cfg.InstanceURL = ""
		err := cfg.ValidateForRegistration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "INSTANCE_URL")
	})

	t.Run("relative instance", func(t *testing.T) {
		cfg := valid()
		cfg.InstanceURL = "botsin.space"
		err := cfg.ValidateForRegistration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "absolute")
	})

	t.Run("missing client name", func(t *testing.T) {
		cfg := valid()
		cfg.ClientName = ""
		err := cfg.ValidateForRegistration()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CLIENT_NAME")
	})
}
