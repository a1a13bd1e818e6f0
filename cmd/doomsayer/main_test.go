package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/doomsayer/internal/state"
)

// useConfigFile points the commands at a TOML file holding content and
// restores the previous settings afterwards.
func useConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doomsayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	prevPath, prevLevel := configPath, logLevel.Level()
	configPath = path
	t.Cleanup(func() {
		configPath = prevPath
		logLevel.Set(prevLevel)
	})

	for _, key := range []string{"LOG_LEVEL", "HISTORY_PATH", "HTTP_TIMEOUT", "INSTANCE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_AppliesLogLevel(t *testing.T) {
	t.Run("from config file", func(t *testing.T) {
		useConfigFile(t, `log_level = "warn"`)

		_, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, slog.LevelWarn, logLevel.Level())
		assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("environment wins", func(t *testing.T) {
		useConfigFile(t, `log_level = "warn"`)
		t.Setenv("LOG_LEVEL", "debug")

		_, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, slog.LevelDebug, logLevel.Level())
	})

	t.Run("unknown level", func(t *testing.T) {
		useConfigFile(t, `log_level = "chatty"`)
		logLevel.Set(slog.LevelInfo)

		_, err := loadConfig()
		assert.ErrorContains(t, err, "LOG_LEVEL")
		assert.Equal(t, slog.LevelInfo, logLevel.Level())
	})
}

func TestRunStatus_Verify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/apps/verify_credentials", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "The access token is invalid"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "doomsayer"})
	}))
	defer server.Close()

	run := func(t *testing.T, token string) (string, error) {
		t.Helper()
		useConfigFile(t, `http_timeout = "5s"`)

		dir := t.TempDir()
		prevState, prevToots, prevVerify := statePath, tootsPath, statusVerify
		statePath = filepath.Join(dir, "state.json")
		tootsPath = filepath.Join(dir, "toots.txt")
		statusVerify = true
		t.Cleanup(func() {
			statePath, tootsPath, statusVerify = prevState, prevToots, prevVerify
		})

		require.NoError(t, os.WriteFile(tootsPath, []byte("a\nb\n"), 0o644))
		require.NoError(t, state.Save(statePath, state.New(state.Credential{Base: server.URL, Token: token}).Advance(0)))

		var out bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&out)
		err := runStatus(cmd, nil)
		return out.String(), err
	}

	t.Run("accepted", func(t *testing.T) {
		out, err := run(t, "good")
		require.NoError(t, err)
		assert.Contains(t, out, "Accepted by "+server.URL)
		assert.Contains(t, out, "Next index: 1")
		assert.NotContains(t, out, "good")
	})

	t.Run("rejected", func(t *testing.T) {
		out, err := run(t, "revoked")
		require.Error(t, err)
		assert.Contains(t, out, "Rejected by "+server.URL)
		assert.Contains(t, out, "The access token is invalid")
		assert.NotContains(t, out, "revoked")
	})
}
