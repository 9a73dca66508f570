package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLogPathPrefersXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "voxkey", "log.jsonl"), path)
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "voxkey", "log.jsonl"), path)
}

func TestNewWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")

	runtime, err := New(path, "json", slog.LevelDebug)
	require.NoError(t, err)
	runtime.Logger.Info("daemon start", "listen", "127.0.0.1:7710")
	require.NoError(t, runtime.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	require.Equal(t, "daemon start", record["msg"])
	require.Equal(t, "127.0.0.1:7710", record["listen"])
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")

	runtime, err := New(path, "json", slog.LevelWarn)
	require.NoError(t, err)
	runtime.Logger.Info("suppressed")
	runtime.Logger.Warn("kept")
	require.NoError(t, runtime.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "suppressed")
	require.Contains(t, string(data), "kept")
}

func TestNewTextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	runtime, err := New(path, "text", slog.LevelInfo)
	require.NoError(t, err)
	runtime.Logger.Info("daemon start")
	require.NoError(t, runtime.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=\"daemon start\"")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("anything"))
}
