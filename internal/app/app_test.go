package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxkey/voxkey/internal/ipc"
	"github.com/voxkey/voxkey/internal/settings"
)

func newTestRunner() (*Runner, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &Runner{Stdout: stdout, Stderr: stderr}, stdout, stderr
}

// writeTestConfig points the CLI at a socket under the test's temp dir.
func writeTestConfig(t *testing.T, socketPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxkey.yaml")
	content := fmt.Sprintf("ipc:\n  socket: %s\n", socketPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// startTestDaemon serves a real daemon on a temp unix socket.
func startTestDaemon(t *testing.T) (*daemon, string) {
	t.Helper()
	d := newTestDaemon(t)

	socketPath := filepath.Join(t.TempDir(), "voxkey.sock")
	ctx, cancel := context.WithCancel(context.Background())
	listener, err := ipc.Acquire(ctx, socketPath, 100*time.Millisecond, 0, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ipc.Serve(ctx, listener, d)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d, socketPath
}

func TestExecuteHelp(t *testing.T) {
	runner, stdout, _ := newTestRunner()

	require.NoError(t, runner.Execute(context.Background(), []string{"--help"}))
	require.Contains(t, stdout.String(), "Usage:")
	require.Contains(t, stdout.String(), "settings")
}

func TestExecuteVersion(t *testing.T) {
	runner, stdout, _ := newTestRunner()

	require.NoError(t, runner.Execute(context.Background(), []string{"version"}))
	require.Contains(t, stdout.String(), "voxkey ")
}

func TestExecuteUnknownCommand(t *testing.T) {
	runner, _, stderr := newTestRunner()

	err := runner.Execute(context.Background(), []string{"frobnicate"})
	require.Error(t, err)
	require.Contains(t, stderr.String(), "error:")
}

func TestStatusWithoutDaemonReportsIdle(t *testing.T) {
	runner, stdout, _ := newTestRunner()
	configPath := writeTestConfig(t, filepath.Join(t.TempDir(), "absent.sock"))

	err := runner.Execute(context.Background(), []string{"--config", configPath, "status"})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "idle (daemon not running)")
}

func TestStopWithoutDaemonFails(t *testing.T) {
	runner, _, _ := newTestRunner()
	configPath := writeTestConfig(t, filepath.Join(t.TempDir(), "absent.sock"))

	err := runner.Execute(context.Background(), []string{"--config", configPath, "stop"})
	require.Error(t, err)
	require.ErrorIs(t, err, errDaemonNotRunning)
}

func TestStatusAgainstRunningDaemon(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	runner, stdout, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)

	err := runner.Execute(context.Background(), []string{"--config", configPath, "status"})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "idle")
}

func TestSettingsGetAgainstRunningDaemon(t *testing.T) {
	_, socketPath := startTestDaemon(t)
	runner, stdout, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)

	err := runner.Execute(context.Background(), []string{"--config", configPath, "settings", "get"})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), `"language"`)
	require.Contains(t, stdout.String(), settings.DefaultLanguage)
}

func TestSettingsSetAgainstRunningDaemon(t *testing.T) {
	d, socketPath := startTestDaemon(t)
	runner, stdout, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)

	err := runner.Execute(context.Background(), []string{
		"--config", configPath,
		"settings", "set", "language", "fr-FR", "showInterimResults", "false",
	})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "fr-FR")
	require.Equal(t, "fr-FR", d.store.Current().Language)
	require.False(t, d.store.Current().ShowInterim)
}

func TestSettingsSetMisspelledKeyFails(t *testing.T) {
	d, socketPath := startTestDaemon(t)
	runner, _, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)

	err := runner.Execute(context.Background(), []string{
		"--config", configPath,
		"settings", "set", "languge", "en-GB",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown settings key")
	require.Equal(t, settings.DefaultLanguage, d.store.Current().Language)
}

func TestExportImportAgainstRunningDaemon(t *testing.T) {
	d, socketPath := startTestDaemon(t)
	runner, _, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)
	ctx := context.Background()

	_, err := d.store.SaveRecord(ctx, map[string]any{settings.KeyLanguage: "ja-JP"})
	require.NoError(t, err)

	exportPath := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, runner.Execute(ctx, []string{"--config", configPath, "export", exportPath}))
	require.FileExists(t, exportPath)

	_, err = d.store.SaveRecord(ctx, map[string]any{settings.KeyLanguage: "en-US"})
	require.NoError(t, err)

	require.NoError(t, runner.Execute(ctx, []string{"--config", configPath, "import", exportPath}))
	require.Equal(t, "ja-JP", d.store.Current().Language)
}

func TestHistoryAgainstRunningDaemon(t *testing.T) {
	d, socketPath := startTestDaemon(t)
	runner, stdout, _ := newTestRunner()
	configPath := writeTestConfig(t, socketPath)
	ctx := context.Background()

	require.NoError(t, d.history.Append(ctx, "note to self"))

	err := runner.Execute(ctx, []string{"--config", configPath, "history"})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "note to self")
}

func TestCoerceValue(t *testing.T) {
	require.Equal(t, true, coerceValue("true"))
	require.Equal(t, false, coerceValue("false"))
	require.Equal(t, float64(7), coerceValue("7"))
	require.Equal(t, 0.5, coerceValue("0.5"))
	require.Equal(t, "fr-FR", coerceValue("fr-FR"))
}
