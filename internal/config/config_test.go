package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:7700", cfg.Gateway.URL)
	require.Equal(t, "127.0.0.1:7710", cfg.Hub.Listen)
	require.Equal(t, []string{"wl-copy", "--trim-newline"}, cfg.Clipboard.Argv)
	require.Equal(t, "CTRL,V", cfg.Paste.Shortcut)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxkey.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  url: wss://stt.example.net:9443
  token: secret
hub:
  listen: 127.0.0.1:9001
audio:
  input: elgato
logging:
  level: debug
  format: text
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "wss://stt.example.net:9443", cfg.Gateway.URL)
	require.Equal(t, "secret", cfg.Gateway.Token)
	require.Equal(t, "127.0.0.1:9001", cfg.Hub.Listen)
	require.Equal(t, "elgato", cfg.Audio.Input)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VOXKEY_GATEWAY_URL", "ws://10.0.0.5:7700")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "ws://10.0.0.5:7700", cfg.Gateway.URL)
}

func TestLoadResolvesTokenEnvRef(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxkey.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway:\n  token: ${VOXKEY_TEST_TOKEN}\n"), 0o600))
	t.Setenv("VOXKEY_TEST_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Gateway.Token)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad gateway scheme", "gateway:\n  url: ftp://host:21\n"},
		{"bad hub listen", "hub:\n  listen: not-an-addr\n"},
		{"empty clipboard", "clipboard:\n  command: \"\"\n"},
		{"bad indicator backend", "indicator:\n  backend: kde\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"unterminated quote", "clipboard:\n  command: \"wl-copy '\"\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "voxkey.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestValidatePasteNeedsShortcutOrCommand(t *testing.T) {
	cfg := Default()
	cfg.Paste.Shortcut = ""
	cfg.Paste.Argv = nil
	require.Error(t, Validate(cfg))

	cfg.Paste.Enable = false
	require.NoError(t, Validate(cfg))
}

func TestParseArgvQuotingAndEscapes(t *testing.T) {
	argv, err := parseArgv(`wtype --delay 5 "hello world" it\'s`)
	require.NoError(t, err)
	require.Equal(t, []string{"wtype", "--delay", "5", "hello world", "it's"}, argv)

	argv, err = parseArgv("   ")
	require.NoError(t, err)
	require.Nil(t, argv)

	argv, err = parseArgv("# commented out")
	require.NoError(t, err)
	require.Nil(t, argv)

	_, err = parseArgv(`broken "quote`)
	require.Error(t, err)
}
