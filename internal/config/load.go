package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults. If
// configFile is non-empty it is used directly; otherwise the standard search
// order applies: $XDG_CONFIG_HOME/voxkey, ~/.config/voxkey, /etc/voxkey.
// Environment variables use the VOXKEY_ prefix, e.g. VOXKEY_GATEWAY_URL.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voxkey")
		v.SetConfigType("yaml")
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("VOXKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Gateway.Token = resolveEnvRef(cfg.Gateway.Token)

	var err error
	if cfg.Clipboard.Argv, err = parseArgv(cfg.Clipboard.Command); err != nil {
		return Config{}, fmt.Errorf("clipboard.command: %w", err)
	}
	if cfg.Paste.Argv, err = parseArgv(cfg.Paste.Command); err != nil {
		return Config{}, fmt.Errorf("paste.command: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("gateway.url", d.Gateway.URL)
	v.SetDefault("gateway.probe_endpoint", d.Gateway.ProbeEndpoint)
	v.SetDefault("gateway.probe_timeout_ms", d.Gateway.ProbeTimeoutMS)
	v.SetDefault("hub.enable", d.Hub.Enable)
	v.SetDefault("hub.listen", d.Hub.Listen)
	v.SetDefault("audio.input", d.Audio.Input)
	v.SetDefault("audio.fallback", d.Audio.Fallback)
	v.SetDefault("clipboard.command", d.Clipboard.Command)
	v.SetDefault("paste.enable", d.Paste.Enable)
	v.SetDefault("paste.shortcut", d.Paste.Shortcut)
	v.SetDefault("indicator.enable", d.Indicator.Enable)
	v.SetDefault("indicator.backend", d.Indicator.Backend)
	v.SetDefault("indicator.desktop_app_name", d.Indicator.DesktopAppName)
	v.SetDefault("indicator.sound_enable", d.Indicator.SoundEnable)
	v.SetDefault("indicator.error_timeout_ms", d.Indicator.ErrorTimeoutMS)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// searchDirs returns config directories in priority order.
func searchDirs() []string {
	var dirs []string
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "voxkey"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "voxkey"))
	}
	dirs = append(dirs, "/etc/voxkey")
	return dirs
}

// resolveEnvRef replaces "${VAR_NAME}" values with the environment value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		if envVal := os.Getenv(val[2 : len(val)-1]); envVal != "" {
			return envVal
		}
	}
	return val
}
