// Package config resolves, validates, and defaults voxkey daemon configuration.
//
// Runtime settings that users change through the UI (language, punctuation,
// interim results and friends) live in the settings store; this package only
// covers machine-level wiring: endpoints, sockets, devices, and commands.
package config

// Config is the fully materialized daemon configuration.
type Config struct {
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Hub       HubConfig       `mapstructure:"hub"`
	IPC       IPCConfig       `mapstructure:"ipc"`
	Storage   StorageConfig   `mapstructure:"storage"`
	History   HistoryConfig   `mapstructure:"history"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Clipboard CommandConfig   `mapstructure:"clipboard"`
	Paste     PasteConfig     `mapstructure:"paste"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// GatewayConfig locates the speech recognition gateway.
type GatewayConfig struct {
	URL            string `mapstructure:"url"`
	Token          string `mapstructure:"token"`
	ProbeEndpoint  string `mapstructure:"probe_endpoint"`
	ProbeTimeoutMS int    `mapstructure:"probe_timeout_ms"`
}

// HubConfig configures the websocket hub serving UI surfaces.
type HubConfig struct {
	Enable bool   `mapstructure:"enable"`
	Listen string `mapstructure:"listen"`
}

// IPCConfig configures the control socket. An empty path resolves to the
// runtime directory at startup.
type IPCConfig struct {
	Socket string `mapstructure:"socket"`
}

// StorageConfig locates the settings store document.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig locates the transcript history log.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `mapstructure:"input"`
	Fallback string `mapstructure:"fallback"`
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Command string `mapstructure:"command"`
	Argv    []string
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Shortcut string `mapstructure:"shortcut"`
	Command  string `mapstructure:"command"`
	Argv     []string
}

// IndicatorConfig controls the visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool   `mapstructure:"enable"`
	Backend           string `mapstructure:"backend"`
	DesktopAppName    string `mapstructure:"desktop_app_name"`
	SoundEnable       bool   `mapstructure:"sound_enable"`
	SoundStartFile    string `mapstructure:"sound_start_file"`
	SoundStopFile     string `mapstructure:"sound_stop_file"`
	SoundCompleteFile string `mapstructure:"sound_complete_file"`
	SoundCancelFile   string `mapstructure:"sound_cancel_file"`
	ErrorTimeoutMS    int    `mapstructure:"error_timeout_ms"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Default returns the canonical daemon configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Gateway: GatewayConfig{
			URL:            "ws://127.0.0.1:7700",
			ProbeEndpoint:  "127.0.0.1:7701",
			ProbeTimeoutMS: 2000,
		},
		Hub: HubConfig{
			Enable: true,
			Listen: "127.0.0.1:7710",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Clipboard: CommandConfig{Command: clipboard, Argv: mustParseArgv(clipboard)},
		Paste:     PasteConfig{Enable: true, Shortcut: "CTRL,V"},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "voxkey-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
