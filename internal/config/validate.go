package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg Config) error {
	if err := validateGatewayURL(cfg.Gateway.URL); err != nil {
		return err
	}
	if cfg.Gateway.ProbeEndpoint != "" {
		if _, _, err := net.SplitHostPort(cfg.Gateway.ProbeEndpoint); err != nil {
			return fmt.Errorf("gateway.probe_endpoint %q: %w", cfg.Gateway.ProbeEndpoint, err)
		}
	}
	if cfg.Gateway.ProbeTimeoutMS < 0 {
		return fmt.Errorf("gateway.probe_timeout_ms must not be negative")
	}

	if cfg.Hub.Enable {
		if _, _, err := net.SplitHostPort(cfg.Hub.Listen); err != nil {
			return fmt.Errorf("hub.listen %q: %w", cfg.Hub.Listen, err)
		}
	}

	if len(cfg.Clipboard.Argv) == 0 {
		return fmt.Errorf("clipboard.command must not be empty")
	}

	if cfg.Paste.Enable && len(cfg.Paste.Argv) == 0 && strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return fmt.Errorf("paste.shortcut or paste.command is required when paste is enabled")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend)) {
	case "hypr", "desktop":
	default:
		return fmt.Errorf("indicator.backend %q is not supported (hypr, desktop)", cfg.Indicator.Backend)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", cfg.Logging.Level)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q is not supported", cfg.Logging.Format)
	}

	return nil
}

func validateGatewayURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("gateway.url %q: %w", raw, err)
	}
	switch parsed.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("gateway.url %q: scheme must be ws, wss, http, or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("gateway.url %q: host is required", raw)
	}
	return nil
}
