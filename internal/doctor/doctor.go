// Package doctor runs readiness diagnostics for config, tools, audio,
// storage, and the recognition gateway.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/voxkey/voxkey/internal/audio"
	"github.com/voxkey/voxkey/internal/capture"
	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/ipc"
	"github.com/voxkey/voxkey/internal/storage"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, config, and service checks.
func Run(ctx context.Context, cfg config.Config) Report {
	checks := []Check{}

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir available", "XDG_RUNTIME_DIR is empty"))

	checks = append(checks, checkCommand(cfg.Clipboard.Argv, "clipboard_cmd"))

	if cfg.Paste.Enable {
		if len(cfg.Paste.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Paste.Argv, "paste_cmd"))
		} else {
			checks = append(checks, checkBinary("hyprctl", "default paste path requires hyprctl"))
		}
	}

	checks = append(checks, checkStorage(cfg))
	checks = append(checks, checkSocket(ctx))
	checks = append(checks, checkAudioSelection(ctx, cfg))
	checks = append(checks, checkGatewayReady(ctx, cfg))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkStorage verifies the settings store directory is writable.
func checkStorage(cfg config.Config) Check {
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		resolved, err := storage.DefaultPath()
		if err != nil {
			return Check{Name: "storage", Pass: false, Message: err.Error()}
		}
		path = resolved
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "storage", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Check{Name: "storage", Pass: false, Message: fmt.Sprintf("write %s: %v", dir, err)}
	}
	_ = os.Remove(probe)
	return Check{Name: "storage", Pass: true, Message: fmt.Sprintf("writable at %s", dir)}
}

// checkSocket reports whether a daemon currently owns the control socket.
func checkSocket(ctx context.Context) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "control.socket", Pass: false, Message: err.Error()}
	}

	alive, err := ipc.Probe(ctx, path, 300*time.Millisecond)
	if err != nil {
		return Check{Name: "control.socket", Pass: false, Message: err.Error()}
	}
	if alive {
		return Check{Name: "control.socket", Pass: true, Message: fmt.Sprintf("daemon responding at %s", path)}
	}
	return Check{Name: "control.socket", Pass: true, Message: fmt.Sprintf("free at %s (daemon not running)", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback, false)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkGatewayReady probes the recognition service health endpoint.
func checkGatewayReady(ctx context.Context, cfg config.Config) Check {
	endpoint := strings.TrimSpace(cfg.Gateway.ProbeEndpoint)
	if endpoint == "" {
		return Check{Name: "gateway.ready", Pass: true, Message: "probe endpoint not configured; skipped"}
	}

	timeout := time.Duration(cfg.Gateway.ProbeTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := capture.ProbeReady(ctx, endpoint, timeout); err != nil {
		return Check{Name: "gateway.ready", Pass: false, Message: err.Error()}
	}
	return Check{Name: "gateway.ready", Pass: true, Message: fmt.Sprintf("serving at %s", endpoint)}
}
