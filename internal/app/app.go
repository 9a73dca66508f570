package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/voxkey/voxkey/internal/audio"
	"github.com/voxkey/voxkey/internal/cli"
	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/doctor"
	"github.com/voxkey/voxkey/internal/fsm"
	"github.com/voxkey/voxkey/internal/history"
	"github.com/voxkey/voxkey/internal/ipc"
	"github.com/voxkey/voxkey/internal/logging"
	"github.com/voxkey/voxkey/internal/version"
)

const requestTimeout = 5 * time.Second

var errDaemonNotRunning = errors.New("daemon not running; start it with: voxkey run")

// usageError marks argument-shape failures so Execute can exit 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Execute runs one invocation and maps failures to process exit codes:
// usage errors exit 2, everything else exits 1.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	runner := &Runner{Stdout: stdout, Stderr: stderr}
	err := runner.Execute(ctx, args)
	if err == nil {
		return 0
	}
	var usage usageError
	if errors.As(err, &usage) {
		return 2
	}
	fmt.Fprintln(stderr, "error:", err)
	return 1
}

// Runner executes one CLI invocation. Every command except run talks to
// the daemon over the control socket.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute parses args and dispatches the selected command.
func (r *Runner) Execute(ctx context.Context, args []string) error {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintln(r.Stderr, "error:", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxkey"))
		return usageError{err: err}
	}

	if parsed.ShowHelp || parsed.Command == cli.CommandHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxkey"))
		return nil
	}
	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return nil
	}

	cfg, err := config.Load(parsed.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfg)
	case cli.CommandToggle:
		return r.commandToggle(ctx, cfg)
	case cli.CommandStop:
		return r.forwardSimple(ctx, cfg, ipc.KindStop)
	case cli.CommandCancel:
		return r.forwardSimple(ctx, cfg, ipc.KindCancel)
	case cli.CommandStatus:
		return r.commandStatus(ctx, cfg)
	case cli.CommandSettings:
		return r.commandSettings(ctx, cfg, parsed.Args)
	case cli.CommandExport:
		exportPath := "-"
		if len(parsed.Args) == 1 {
			exportPath = parsed.Args[0]
		}
		return r.commandExport(ctx, cfg, exportPath)
	case cli.CommandImport:
		return r.commandImport(ctx, cfg, parsed.Args[0])
	case cli.CommandHistory:
		return r.commandHistory(ctx, cfg)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandDoctor:
		return r.commandDoctor(ctx, cfg)
	default:
		return fmt.Errorf("unhandled command %q", parsed.Command)
	}
}

// commandRun starts the daemon: acquires the control socket, wires the
// full session stack, and serves until ctx is cancelled.
func (r *Runner) commandRun(ctx context.Context, cfg config.Config) error {
	logRuntime, err := logging.New(cfg.Logging.Path, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logRuntime.Close()
	logger := logRuntime.Logger

	sockPath, err := socketPath(cfg)
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, sockPath, 300*time.Millisecond, 2, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "voxkey daemon already running")
		}
		return err
	}

	d, err := newDaemon(ctx, cfg, logger)
	if err != nil {
		_ = listener.Close()
		_ = os.Remove(sockPath)
		return err
	}

	fmt.Fprintln(r.Stdout, "voxkey daemon listening on", sockPath)
	return d.run(ctx, listener, sockPath)
}

// commandToggle starts a session when idle, otherwise stops the active one.
func (r *Runner) commandToggle(ctx context.Context, cfg config.Config) error {
	status, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindStatus})
	if err != nil {
		return err
	}

	kind := ipc.KindStart
	if status.State != string(fsm.StateIdle) {
		kind = ipc.KindStop
	}
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: kind})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, resp.Message)
	return nil
}

func (r *Runner) commandStatus(ctx context.Context, cfg config.Config) error {
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindStatus})
	if err != nil {
		if errors.Is(err, errDaemonNotRunning) {
			fmt.Fprintln(r.Stdout, "idle (daemon not running)")
			return nil
		}
		return err
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return nil
}

// commandSettings handles `settings get` and `settings set KEY VALUE ...`.
func (r *Runner) commandSettings(ctx context.Context, cfg config.Config, args []string) error {
	if args[0] == "get" {
		resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindSettingsGet})
		if err != nil {
			return err
		}
		return r.printJSON(resp.Settings)
	}

	record := make(map[string]any, (len(args)-1)/2)
	for i := 1; i < len(args); i += 2 {
		record[args[i]] = coerceValue(args[i+1])
	}
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindSettingsSet, Settings: record})
	if err != nil {
		return err
	}
	return r.printJSON(resp.Settings)
}

func (r *Runner) commandExport(ctx context.Context, cfg config.Config, path string) error {
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindSettingsExport})
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = r.Stdout.Write(append(resp.Blob, '\n'))
		return err
	}
	if err := os.WriteFile(path, resp.Blob, 0o600); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	fmt.Fprintln(r.Stdout, "settings exported to", path)
	return nil
}

func (r *Runner) commandImport(ctx context.Context, cfg config.Config, path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindSettingsImport, Blob: blob})
	if err != nil {
		return err
	}
	return r.printJSON(resp.Settings)
}

func (r *Runner) commandHistory(ctx context.Context, cfg config.Config) error {
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: ipc.KindHistory})
	if err != nil {
		return err
	}
	var entries []history.Entry
	if err := json.Unmarshal(resp.Blob, &entries); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no transcripts recorded")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(r.Stdout, "%s  %s\n", entry.RecordedAt.Local().Format("2006-01-02 15:04:05"), entry.Text)
	}
	return nil
}

func (r *Runner) commandDevices(ctx context.Context) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("list capture devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no capture devices found")
		return nil
	}
	for _, device := range devices {
		mark := "  "
		if device.Default {
			mark = "* "
		}
		extra := ""
		if !device.Available {
			extra = " [unavailable]"
		} else if device.Muted {
			extra = " [muted]"
		}
		fmt.Fprintf(r.Stdout, "%s%s\n    %s (%s)%s\n", mark, device.ID, device.Description, device.State, extra)
	}
	return nil
}

func (r *Runner) commandDoctor(ctx context.Context, cfg config.Config) error {
	report := doctor.Run(ctx, cfg)
	fmt.Fprint(r.Stdout, report.String())
	if !report.OK() {
		return errors.New("doctor found problems")
	}
	return nil
}

func (r *Runner) forwardSimple(ctx context.Context, cfg config.Config, kind string) error {
	resp, err := r.forward(ctx, cfg, ipc.Request{Kind: kind})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, resp.Message)
	return nil
}

// forward sends one request to the running daemon and surfaces its errors.
func (r *Runner) forward(ctx context.Context, cfg config.Config, req ipc.Request) (ipc.Response, error) {
	path, err := socketPath(cfg)
	if err != nil {
		return ipc.Response{}, err
	}
	resp, err := ipc.Send(ctx, path, req, requestTimeout)
	if err != nil {
		if ipc.IsDaemonAbsent(err) {
			return ipc.Response{}, errDaemonNotRunning
		}
		return ipc.Response{}, err
	}
	if !resp.OK {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func (r *Runner) printJSON(value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, string(encoded))
	return nil
}

func socketPath(cfg config.Config) (string, error) {
	if path := strings.TrimSpace(cfg.IPC.Socket); path != "" {
		return path, nil
	}
	return ipc.RuntimeSocketPath()
}

// coerceValue turns a CLI string into the JSON-ish type the settings
// record expects: bool, number, or string.
func coerceValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}
