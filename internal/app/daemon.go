package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/voxkey/voxkey/internal/audio"
	"github.com/voxkey/voxkey/internal/capture"
	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/fsm"
	"github.com/voxkey/voxkey/internal/history"
	"github.com/voxkey/voxkey/internal/indicator"
	"github.com/voxkey/voxkey/internal/ipc"
	"github.com/voxkey/voxkey/internal/notify"
	"github.com/voxkey/voxkey/internal/output"
	"github.com/voxkey/voxkey/internal/session"
	"github.com/voxkey/voxkey/internal/settings"
	"github.com/voxkey/voxkey/internal/storage"
)

// daemon wires the settings store, session controller, websocket hub, and
// control socket into one long-running process.
type daemon struct {
	logger     *slog.Logger
	cfg        config.Config
	store      *settings.Store
	controller *session.Controller
	hub        *notify.Hub
	history    *history.Log

	mu            sync.Mutex
	sessionActive bool
}

// newDaemon assembles the daemon from config and loads persisted settings.
func newDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (*daemon, error) {
	storagePath := strings.TrimSpace(cfg.Storage.Path)
	if storagePath == "" {
		resolved, err := storage.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve storage path: %w", err)
		}
		storagePath = resolved
	}
	kv, err := storage.NewFileStore(storagePath)
	if err != nil {
		return nil, fmt.Errorf("open settings storage: %w", err)
	}

	historyPath := strings.TrimSpace(cfg.History.Path)
	if historyPath == "" {
		resolved, err := history.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve history path: %w", err)
		}
		historyPath = resolved
	}

	d := &daemon{
		logger: logger,
		cfg:    cfg,
		hub:    notify.NewHub(logger),
	}

	// Settings changes fan out to every UI surface and in-process consumer.
	// One failing target never blocks the others.
	fanout := notify.NewFanout(
		notify.Target{Name: "hub", Notifier: d.hub},
		notify.Observer("session", func(_ context.Context, s settings.Settings) error {
			d.controller.Apply(s)
			return nil
		}),
		notify.Observer("history", func(_ context.Context, s settings.Settings) error {
			d.history.SetRetention(s.DataRetentionDays)
			return nil
		}),
	)

	d.store = settings.NewStore(kv, fanout, logger)
	current := d.store.Load(ctx)

	d.history = history.NewLog(historyPath, current.DataRetentionDays)
	if err := d.history.Prune(ctx); err != nil {
		logger.Warn("history prune failed", "error", err.Error())
	}

	recognizer := capture.NewGateway(capture.GatewayConfig{
		URL:   cfg.Gateway.URL,
		Token: cfg.Gateway.Token,
	})
	mic := &audio.Microphone{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger,
	}
	committer := output.NewCommitter(cfg, logger)
	ind := indicator.New(cfg.Indicator, logger, current)

	d.controller = session.NewController(logger, recognizer, mic, committer, ind, d.history, current)
	return d, nil
}

// run owns the control socket and websocket hub until ctx is cancelled.
func (d *daemon) run(ctx context.Context, listener net.Listener, socketPath string) error {
	defer func() {
		d.hub.Close()
		_ = os.Remove(socketPath)
	}()

	var hubServer *notify.Server
	if d.cfg.Hub.Enable {
		hubServer = notify.NewServer(d.hub, d.store.Current, d.logger)
		go func() {
			if err := hubServer.Start(d.cfg.Hub.Listen); err != nil {
				d.logger.Error("hub server stopped", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = hubServer.Shutdown(shutdownCtx)
		}()
	}

	d.logger.Info("daemon ready",
		"socket", socketPath,
		"hub", d.cfg.Hub.Enable,
		"language", d.store.Current().Language,
	)
	return ipc.Serve(ctx, listener, d)
}

// Handle serves one control-socket request.
func (d *daemon) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Kind {
	case ipc.KindStart:
		return d.handleStart(ctx)
	case ipc.KindStop:
		d.controller.Stop()
		return ipc.Response{OK: true, State: string(d.controller.State()), Message: "stopping"}
	case ipc.KindCancel:
		d.controller.Cancel()
		return ipc.Response{OK: true, State: string(d.controller.State()), Message: "cancelled"}
	case ipc.KindStatus:
		return ipc.Response{OK: true, State: string(d.controller.State())}
	case ipc.KindSettingsGet:
		return ipc.Response{OK: true, Settings: d.store.Current().Record()}
	case ipc.KindSettingsSet:
		for key := range req.Settings {
			if err := settings.ValidateKey(key); err != nil {
				return ipc.Response{OK: false, Error: err.Error()}
			}
		}
		updated, err := d.store.SaveRecord(ctx, req.Settings)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, Settings: updated.Record()}
	case ipc.KindSettingsExport:
		blob, err := d.store.Export(time.Now())
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, Blob: blob}
	case ipc.KindSettingsImport:
		updated, err := d.store.Import(ctx, req.Blob)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, Settings: updated.Record()}
	case ipc.KindHistory:
		entries, err := d.history.Entries(ctx)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		blob, err := json.Marshal(entries)
		if err != nil {
			return ipc.Response{OK: false, Error: err.Error()}
		}
		return ipc.Response{OK: true, Blob: blob}
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown request kind: %q", req.Kind)}
	}
}

// handleStart spawns a session loop unless one is already active.
func (d *daemon) handleStart(ctx context.Context) ipc.Response {
	d.mu.Lock()
	if d.sessionActive {
		d.mu.Unlock()
		return ipc.Response{OK: true, State: string(d.controller.State()), Message: "already listening"}
	}
	d.sessionActive = true
	d.mu.Unlock()

	if endpoint := strings.TrimSpace(d.cfg.Gateway.ProbeEndpoint); endpoint != "" {
		timeout := time.Duration(d.cfg.Gateway.ProbeTimeoutMS) * time.Millisecond
		if err := capture.ProbeReady(ctx, endpoint, timeout); err != nil {
			d.mu.Lock()
			d.sessionActive = false
			d.mu.Unlock()
			d.logger.Warn("gateway not ready", "endpoint", endpoint, "error", err)
			return ipc.Response{OK: false, State: string(d.controller.State()), Error: err.Error()}
		}
	}

	go d.sessionLoop(ctx)
	return ipc.Response{OK: true, State: string(fsm.StateListening), Message: "listening"}
}

// sessionLoop runs sessions back to back while continuous capture is on.
func (d *daemon) sessionLoop(ctx context.Context) {
	defer func() {
		d.mu.Lock()
		d.sessionActive = false
		d.mu.Unlock()
	}()

	for {
		result := d.controller.Run(ctx)
		d.logSessionResult(result)

		if result.Err != nil || result.Cancelled || ctx.Err() != nil {
			return
		}
		if !d.store.Current().Continuous {
			return
		}
	}
}

func (d *daemon) logSessionResult(result session.Result) {
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"segments", result.Segments,
		"transcript_length", len(result.Transcript),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	}
	if result.Err != nil {
		d.logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	d.logger.Info("session complete", fields...)
}
