// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/hypr"
	"github.com/voxkey/voxkey/internal/settings"
)

type phase int

const (
	phaseHidden phase = iota
	phaseListening
	phaseFinalizing
	phaseError
)

// Interim updates are throttled so rapid partial results do not flood the
// notification backend.
const interimMinInterval = 150 * time.Millisecond

// Notifier is the concrete indicator used by runtime sessions. It routes
// output through Hyprland or desktop DBus notifications based on config,
// and reflects the user's indicator settings as they change.
type Notifier struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger

	mu                    sync.Mutex
	phase                 phase
	position              settings.Position
	focusedMonitor        string
	desktopNotificationID uint32
	lastInterim           time.Time

	soundMu sync.Mutex
}

// New creates an indicator from daemon config and initial user settings.
func New(cfg config.IndicatorConfig, logger *slog.Logger, initial settings.Settings) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		position: initial.IndicatorPosition,
	}
}

// Apply adopts indicator-relevant user settings.
func (n *Notifier) Apply(s settings.Settings) {
	n.mu.Lock()
	changed := n.position != s.IndicatorPosition
	n.position = s.IndicatorPosition
	n.mu.Unlock()

	if changed && n.logger != nil {
		n.logger.Debug("indicator position changed", "position", string(s.IndicatorPosition))
	}
}

// Position returns the corner UI surfaces should anchor the indicator to.
func (n *Notifier) Position() settings.Position {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.position
}

// ShowListening signals capture start and emits the start cue.
func (n *Notifier) ShowListening(ctx context.Context) {
	n.setPhase(phaseListening)
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.ensureFocusedMonitor(ctx)
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(89b4fa)", "Listening…", "")
	})
}

// ShowFinalizing signals the post-capture flush state and emits the stop cue.
func (n *Notifier) ShowFinalizing(ctx context.Context) {
	n.setPhase(phaseFinalizing)
	n.playCue(cueStop)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(cba6f7)", "Finalizing…", "")
	})
}

// ShowInterim updates the indicator with an in-progress transcript.
func (n *Notifier) ShowInterim(ctx context.Context, text string) {
	if !n.cfg.Enable || strings.TrimSpace(text) == "" {
		return
	}

	n.mu.Lock()
	throttled := time.Since(n.lastInterim) < interimMinInterval
	if !throttled {
		n.lastInterim = time.Now()
	}
	n.mu.Unlock()
	if throttled {
		return
	}

	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(89b4fa)", "Listening…", truncateInterim(text))
	})
}

// ShowError displays an error-state indicator message and emits the cancel cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.setPhase(phaseError)
	n.playCue(cueCancel)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = "Speech recognition error"
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 3, timeout, "rgb(f38ba8)", text, "")
	})
}

// Hide dismisses the indicator. Leaving the finalizing phase plays the
// completion cue; leaving listening directly means the session was cancelled.
func (n *Notifier) Hide(ctx context.Context) {
	previous := n.setPhase(phaseHidden)
	switch previous {
	case phaseFinalizing:
		n.playCue(cueComplete)
	case phaseListening:
		n.playCue(cueCancel)
	}
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// FocusedMonitor returns the monitor captured when the session began.
func (n *Notifier) FocusedMonitor() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focusedMonitor
}

func (n *Notifier) setPhase(next phase) phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	previous := n.phase
	n.phase = next
	return previous
}

// ensureFocusedMonitor resolves and caches the focused monitor once per session.
func (n *Notifier) ensureFocusedMonitor(ctx context.Context) {
	n.mu.Lock()
	alreadySet := n.focusedMonitor != ""
	n.mu.Unlock()
	if alreadySet {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		n.log("indicator focused monitor query failed", err)
		return
	}

	n.mu.Lock()
	n.focusedMonitor = monitor
	n.mu.Unlock()
}

// notify dispatches indicator output through the configured backend. The
// desktop backend keeps summary and body separate; Hyprland notifications
// are single-line, so the body wins when present.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, summary, body string) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, timeoutMS, summary, body, icon == 3)
	}
	text := summary
	if body != "" {
		text = body
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID,
// so interim updates replace instead of stacking.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, summary, body string, urgent bool) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "voxkey-indicator"
	}

	id, err := desktopNotification{
		AppName:   appName,
		ReplaceID: replaceID,
		Summary:   summary,
		Body:      body,
		Urgent:    urgent,
		TimeoutMS: timeoutMS,
	}.send(ctx)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := emitCue(kind, n.cfg); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}

// truncateInterim keeps interim notifications to a readable single line.
func truncateInterim(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const limit = 96
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return "…" + string(runes[len(runes)-limit:])
}
