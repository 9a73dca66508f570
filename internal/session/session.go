// Package session coordinates one dictation lifecycle: microphone capture,
// streaming recognition, transcript post-processing, and text insertion.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/voxkey/voxkey/internal/capture"
	"github.com/voxkey/voxkey/internal/fsm"
	"github.com/voxkey/voxkey/internal/settings"
	"github.com/voxkey/voxkey/internal/transcript"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

// How long to coalesce bursts of settings changes before adopting them.
const reconfigureDelay = 200 * time.Millisecond

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.State
	Transcript string
	Cancelled  bool
	Err        error
	Segments   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller orchestrates session state transitions and side effects. It
// holds a read-only settings snapshot that is only replaced wholesale, and
// never mid-session: changes arriving while listening are adopted when the
// session ends.
type Controller struct {
	logger     *slog.Logger
	recognizer capture.Recognizer
	mic        Microphone
	commit     Committer
	indicator  Indicator
	archive    Archiver

	mu      sync.RWMutex
	state   fsm.State
	current settings.Settings
	pending *settings.Settings

	reconfigure func(func())
	actions     chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	recognizer capture.Recognizer,
	mic Microphone,
	committer Committer,
	indicator Indicator,
	archiver Archiver,
	initial settings.Settings,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if archiver == nil {
		archiver = ArchiveFunc(func(context.Context, string) error { return nil })
	}

	c := &Controller{
		logger:      logger,
		recognizer:  recognizer,
		mic:         mic,
		commit:      committer,
		indicator:   indicator,
		archive:     archiver,
		state:       fsm.StateIdle,
		current:     initial,
		actions:     make(chan action, 1),
		reconfigure: debounce.New(reconfigureDelay),
	}
	c.indicator.Apply(initial)
	return c
}

// State returns the current lifecycle state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the settings the next (or running) session uses.
func (c *Controller) Snapshot() settings.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Apply hands the controller a new settings snapshot. Adoption is debounced
// so a burst of slider changes reconfigures once, and deferred while a
// session is in flight so capture is never interrupted.
func (c *Controller) Apply(s settings.Settings) {
	c.mu.Lock()
	c.pending = &s
	c.mu.Unlock()
	c.reconfigure(c.adoptPending)
}

// adoptPending swaps in the pending snapshot when no session is running.
func (c *Controller) adoptPending() {
	c.mu.Lock()
	if c.pending == nil || c.state != fsm.StateIdle {
		c.mu.Unlock()
		return
	}
	adopted := *c.pending
	c.current = adopted
	c.pending = nil
	c.mu.Unlock()

	c.indicator.Apply(adopted)
	c.logger.Debug("settings snapshot adopted", "language", adopted.Language)
}

// Stop requests a stop+commit of the running session.
func (c *Controller) Stop() {
	select {
	case c.actions <- actionStop:
	default:
	}
}

// Cancel requests discarding the running session.
func (c *Controller) Cancel() {
	select {
	case c.actions <- actionCancel:
	default:
	}
}

// transition applies one lifecycle event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// toErrorAndReset routes through the error state back to idle.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

// Run executes one session from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	snap := c.Snapshot()
	opts := transcript.Options{
		VoiceCommands:   snap.VoiceCommands,
		AutoPunctuation: snap.AutoPunctuation,
		TrailingSpace:   true,
	}

	defer func() {
		// Changes that arrived mid-session take effect now.
		c.adoptPending()
	}()

	if err := c.transition(fsm.EventStart); err != nil {
		return c.finish(result, err)
	}

	micStream, err := c.mic.Start(ctx, MicConfig{
		SampleRate:       snap.AudioQuality.SampleRate(),
		NoiseSuppression: snap.NoiseSuppression,
	})
	if err != nil {
		c.indicator.ShowError(ctx, "Microphone unavailable")
		c.toErrorAndReset()
		return c.finish(result, err)
	}

	stream, err := c.recognizer.Start(ctx, capture.StreamConfigFrom(snap))
	if err != nil {
		_ = micStream.Stop()
		c.indicator.ShowError(ctx, "Recognition service unavailable")
		c.toErrorAndReset()
		return c.finish(result, err)
	}

	c.indicator.ShowListening(ctx)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	go pumpAudio(micStream, stream)
	events := c.consumeEvents(ctx, stream, snap, opts)

	select {
	case <-ctx.Done():
		_ = micStream.Stop()
		_ = stream.Close()
		<-events.done
		c.toErrorAndReset()
		result.Cancelled = true
		return c.finish(result, ctx.Err())

	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = micStream.Stop()
			_ = stream.Close()
			<-events.done
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return c.finish(result, nil)

		case actionStop:
			if err := c.transition(fsm.EventStop); err != nil {
				c.toErrorAndReset()
				return c.finish(result, err)
			}
			c.indicator.ShowFinalizing(ctx)

			// Stopping the microphone ends the pump, which closes the
			// upstream; the gateway then flushes remaining finals.
			_ = micStream.Stop()
			<-events.done

			if err := stream.Wait(); err != nil {
				c.indicator.ShowError(context.Background(), "Speech recognition failed")
				c.toErrorAndReset()
				return c.finish(result, err)
			}

			final := events.remaining(opts)
			result.Segments = events.segmentCount()
			result.Transcript = events.fullText()

			if final != "" {
				if err := c.commit.Commit(ctx, final); err != nil {
					c.indicator.ShowError(context.Background(), "Insert failed")
					c.toErrorAndReset()
					return c.finish(result, err)
				}
			}
			if result.Transcript != "" {
				if err := c.archive.Append(ctx, result.Transcript); err != nil {
					c.logger.Warn("history append failed", "error", err.Error())
				}
			}

			_ = c.transition(fsm.EventCommitted)
			return c.finish(result, nil)
		}
	}

	return c.finish(result, nil)
}

// finish stamps terminal bookkeeping onto the result.
func (c *Controller) finish(result Result, err error) Result {
	result.State = c.State()
	result.Err = err
	result.FinishedAt = time.Now()
	return result
}

// pumpAudio moves microphone chunks into the recognition stream until the
// microphone stops, then half-closes the stream.
func pumpAudio(mic MicStream, stream capture.Session) {
	for chunk := range mic.Chunks() {
		if err := stream.SendAudio(chunk); err != nil {
			break
		}
	}
	_ = stream.CloseSend()
}
