package session

import (
	"context"
	"strings"
	"sync"

	"github.com/voxkey/voxkey/internal/capture"
	"github.com/voxkey/voxkey/internal/settings"
	"github.com/voxkey/voxkey/internal/transcript"
)

// eventSink drains recognition events for one session, tracking final
// segments and reacting to controls and auto-insert as they arrive.
type eventSink struct {
	done chan struct{}

	mu        sync.Mutex
	segments  []string
	committed int
}

// consumeEvents starts draining the stream's event channel. The returned
// sink's done channel closes when the upstream event channel does.
func (c *Controller) consumeEvents(ctx context.Context, stream capture.Session, snap settings.Settings, opts transcript.Options) *eventSink {
	sink := &eventSink{done: make(chan struct{})}

	go func() {
		defer close(sink.done)
		for event := range stream.Events() {
			text := event.Transcript()
			if text == "" {
				continue
			}

			if !event.Final {
				if snap.ShowInterim {
					c.indicator.ShowInterim(ctx, text)
				}
				continue
			}

			if snap.VoiceCommands {
				if control, ok := transcript.ParseControl(text); ok {
					sink.handleControl(c, control)
					continue
				}
			}

			sink.mu.Lock()
			sink.segments = append(sink.segments, text)
			sink.mu.Unlock()

			if snap.AutoInsert {
				processed := transcript.Process(text, opts)
				if processed == "" {
					continue
				}
				if err := c.commit.Commit(ctx, processed); err != nil {
					c.logger.Warn("auto insert failed", "error", err.Error())
					continue
				}
				sink.mu.Lock()
				sink.committed = len(sink.segments)
				sink.mu.Unlock()
			}
		}
	}()

	return sink
}

func (s *eventSink) handleControl(c *Controller, control transcript.Control) {
	switch control {
	case transcript.ControlStop:
		c.Stop()
	case transcript.ControlCancel:
		c.Cancel()
	case transcript.ControlUndo:
		s.mu.Lock()
		// Segments already inserted cannot be unsaid; only drop pending ones.
		if len(s.segments) > s.committed {
			s.segments = s.segments[:len(s.segments)-1]
		}
		s.mu.Unlock()
	}
}

// remaining assembles the segments not yet committed by auto-insert.
func (s *eventSink) remaining(opts transcript.Options) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed >= len(s.segments) {
		return ""
	}
	return transcript.Assemble(s.segments[s.committed:], opts)
}

// fullText joins every final segment for history recording.
func (s *eventSink) fullText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(strings.Join(s.segments, " "))
}

func (s *eventSink) segmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}
