package audio

import (
	"context"
	"log/slog"

	"github.com/voxkey/voxkey/internal/session"
)

// Microphone adapts Pulse device selection and capture to the session layer.
type Microphone struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// Start selects a source honoring the session's capture parameters and opens
// a record stream on it.
func (m *Microphone) Start(ctx context.Context, cfg session.MicConfig) (session.MicStream, error) {
	selection, err := SelectDevice(ctx, m.Input, m.Fallback, cfg.NoiseSuppression)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && m.Logger != nil {
		m.Logger.Warn("audio device fallback", "warning", selection.Warning)
	}

	capture, err := StartCapture(ctx, selection.Device, CaptureOptions{
		SampleRate:       cfg.SampleRate,
		NoiseSuppression: cfg.NoiseSuppression,
	})
	if err != nil {
		return nil, err
	}

	if m.Logger != nil {
		m.Logger.Debug("capture started",
			"device", selection.Device.ID,
			"sample_rate", cfg.SampleRate,
			"processed_source", selection.Device.Processed())
	}
	return capture, nil
}
