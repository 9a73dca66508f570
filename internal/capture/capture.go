// Package capture streams microphone PCM to the recognition gateway and
// surfaces transcript events tagged final/non-final.
package capture

import (
	"fmt"

	"github.com/voxkey/voxkey/internal/settings"
)

// FailureCode is the closed vocabulary of recognizer error events.
type FailureCode string

const (
	FailureNoSpeech           FailureCode = "no-speech"
	FailureAudioUnavailable   FailureCode = "audio-capture-unavailable"
	FailurePermissionDenied   FailureCode = "permission-denied"
	FailureNetwork            FailureCode = "network"
	FailureServiceUnavailable FailureCode = "service-unavailable"
)

// Failure is a recognizer error event in error form.
type Failure struct {
	Code   FailureCode
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return "recognition failed: " + string(f.Code)
	}
	return fmt.Sprintf("recognition failed: %s (%s)", f.Code, f.Detail)
}

// Alternative is one recognition hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Event is one transcript update from the gateway. Non-final events are
// replaced by later ones; final events are committed segments.
type Event struct {
	Final        bool
	Alternatives []Alternative
}

// Transcript returns the top hypothesis text.
func (e Event) Transcript() string {
	if len(e.Alternatives) == 0 {
		return ""
	}
	return e.Alternatives[0].Transcript
}

// StreamConfig is the settings subset the recognizer consumes at start time.
type StreamConfig struct {
	Language        string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
	SampleRate      int
}

// StreamConfigFrom derives the recognizer configuration from a settings
// snapshot. Changing any of these requires a stream restart; everything else
// in the snapshot is irrelevant to the gateway.
func StreamConfigFrom(s settings.Settings) StreamConfig {
	return StreamConfig{
		Language:        s.Language,
		Continuous:      s.Continuous,
		InterimResults:  s.ShowInterim,
		MaxAlternatives: s.MaxAlternatives,
		SampleRate:      s.AudioQuality.SampleRate(),
	}
}
