package session

import (
	"context"

	"github.com/voxkey/voxkey/internal/settings"
)

// MicConfig carries the capture parameters the microphone needs.
type MicConfig struct {
	SampleRate       int
	NoiseSuppression bool
}

// MicStream is a live microphone capture. Chunks closes after Stop.
type MicStream interface {
	Chunks() <-chan []byte
	Stop() error
}

// Microphone opens capture streams.
type Microphone interface {
	Start(ctx context.Context, cfg MicConfig) (MicStream, error)
}

// Committer inserts finished text at the user's cursor.
type Committer interface {
	Commit(ctx context.Context, text string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(ctx context.Context, text string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error { return f(ctx, text) }

// Archiver records finished transcripts.
type Archiver interface {
	Append(ctx context.Context, text string) error
}

// ArchiveFunc adapts a function to the Archiver interface.
type ArchiveFunc func(ctx context.Context, text string) error

func (f ArchiveFunc) Append(ctx context.Context, text string) error { return f(ctx, text) }

// Indicator shows session state to the user.
type Indicator interface {
	ShowListening(ctx context.Context)
	ShowFinalizing(ctx context.Context)
	ShowInterim(ctx context.Context, text string)
	ShowError(ctx context.Context, text string)
	Hide(ctx context.Context)
	Apply(s settings.Settings)
}

type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)       {}
func (noopIndicator) ShowFinalizing(context.Context)      {}
func (noopIndicator) ShowInterim(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)   {}
func (noopIndicator) Hide(context.Context)                {}
func (noopIndicator) Apply(settings.Settings)             {}
