// Package history keeps a JSONL log of finished transcripts with
// age-based retention.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded transcript.
type Entry struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recordedAt"`
	Text       string    `json:"text"`
}

// Log is a file-backed transcript history. Retention of zero days disables
// recording entirely; otherwise entries older than the window are pruned on
// every append.
type Log struct {
	path string

	mu            sync.Mutex
	retentionDays int
	now           func() time.Time
}

// NewLog creates a history log at path with the given retention window.
func NewLog(path string, retentionDays int) *Log {
	return &Log{
		path:          path,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// DefaultPath resolves the XDG state home location for the history log.
func DefaultPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "voxkey", "history.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "voxkey", "history.jsonl"), nil
}

// SetRetention updates the retention window. Shrinking the window takes
// effect on the next append or prune.
func (l *Log) SetRetention(days int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retentionDays = days
}

// Append records one transcript. With retention disabled it deletes any
// previously recorded entries and records nothing.
func (l *Log) Append(_ context.Context, text string) error {
	text = strings.TrimSpace(text)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.retentionDays <= 0 {
		return l.removeLocked()
	}
	if text == "" {
		return nil
	}

	entries, err := l.readLocked()
	if err != nil {
		return err
	}

	now := l.now()
	entries = retain(entries, l.cutoff(now))
	entries = append(entries, Entry{
		ID:         uuid.NewString(),
		RecordedAt: now.UTC(),
		Text:       text,
	})
	return l.writeLocked(entries)
}

// Entries returns recorded transcripts inside the retention window,
// oldest first.
func (l *Log) Entries(_ context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.retentionDays <= 0 {
		return nil, nil
	}
	entries, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	return retain(entries, l.cutoff(l.now())), nil
}

// Prune rewrites the log dropping entries outside the retention window.
// Called at daemon startup so stale entries do not outlive shrunk windows.
func (l *Log) Prune(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.retentionDays <= 0 {
		return l.removeLocked()
	}
	entries, err := l.readLocked()
	if err != nil {
		return err
	}
	return l.writeLocked(retain(entries, l.cutoff(l.now())))
}

func (l *Log) cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -l.retentionDays)
}

func retain(entries []Entry, cutoff time.Time) []Entry {
	kept := entries[:0]
	for _, entry := range entries {
		if entry.RecordedAt.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func (l *Log) readLocked() ([]Entry, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history %s: %w", l.path, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Skip lines a crashed write left behind.
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history %s: %w", l.path, err)
	}
	return entries, nil
}

func (l *Log) writeLocked(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp := l.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create history %s: %w", tmp, err)
	}

	writer := bufio.NewWriter(file)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			file.Close()
			return fmt.Errorf("encode history entry: %w", err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			file.Close()
			return fmt.Errorf("write history %s: %w", tmp, err)
		}
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush history %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close history %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace history %s: %w", l.path, err)
	}
	return nil
}

func (l *Log) removeLocked() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove history %s: %w", l.path, err)
	}
	return nil
}
