package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists records as one JSON document. Every write replaces the
// whole file through a temp-file rename, so a failed write never leaves a
// partially-updated record on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store rooted at path, ensuring its directory exists.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure storage dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (f *FileStore) Path() string { return f.path }

// Get reads the requested keys; absent keys are simply missing from the map.
func (f *FileStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if raw, ok := all[key]; ok {
			out[key] = append([]byte(nil), raw...)
		}
	}
	return out, nil
}

// Set merges the given records into the document and atomically replaces it.
func (f *FileStore) Set(ctx context.Context, records map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return err
	}
	for key, raw := range records {
		all[key] = json.RawMessage(append([]byte(nil), raw...))
	}
	return f.write(all)
}

// Remove deletes keys from the document; missing keys are not an error.
func (f *FileStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := all[key]; ok {
			delete(all, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(all)
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	content, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read store %q: %w", f.path, err)
	}

	all := map[string]json.RawMessage{}
	if len(content) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(content, &all); err != nil {
		return nil, fmt.Errorf("decode store %q: %w", f.path, err)
	}
	return all, nil
}

func (f *FileStore) write(all map[string]json.RawMessage) error {
	encoded, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("write store temp file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace store %q: %w", f.path, err)
	}
	return nil
}
