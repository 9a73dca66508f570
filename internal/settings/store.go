package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/voxkey/voxkey/internal/storage"
)

// Notifier fans a new settings snapshot out to subscribed contexts. Each
// delivery carries its own failure boundary; one unreachable target must not
// abort delivery to the rest.
type Notifier interface {
	Broadcast(ctx context.Context, s Settings) []DeliveryResult
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, s Settings) []DeliveryResult

func (f NotifierFunc) Broadcast(ctx context.Context, s Settings) []DeliveryResult {
	return f(ctx, s)
}

// Store is the single source of truth for user settings. All mutation goes
// through sanitize→persist→notify; saves are serialized by the store mutex,
// so a slow save can never clobber a later one with a stale value.
type Store struct {
	kv       storage.KV
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	current Settings
	loaded  bool
}

// NewStore constructs a settings store over its persistence and fan-out
// collaborators. A nil notifier disables fan-out; a nil logger logs nowhere.
func NewStore(kv storage.KV, notifier Notifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		kv:       kv,
		notifier: notifier,
		logger:   logger,
		current:  Default(),
	}
}

// Current returns the canonical settings snapshot.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load reads the persisted record, migrating a legacy record exactly once
// when no current record exists. It never fails outward: any persistence
// error degrades to compiled-in defaults and is logged as recoverable.
func (s *Store) Load(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.kv.Get(ctx, StorageKey, LegacyStorageKey)
	if err != nil {
		s.logger.Warn("settings load failed; using defaults", "error", err.Error())
		s.current = Default()
		s.loaded = true
		return s.current
	}

	if raw, ok := records[StorageKey]; ok {
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			s.logger.Warn("settings record is corrupt; using defaults", "error", err.Error())
			s.current = Default()
		} else {
			// A current-shaped record may still carry stale values from an
			// older version; sanitize on every load.
			s.current = Sanitize(record)
		}
		s.loaded = true
		return s.current
	}

	if raw, ok := records[LegacyStorageKey]; ok {
		s.current = s.migrateLegacyLocked(ctx, raw)
		s.loaded = true
		return s.current
	}

	s.current = Default()
	s.loaded = true
	if err := s.persistLocked(ctx, s.current); err != nil {
		s.logger.Warn("first-install settings write failed", "error", err.Error())
	}
	return s.current
}

// migrateLegacyLocked translates, persists, and deletes a legacy record.
// Persistence failures leave the legacy record in place for the next load.
func (s *Store) migrateLegacyLocked(ctx context.Context, raw []byte) Settings {
	migrated := Sanitize(TranslateLegacy(raw))

	if err := s.persistLocked(ctx, migrated); err != nil {
		s.logger.Warn("legacy settings migration write failed", "error", err.Error())
		return migrated
	}
	if err := s.kv.Remove(ctx, LegacyStorageKey); err != nil {
		s.logger.Warn("legacy settings cleanup failed", "error", err.Error())
	}
	s.logger.Info("migrated legacy settings record")
	return migrated
}

// Save merges a typed patch over the canonical value, persists the sanitized
// result, and fans it out. On persistence failure the canonical value is
// unchanged and the old value remains authoritative.
func (s *Store) Save(ctx context.Context, patch Patch) (Settings, error) {
	return s.SaveRecord(ctx, patch.Record())
}

// SaveRecord is Save for record-form partial updates (IPC, import).
func (s *Store) SaveRecord(ctx context.Context, partial map[string]any) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Record()
	for key, value := range partial {
		merged[key] = value
	}
	next := Sanitize(merged)

	if err := s.persistLocked(ctx, next); err != nil {
		return s.current, &PersistenceError{Op: "save", Err: err}
	}

	s.current = next
	s.broadcastLocked(ctx, next)
	return next, nil
}

// Export serializes the canonical settings for user-initiated backup.
func (s *Store) Export(now time.Time) ([]byte, error) {
	return EncodeSnapshot(s.Current(), now)
}

// Import replaces the canonical settings with a sanitized backup snapshot.
// A malformed blob returns ImportError and leaves the canonical value alone;
// fields absent from the snapshot take their defaults.
func (s *Store) Import(ctx context.Context, blob []byte) (Settings, error) {
	imported, err := DecodeSnapshot(blob)
	if err != nil {
		return s.Current(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persistLocked(ctx, imported); err != nil {
		return s.current, &PersistenceError{Op: "import", Err: err}
	}

	s.current = imported
	s.broadcastLocked(ctx, imported)
	return imported, nil
}

// persistLocked writes the whole record; the write completes (or fails)
// before any notification is sent.
func (s *Store) persistLocked(ctx context.Context, value Settings) error {
	encoded, err := json.Marshal(value.Record())
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, map[string][]byte{StorageKey: encoded})
}

// broadcastLocked delivers the new snapshot to every subscribed context.
// Delivery failures are expected races, logged at debug and contained here.
func (s *Store) broadcastLocked(ctx context.Context, value Settings) {
	if s.notifier == nil {
		return
	}
	for _, result := range s.notifier.Broadcast(ctx, value) {
		if result.OK {
			continue
		}
		s.logger.Debug("settings delivery skipped",
			"target", result.Target,
			"error", errString(result.Err),
		)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
