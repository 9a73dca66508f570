package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memoryKV is an in-memory persistence fake with injectable failures.
type memoryKV struct {
	mu      sync.Mutex
	records map[string][]byte
	setErr  error
	getErr  error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{records: map[string][]byte{}}
}

func (m *memoryKV) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[string][]byte{}
	for _, key := range keys {
		if raw, ok := m.records[key]; ok {
			out[key] = raw
		}
	}
	return out, nil
}

func (m *memoryKV) Set(_ context.Context, records map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	for key, raw := range records {
		m.records[key] = raw
	}
	return nil
}

func (m *memoryKV) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

func (m *memoryKV) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[key]
	return ok
}

// recordingNotifier captures every broadcast snapshot.
type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []Settings
}

func (r *recordingNotifier) Broadcast(_ context.Context, s Settings) []DeliveryResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return []DeliveryResult{{Target: "test", OK: true}}
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestLoadFirstInstallReturnsDefaults(t *testing.T) {
	kv := newMemoryKV()
	store := NewStore(kv, nil, nil)

	got := store.Load(context.Background())
	require.Equal(t, Default(), got)
	require.True(t, kv.has(StorageKey))
}

func TestLoadSanitizesStalePersistedRecord(t *testing.T) {
	kv := newMemoryKV()
	raw, err := json.Marshal(map[string]any{
		KeyLanguage:        "de-DE",
		KeyMaxAlternatives: 99,
		KeyAudioQuality:    "turbo",
	})
	require.NoError(t, err)
	kv.records[StorageKey] = raw

	store := NewStore(kv, nil, nil)
	got := store.Load(context.Background())

	require.Equal(t, "de-DE", got.Language)
	require.Equal(t, 1, got.MaxAlternatives)
	require.Equal(t, QualityMedium, got.AudioQuality)
}

func TestLoadDegradesToDefaultsOnStorageError(t *testing.T) {
	kv := newMemoryKV()
	kv.getErr = errors.New("disk gone")

	store := NewStore(kv, nil, nil)
	got := store.Load(context.Background())
	require.Equal(t, Default(), got)
}

func TestLegacyMigrationRunsOnce(t *testing.T) {
	kv := newMemoryKV()
	kv.records[LegacyStorageKey] = []byte(`{"lang":"es-ES","interim":false,"alternatives":2,"oldJunk":"x"}`)

	store := NewStore(kv, nil, nil)
	got := store.Load(context.Background())

	require.Equal(t, "es-ES", got.Language)
	require.False(t, got.ShowInterim)
	require.Equal(t, 2, got.MaxAlternatives)
	require.True(t, got.VoiceCommands)

	// Legacy key is gone and the migrated record is now canonical.
	require.False(t, kv.has(LegacyStorageKey))
	require.True(t, kv.has(StorageKey))

	again := NewStore(kv, nil, nil)
	require.Equal(t, got, again.Load(context.Background()))
}

func TestLegacyMigrationKeptWhenPersistFails(t *testing.T) {
	kv := newMemoryKV()
	kv.records[LegacyStorageKey] = []byte(`{"lang":"fr-FR"}`)
	kv.setErr = errors.New("write denied")

	store := NewStore(kv, nil, nil)
	got := store.Load(context.Background())
	require.Equal(t, "fr-FR", got.Language)

	// Legacy record survives so the next load can retry migration.
	require.True(t, kv.has(LegacyStorageKey))
}

func TestSaveMergesPersistsAndNotifies(t *testing.T) {
	kv := newMemoryKV()
	notifier := &recordingNotifier{}
	store := NewStore(kv, notifier, nil)
	store.Load(context.Background())

	lang := "ja-JP"
	continuous := true
	got, err := store.Save(context.Background(), Patch{Language: &lang, Continuous: &continuous})
	require.NoError(t, err)
	require.Equal(t, "ja-JP", got.Language)
	require.True(t, got.Continuous)
	require.True(t, got.ShowInterim)

	require.Equal(t, 1, notifier.count())
	require.Equal(t, got, notifier.snapshots[0])

	var persisted map[string]any
	require.NoError(t, json.Unmarshal(kv.records[StorageKey], &persisted))
	require.Equal(t, "ja-JP", persisted[KeyLanguage])
}

func TestSaveFailureLeavesCanonicalUnchanged(t *testing.T) {
	kv := newMemoryKV()
	notifier := &recordingNotifier{}
	store := NewStore(kv, notifier, nil)
	before := store.Load(context.Background())

	kv.setErr = errors.New("quota exceeded")
	lang := "de-DE"
	got, err := store.Save(context.Background(), Patch{Language: &lang})

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, before, got)
	require.Equal(t, before, store.Current())
	// No notification for a value that failed to persist.
	require.Equal(t, 0, notifier.count())

	// A reload against the pre-failure persisted state sees the old value.
	kv.setErr = nil
	require.Equal(t, before, NewStore(kv, nil, nil).Load(context.Background()))
}

func TestSaveRecordDropsUnknownKeys(t *testing.T) {
	store := NewStore(newMemoryKV(), nil, nil)
	store.Load(context.Background())

	got, err := store.SaveRecord(context.Background(), map[string]any{
		KeyLanguage: "en-GB",
		"sneaky":    true,
	})
	require.NoError(t, err)
	require.Equal(t, "en-GB", got.Language)
	_, ok := got.Record()["sneaky"]
	require.False(t, ok)
}

func TestExportImportRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := NewStore(kv, nil, nil)
	store.Load(context.Background())

	lang := "ko-KR"
	retention := 14
	_, err := store.Save(context.Background(), Patch{Language: &lang, DataRetentionDays: &retention})
	require.NoError(t, err)

	blob, err := store.Export(time.UnixMilli(1700000000000))
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(blob, &snap))
	require.Equal(t, SnapshotFormatVersion, snap.FormatVersion)
	require.Equal(t, int64(1700000000000), snap.ExportedAtEpochMs)

	fresh := NewStore(newMemoryKV(), nil, nil)
	fresh.Load(context.Background())
	got, err := fresh.Import(context.Background(), blob)
	require.NoError(t, err)
	require.Equal(t, "ko-KR", got.Language)
	require.Equal(t, 14, got.DataRetentionDays)
}

func TestImportRejectsMalformedBlobs(t *testing.T) {
	store := NewStore(newMemoryKV(), nil, nil)
	before := store.Load(context.Background())

	tests := []struct {
		name string
		blob string
	}{
		{name: "missing settings field", blob: `{"foo":1}`},
		{name: "settings not a record", blob: `{"settings":"yes"}`},
		{name: "not json", blob: `]]]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Import(context.Background(), []byte(tc.blob))
			var ierr *ImportError
			require.ErrorAs(t, err, &ierr)
			require.Equal(t, before, store.Current())
		})
	}
}

func TestImportDefaultsUnspecifiedFields(t *testing.T) {
	notifier := &recordingNotifier{}
	store := NewStore(newMemoryKV(), notifier, nil)
	store.Load(context.Background())

	interim := false
	_, err := store.Save(context.Background(), Patch{ShowInterim: &interim})
	require.NoError(t, err)

	got, err := store.Import(context.Background(), []byte(`{"settings":{"language":"es-ES"}}`))
	require.NoError(t, err)
	require.Equal(t, "es-ES", got.Language)
	// Import replaces wholesale: the earlier interim override is gone.
	require.True(t, got.ShowInterim)
	require.Equal(t, got, notifier.snapshots[len(notifier.snapshots)-1])
}

func TestConcurrentSavesEndConsistent(t *testing.T) {
	kv := newMemoryKV()
	store := NewStore(kv, nil, nil)
	store.Load(context.Background())

	langs := []string{"en-GB", "fr-FR", "de-DE", "it-IT", "pt-BR"}
	var wg sync.WaitGroup
	for _, lang := range langs {
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			_, err := store.Save(context.Background(), Patch{Language: &tag})
			require.NoError(t, err)
		}(lang)
	}
	wg.Wait()

	// Saves are serialized: whatever won, memory and disk agree.
	var persisted map[string]any
	require.NoError(t, json.Unmarshal(kv.records[StorageKey], &persisted))
	require.Equal(t, store.Current().Language, persisted[KeyLanguage])
	require.Contains(t, langs, store.Current().Language)
}
