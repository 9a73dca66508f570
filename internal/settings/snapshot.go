package settings

import (
	"encoding/json"
	"time"
)

// SnapshotFormatVersion tags exported backup blobs.
const SnapshotFormatVersion = "1"

// Snapshot is the user-facing backup file shape. Only the settings field is
// validated on import; the rest is informational.
type Snapshot struct {
	FormatVersion     string         `json:"formatVersion"`
	ExportedAtEpochMs int64          `json:"exportedAtEpochMs"`
	Settings          map[string]any `json:"settings"`
}

// EncodeSnapshot serializes a settings value for user-initiated backup.
func EncodeSnapshot(s Settings, now time.Time) ([]byte, error) {
	snap := Snapshot{
		FormatVersion:     SnapshotFormatVersion,
		ExportedAtEpochMs: now.UnixMilli(),
		Settings:          s.Record(),
	}
	return json.MarshalIndent(snap, "", "  ")
}

// DecodeSnapshot parses a backup blob and returns the sanitized settings it
// carries. The settings field must be present and be a structured record.
func DecodeSnapshot(blob []byte) (Settings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return Settings{}, &ImportError{Reason: "malformed file: not a JSON object"}
	}

	rawSettings, ok := raw["settings"]
	if !ok {
		return Settings{}, &ImportError{Reason: "malformed file: missing settings field"}
	}

	var record map[string]any
	if err := json.Unmarshal(rawSettings, &record); err != nil {
		return Settings{}, &ImportError{Reason: "malformed file: settings is not a record"}
	}

	return Sanitize(record), nil
}
