package settings

import "github.com/tidwall/gjson"

// Storage keys for the canonical record and the pre-1.x flat record.
const (
	StorageKey       = "settings.v2"
	LegacyStorageKey = "settings.v1"
)

// legacyAliases maps old flat record keys to their current field names.
// Values carried over still pass through Sanitize, so a stale legacy value
// outside a field's domain falls back to the default like any other.
var legacyAliases = map[string]string{
	"lang":          KeyLanguage,
	"autoInsert":    KeyAutoInsert,
	"continuous":    KeyContinuous,
	"interim":       KeyShowInterim,
	"commands":      KeyVoiceCommands,
	"punctuation":   KeyAutoPunctuation,
	"denoise":       KeyNoiseSuppression,
	"quality":       KeyAudioQuality,
	"alternatives":  KeyMaxAlternatives,
	"retentionDays": KeyDataRetentionDays,
	"position":      KeyIndicatorPosition,
}

// TranslateLegacy converts a raw legacy record into current record form.
// Parsing is tolerant: anything that is not a JSON object yields an empty
// record, and unrecognized legacy keys are ignored.
func TranslateLegacy(raw []byte) map[string]any {
	record := map[string]any{}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return record
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		name, ok := legacyAliases[key.String()]
		if !ok {
			// Newer-style keys may coexist in a half-migrated record.
			if _, known := knownKeys[key.String()]; !known {
				return true
			}
			name = key.String()
		}
		record[name] = value.Value()
		return true
	})

	return record
}
