// Package settings owns the canonical user configuration: defaulting,
// sanitization, persistence, migration, and fan-out to subscribed contexts.
package settings

// Quality selects the capture quality preset.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Position places the on-screen indicator in one display corner.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// Settings is the validated user configuration. Consumers hold read-only
// snapshots; the only mutation path is the store's sanitize→persist→notify
// pipeline, which swaps the whole value.
type Settings struct {
	Language          string   `json:"language"`
	AutoInsert        bool     `json:"autoInsertOnFinalResult"`
	Continuous        bool     `json:"continuousCaptureMode"`
	ShowInterim       bool     `json:"showInterimResults"`
	VoiceCommands     bool     `json:"enableVoiceCommands"`
	AutoPunctuation   bool     `json:"enableAutoPunctuation"`
	NoiseSuppression  bool     `json:"noiseSuppression"`
	AudioQuality      Quality  `json:"audioQuality"`
	MaxAlternatives   int      `json:"maxAlternatives"`
	DataRetentionDays int      `json:"dataRetentionDays"`
	IndicatorPosition Position `json:"indicatorPosition"`
}

// Record field names as persisted and exchanged between contexts.
const (
	KeyLanguage          = "language"
	KeyAutoInsert        = "autoInsertOnFinalResult"
	KeyContinuous        = "continuousCaptureMode"
	KeyShowInterim       = "showInterimResults"
	KeyVoiceCommands     = "enableVoiceCommands"
	KeyAutoPunctuation   = "enableAutoPunctuation"
	KeyNoiseSuppression  = "noiseSuppression"
	KeyAudioQuality      = "audioQuality"
	KeyMaxAlternatives   = "maxAlternatives"
	KeyDataRetentionDays = "dataRetentionDays"
	KeyIndicatorPosition = "indicatorPosition"
)

// supportedLanguages is the recognition locale allow-list. Anything outside
// it falls back to DefaultLanguage.
var supportedLanguages = map[string]struct{}{
	"en-US": {}, "en-GB": {}, "en-AU": {}, "en-IN": {},
	"es-ES": {}, "es-MX": {},
	"fr-FR": {}, "de-DE": {}, "it-IT": {},
	"pt-BR": {}, "pt-PT": {},
	"nl-NL": {}, "pl-PL": {}, "sv-SE": {},
	"ru-RU": {}, "tr-TR": {},
	"ja-JP": {}, "ko-KR": {}, "zh-CN": {}, "zh-TW": {},
	"hi-IN": {}, "ar-SA": {},
}

const DefaultLanguage = "en-US"

const (
	minAlternatives  = 1
	maxAlternatives  = 3
	minRetentionDays = 0
	maxRetentionDays = 365
)

// Default returns the compiled-in configuration used on first install and
// whenever the persistence layer cannot be read.
func Default() Settings {
	return Settings{
		Language:          DefaultLanguage,
		AutoInsert:        false,
		Continuous:        false,
		ShowInterim:       true,
		VoiceCommands:     true,
		AutoPunctuation:   true,
		NoiseSuppression:  true,
		AudioQuality:      QualityMedium,
		MaxAlternatives:   1,
		DataRetentionDays: 0,
		IndicatorPosition: PositionTopRight,
	}
}

// LanguageSupported reports allow-list membership for a locale tag.
func LanguageSupported(tag string) bool {
	_, ok := supportedLanguages[tag]
	return ok
}

// Languages returns the supported locale tags in unspecified order.
func Languages() []string {
	tags := make([]string, 0, len(supportedLanguages))
	for tag := range supportedLanguages {
		tags = append(tags, tag)
	}
	return tags
}

// Record converts the settings value into its persisted map form.
func (s Settings) Record() map[string]any {
	return map[string]any{
		KeyLanguage:          s.Language,
		KeyAutoInsert:        s.AutoInsert,
		KeyContinuous:        s.Continuous,
		KeyShowInterim:       s.ShowInterim,
		KeyVoiceCommands:     s.VoiceCommands,
		KeyAutoPunctuation:   s.AutoPunctuation,
		KeyNoiseSuppression:  s.NoiseSuppression,
		KeyAudioQuality:      string(s.AudioQuality),
		KeyMaxAlternatives:   s.MaxAlternatives,
		KeyDataRetentionDays: s.DataRetentionDays,
		KeyIndicatorPosition: string(s.IndicatorPosition),
	}
}

// SampleRate maps the quality preset to a capture sample rate in Hz.
func (q Quality) SampleRate() int {
	switch q {
	case QualityLow:
		return 8000
	case QualityHigh:
		return 44100
	default:
		return 16000
	}
}
