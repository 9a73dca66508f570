package settings

import (
	"math"
	"strconv"
	"strings"
)

// Sanitize converts an arbitrary record into a fully-populated Settings value.
// Unknown keys are dropped, missing keys take defaults, and values outside a
// field's domain fall back to that field's default. Pure and idempotent:
// Sanitize(s.Record()) == s for any sanitized s.
func Sanitize(record map[string]any) Settings {
	out := Default()
	if len(record) == 0 {
		return out
	}

	if lang, ok := asString(record[KeyLanguage]); ok && LanguageSupported(lang) {
		out.Language = lang
	}
	if v, ok := asBool(record[KeyAutoInsert]); ok {
		out.AutoInsert = v
	}
	if v, ok := asBool(record[KeyContinuous]); ok {
		out.Continuous = v
	}
	if v, ok := asBool(record[KeyShowInterim]); ok {
		out.ShowInterim = v
	}
	if v, ok := asBool(record[KeyVoiceCommands]); ok {
		out.VoiceCommands = v
	}
	if v, ok := asBool(record[KeyAutoPunctuation]); ok {
		out.AutoPunctuation = v
	}
	if v, ok := asBool(record[KeyNoiseSuppression]); ok {
		out.NoiseSuppression = v
	}
	if v, ok := asString(record[KeyAudioQuality]); ok {
		switch Quality(v) {
		case QualityLow, QualityMedium, QualityHigh:
			out.AudioQuality = Quality(v)
		}
	}
	if v, ok := asInt(record[KeyMaxAlternatives]); ok && v >= minAlternatives && v <= maxAlternatives {
		out.MaxAlternatives = v
	}
	if v, ok := asInt(record[KeyDataRetentionDays]); ok && v >= minRetentionDays && v <= maxRetentionDays {
		out.DataRetentionDays = v
	}
	if v, ok := asString(record[KeyIndicatorPosition]); ok {
		switch Position(v) {
		case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight:
			out.IndicatorPosition = Position(v)
		}
	}

	return out
}

// asString accepts string values only; whitespace is trimmed.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// asBool coerces bools plus the common persisted spellings of truthiness.
func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off":
			return false, true
		}
	case float64:
		if t == 0 {
			return false, true
		}
		if t == 1 {
			return true, true
		}
	}
	return false, false
}

// asInt coerces integral values from the shapes JSON decoding produces.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
