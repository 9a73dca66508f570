package settings

// Patch is a typed partial update. Nil fields are left at their current
// canonical value when the patch is applied.
type Patch struct {
	Language          *string
	AutoInsert        *bool
	Continuous        *bool
	ShowInterim       *bool
	VoiceCommands     *bool
	AutoPunctuation   *bool
	NoiseSuppression  *bool
	AudioQuality      *Quality
	MaxAlternatives   *int
	DataRetentionDays *int
	IndicatorPosition *Position
}

// Record converts the set fields into record form for the sanitize pipeline.
func (p Patch) Record() map[string]any {
	record := map[string]any{}
	if p.Language != nil {
		record[KeyLanguage] = *p.Language
	}
	if p.AutoInsert != nil {
		record[KeyAutoInsert] = *p.AutoInsert
	}
	if p.Continuous != nil {
		record[KeyContinuous] = *p.Continuous
	}
	if p.ShowInterim != nil {
		record[KeyShowInterim] = *p.ShowInterim
	}
	if p.VoiceCommands != nil {
		record[KeyVoiceCommands] = *p.VoiceCommands
	}
	if p.AutoPunctuation != nil {
		record[KeyAutoPunctuation] = *p.AutoPunctuation
	}
	if p.NoiseSuppression != nil {
		record[KeyNoiseSuppression] = *p.NoiseSuppression
	}
	if p.AudioQuality != nil {
		record[KeyAudioQuality] = string(*p.AudioQuality)
	}
	if p.MaxAlternatives != nil {
		record[KeyMaxAlternatives] = *p.MaxAlternatives
	}
	if p.DataRetentionDays != nil {
		record[KeyDataRetentionDays] = *p.DataRetentionDays
	}
	if p.IndicatorPosition != nil {
		record[KeyIndicatorPosition] = string(*p.IndicatorPosition)
	}
	return record
}

// knownKeys guards control-surface updates against typos: unknown keys are a
// caller error there, unlike persisted records where they are dropped.
var knownKeys = map[string]struct{}{
	KeyLanguage:          {},
	KeyAutoInsert:        {},
	KeyContinuous:        {},
	KeyShowInterim:       {},
	KeyVoiceCommands:     {},
	KeyAutoPunctuation:   {},
	KeyNoiseSuppression:  {},
	KeyAudioQuality:      {},
	KeyMaxAlternatives:   {},
	KeyDataRetentionDays: {},
	KeyIndicatorPosition: {},
}

// ValidateKey rejects updates addressed to a field that does not exist.
func ValidateKey(key string) error {
	if _, ok := knownKeys[key]; !ok {
		return &ValidationError{Reason: "unknown settings key " + key}
	}
	return nil
}
