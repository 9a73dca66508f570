// Package transcript turns recognized segments into insert-ready text:
// spoken-command substitution, sentence casing, and whitespace cleanup.
package transcript

import "strings"

// Options controls post-processing, derived from the settings snapshot.
type Options struct {
	VoiceCommands   bool
	AutoPunctuation bool
	TrailingSpace   bool
}

// Assemble joins final segments and applies configured normalization.
func Assemble(finalSegments []string, opts Options) string {
	if len(finalSegments) == 0 {
		return ""
	}

	joined := strings.Join(finalSegments, " ")
	text := Process(joined, opts)
	if text == "" {
		return ""
	}
	if opts.TrailingSpace {
		return text + " "
	}
	return text
}

// Process normalizes one piece of recognized text.
func Process(text string, opts Options) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	if opts.VoiceCommands {
		normalized = ApplyCommands(normalized)
	}
	if opts.AutoPunctuation {
		normalized = capitalizeSentences(normalized)
	}
	return normalized
}
