package transcript

import (
	"regexp"
	"strings"
)

// Spoken commands come in two kinds: substitutions rewrite the text in
// place, controls change session state and never reach the inserted text.

// Control is a session-level spoken command.
type Control string

const (
	ControlStop   Control = "stop"
	ControlCancel Control = "cancel"
	ControlUndo   Control = "undo"
)

// substitution rewrites one spoken phrase into literal text.
type substitution struct {
	pattern *regexp.Regexp
	replace string
}

// Substitution iteration is bounded in case replacements re-create phrases.
const commandIterationLimit = 10

var substitutions = compileSubstitutions([]struct {
	phrase  string
	replace string
}{
	{"new paragraph", "\n\n"},
	{"new line", "\n"},
	{"full stop", "."},
	{"period", "."},
	{"comma", ","},
	{"question mark", "?"},
	{"exclamation mark", "!"},
	{"exclamation point", "!"},
	{"colon", ":"},
	{"semicolon", ";"},
	{"open quote", "“"},
	{"close quote", "”"},
	{"open paren", "("},
	{"close paren", ")"},
	{"hyphen", "-"},
	{"dash", " — "},
	{"ellipsis", "..."},
})

var controls = map[string]Control{
	"stop listening":   ControlStop,
	"stop dictation":   ControlStop,
	"cancel dictation": ControlCancel,
	"scratch that":     ControlUndo,
	"delete that":      ControlUndo,
}

// spacing fixups applied after substitution: punctuation binds to the word
// before it, newlines swallow surrounding spaces.
var (
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:)”])`)
	spaceAroundBreak = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	spaceAfterOpen   = regexp.MustCompile(`([(“])\s+`)
	collapsedSpaces  = regexp.MustCompile(`[ \t]{2,}`)
)

func compileSubstitutions(entries []struct {
	phrase  string
	replace string
}) []substitution {
	compiled := make([]substitution, 0, len(entries))
	for _, entry := range entries {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(entry.phrase) + `\b`)
		compiled = append(compiled, substitution{pattern: pattern, replace: entry.replace})
	}
	return compiled
}

// ApplyCommands rewrites spoken punctuation and layout phrases. It is
// deterministic and converges within the iteration limit.
func ApplyCommands(text string) string {
	result := text
	for i := 0; i < commandIterationLimit; i++ {
		changed := false
		for _, sub := range substitutions {
			next := sub.pattern.ReplaceAllString(result, sub.replace)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	result = spaceBeforePunct.ReplaceAllString(result, "$1")
	result = spaceAfterOpen.ReplaceAllString(result, "$1")
	result = spaceAroundBreak.ReplaceAllString(result, "\n")
	result = collapsedSpaces.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// ParseControl reports whether text is purely a session control command.
func ParseControl(text string) (Control, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = strings.Trim(normalized, ".,!? ")
	control, ok := controls[normalized]
	return control, ok
}
