package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// Casing cleanup for recognizer output that arrives all-lowercase:
// sentence starts and the standalone pronoun "I".

// nonTerminalAbbreviations end with a period that does not end a sentence.
var nonTerminalAbbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {},
	"jr": {}, "sr": {}, "vs": {}, "etc": {},
	"e.g": {}, "i.e": {}, "cf": {},
	"min": {}, "hr": {}, "oz": {}, "lb": {},
}

var pronounContraction = regexp.MustCompile(`\bi('(?:m|d|ll|ve|re|s))\b`)

func capitalizeSentences(text string) string {
	runes := []rune(text)

	var out strings.Builder
	out.Grow(len(text))

	atStart := true
	for i, r := range runes {
		if atStart && unicode.IsLetter(r) {
			if !startsWithAbbreviation(runes, i) {
				r = unicode.ToUpper(r)
			}
			atStart = false
		}
		out.WriteRune(r)

		switch r {
		case '!', '?', '\n':
			atStart = true
		case '.':
			if endsSentence(runes, i) {
				atStart = true
			}
		}
	}

	result := pronounContraction.ReplaceAllString(out.String(), "I$1")
	return capitalizePronounI(result)
}

// endsSentence classifies the period at idx: decimals, embedded periods
// (initialisms, domains) and known abbreviations do not end a sentence.
func endsSentence(runes []rune, idx int) bool {
	if idx > 0 && idx+1 < len(runes) &&
		unicode.IsDigit(runes[idx-1]) && unicode.IsDigit(runes[idx+1]) {
		return false
	}
	if idx+1 < len(runes) {
		next := runes[idx+1]
		if unicode.IsLetter(next) || unicode.IsDigit(next) || next == '.' {
			return false
		}
	}

	token := strings.ToLower(tokenBefore(runes, idx))
	if _, ok := nonTerminalAbbreviations[strings.Trim(token, ".")]; ok {
		return false
	}
	// Single letters before a period read as initials ("j. smith").
	if len([]rune(strings.Trim(token, "."))) == 1 {
		return false
	}
	return true
}

// startsWithAbbreviation keeps tokens like "e.g." lowercase at sentence starts.
func startsWithAbbreviation(runes []rune, idx int) bool {
	end := idx
	for end < len(runes) {
		if r := runes[end]; unicode.IsLetter(r) || r == '.' {
			end++
			continue
		}
		break
	}
	token := strings.Trim(strings.ToLower(string(runes[idx:end])), ".")
	_, ok := nonTerminalAbbreviations[token]
	return ok
}

func tokenBefore(runes []rune, idx int) string {
	start := idx - 1
	for start >= 0 {
		if r := runes[start]; unicode.IsLetter(r) || r == '.' {
			start--
			continue
		}
		break
	}
	return string(runes[start+1 : idx])
}

var standaloneI = regexp.MustCompile(`\bi\b`)

func capitalizePronounI(text string) string {
	matches := standaloneI.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))

	last := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		out.WriteString(text[last:start])
		if partOfInitialism(text, start, end) {
			out.WriteString(text[start:end])
		} else {
			out.WriteString("I")
		}
		last = end
	}
	out.WriteString(text[last:])
	return out.String()
}

// partOfInitialism keeps the i in tokens like "i.e." lowercase.
func partOfInitialism(text string, start int, end int) bool {
	if end < len(text) && text[end] == '.' &&
		end+1 < len(text) && isASCIILetter(text[end+1]) {
		return true
	}
	if start > 0 && text[start-1] == '.' {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
