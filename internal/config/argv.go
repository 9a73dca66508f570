package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a shell-style command string into argv form for the
// clipboard and paste commands. It understands single and double quotes
// and backslash escapes; it does not do variable expansion. Empty input
// and lines starting with "#" yield no argv.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var (
		argv    []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	commit := func() {
		if inWord {
			argv = append(argv, word.String())
			word.Reset()
			inWord = false
		}
	}

	for _, r := range input {
		if escaped {
			word.WriteRune(r)
			inWord = true
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			commit()
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("command %q ends mid-escape", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("command %q has an unterminated quote", input)
	}

	commit()
	return argv, nil
}

// mustParseArgv is for compiled-in defaults that are known to be valid.
func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
