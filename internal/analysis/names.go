package analysis

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxSuggestionRunes bounds the length of a cleaned suggestion.
const MaxSuggestionRunes = 80

var answerPrefixes = []string{"filename:", "file name:", "name:", "suggested name:", "suggestion:"}

// CleanSuggestion turns a raw model reply into a bare base name: first
// non-empty line, no quotes or label, no extension, single spaces, at most
// MaxSuggestionRunes runes.
func CleanSuggestion(raw string) string {
	line := ""
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	lower := strings.ToLower(line)
	for _, prefix := range answerPrefixes {
		if strings.HasPrefix(lower, prefix) {
			line = strings.TrimSpace(line[len(prefix):])
			break
		}
	}

	line = strings.Trim(line, "\"'`*“”‘’ ")
	line = stripExtension(line)
	line = strings.Join(strings.Fields(line), " ")
	line = truncate(line, MaxSuggestionRunes)
	return strings.TrimRight(line, " ._-")
}

// stripExtension drops a trailing short alphanumeric extension with at least
// one letter, so "v1.2" survives but "photo.jpg" loses ".jpg".
func stripExtension(name string) string {
	ext := filepath.Ext(name)
	if len(ext) < 2 || len(ext) > 6 || len(ext) == len(name) {
		return name
	}
	hasLetter := false
	for _, r := range ext[1:] {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case !unicode.IsDigit(r):
			return name
		}
	}
	if !hasLetter {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
