package batch

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"namewise/pkg/types"
)

var pathUnsafe = strings.NewReplacer("/", "_", ":", "_", `\`, "_")

// Sanitize makes a suggestion usable as a base name: path separators and
// colons become underscores, and a blank suggestion becomes
// Renamed_File_NNN with a random three-digit number.
func Sanitize(suggestion string) string {
	name := strings.TrimSpace(pathUnsafe.Replace(suggestion))
	if name == "" {
		return fmt.Sprintf("Renamed_File_%d", rand.IntN(900)+100)
	}
	return name
}

// FallbackName derives a suggestion from the current name without any
// analysis: the stem with underscores and hyphens turned into spaces, in
// title case.
func FallbackName(entry types.FileEntry) string {
	stem := strings.NewReplacer("_", " ", "-", " ").Replace(entry.Stem())
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
