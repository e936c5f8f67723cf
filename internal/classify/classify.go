// Package classify decides, from a filename alone, whether the name is an
// auto-generated or otherwise non-descriptive name worth replacing.
//
// The checks are purely lexical and ordered; the first rule that fires wins.
// False positives on descriptive names that happen to contain digit runs are
// accepted in exchange for recall.
package classify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule identifies the check that decided a verdict.
type Rule int

const (
	RuleNone Rule = iota
	RuleHidden
	RuleRecording
	RulePattern
	RuleShortStem
	RuleGenericWord
	RuleCameraPrefix
	RuleScreenshotPhrase
	RuleCopyMarker
	RuleVersionToken
)

func (r Rule) String() string {
	switch r {
	case RuleHidden:
		return "hidden file"
	case RuleRecording:
		return "screen recording name"
	case RulePattern:
		return "date, time, code or id pattern"
	case RuleShortStem:
		return "name too short"
	case RuleGenericWord:
		return "generic word"
	case RuleCameraPrefix:
		return "camera prefix"
	case RuleScreenshotPhrase:
		return "screenshot phrase"
	case RuleCopyMarker:
		return "copy marker"
	case RuleVersionToken:
		return "version token"
	default:
		return "descriptive"
	}
}

// Verdict is the outcome of classifying one filename.
type Verdict struct {
	Ambiguous bool
	Rule      Rule
	// Detail names the pattern or word that matched, if any.
	Detail string
}

func (v Verdict) String() string {
	if v.Detail == "" {
		return v.Rule.String()
	}
	return fmt.Sprintf("%s (%s)", v.Rule, v.Detail)
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

var patterns = []namedPattern{
	{"iso date", regexp.MustCompile(`(?i)\d{4}-\d{2}-\d{2}`)},
	{"loose date", regexp.MustCompile(`(?i)\d{1,2}-\d{1,2}-\d{2,4}`)},
	{"dotted time", regexp.MustCompile(`(?i)\d{2}\.\d{2}\.\d{2}`)},
	{"digit run", regexp.MustCompile(`(?i)\d{2,4}[-_]?\d{1,2}[-_]?\d{1,2}`)},
	{"recording timestamp", regexp.MustCompile(`(?i)recording at \d{4}-\d{2}-\d{2}`)},
	{"clock time", regexp.MustCompile(`(?i)\d{1,2}[:.]\d{1,2}([:.]\d{1,2})?`)},
	{"trailing time", regexp.MustCompile(`(?i)\d{2}\.\d{2}\.\d{2}$`)},
	{"camera code", regexp.MustCompile(`(?i)^[A-Za-z]{2,4}[_-]?\d{3,6}$`)},
	{"all digits", regexp.MustCompile(`(?i)^\d+$`)},
	{"uuid", regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)},
}

var genericWords = []string{
	"image", "img", "screenshot", "screen", "photo", "pic", "picture",
	"recording", "record", "video", "movie", "file", "document", "doc",
	"untitled", "unnamed", "new", "scan", "capture", "attachment",
	"download", "export", "import", "output", "print", "temp", "tmp",
}

var cameraPrefixes = []string{
	"dsc", "img", "dcim", "mov", "vid", "clip", "100canon", "gopro",
	"iphoto", "photo", "still", "frame", "mvi_", "pict",
}

var screenshotPhrases = []string{
	"screenshot", "screen shot", "screen_shot", "screensnap", "screen snap",
	"screen-snap", "screen-capture", "screen_capture",
}

var copyMarkers = []string{
	"copy", "copy of", "duplicate", " - copy", "_copy", "(copy)",
}

var versionTokens = []string{
	"v1", "v2", "v3", "ver", "version", "rev", "revision",
	" - v", "_v", "-v", "(v", "_rev", "-rev",
}

// wordSeparators join a generic word to the rest of a stem.
var wordSeparators = []string{"_", "-"}

// Stem returns name with its final extension removed.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsAmbiguous reports whether filename is a generic, non-descriptive name.
func IsAmbiguous(filename string) bool {
	return Explain(filename).Ambiguous
}

// Explain classifies filename and reports which rule decided the verdict.
func Explain(filename string) Verdict {
	if strings.HasPrefix(filename, ".") {
		return Verdict{Rule: RuleHidden}
	}

	lowerName := strings.ToLower(filename)
	if strings.Contains(lowerName, "recording at") {
		return Verdict{Ambiguous: true, Rule: RuleRecording, Detail: "recording at"}
	}
	if strings.HasPrefix(lowerName, "recording") && strings.Contains(lowerName, "20") {
		return Verdict{Ambiguous: true, Rule: RuleRecording, Detail: "recording + year"}
	}

	stem := Stem(filename)
	for _, p := range patterns {
		if p.re.MatchString(stem) {
			return Verdict{Ambiguous: true, Rule: RulePattern, Detail: p.name}
		}
	}

	if utf8.RuneCountInString(stem) < 3 {
		return Verdict{Ambiguous: true, Rule: RuleShortStem}
	}

	lower := strings.ToLower(stem)
	if word, ok := matchGenericWord(lower); ok {
		return Verdict{Ambiguous: true, Rule: RuleGenericWord, Detail: word}
	}
	for _, prefix := range cameraPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return Verdict{Ambiguous: true, Rule: RuleCameraPrefix, Detail: prefix}
		}
	}
	for _, phrase := range screenshotPhrases {
		if strings.Contains(lower, phrase) {
			return Verdict{Ambiguous: true, Rule: RuleScreenshotPhrase, Detail: phrase}
		}
	}
	for _, marker := range copyMarkers {
		if strings.Contains(lower, marker) {
			return Verdict{Ambiguous: true, Rule: RuleCopyMarker, Detail: strings.TrimSpace(marker)}
		}
	}
	if token, ok := matchVersionToken(lower); ok {
		return Verdict{Ambiguous: true, Rule: RuleVersionToken, Detail: strings.TrimSpace(token)}
	}

	return Verdict{}
}

// matchGenericWord checks whether the lowercased stem is a generic word, starts
// with one followed by a separator, ends with one preceded by a separator, or
// carries one flanked by separators.
func matchGenericWord(lower string) (string, bool) {
	for _, word := range genericWords {
		if lower == word {
			return word, true
		}
		for _, sep := range wordSeparators {
			if strings.HasPrefix(lower, word+sep) || strings.HasSuffix(lower, sep+word) {
				return word, true
			}
			for _, sep2 := range wordSeparators {
				if strings.Contains(lower, sep+word+sep2) {
					return word, true
				}
			}
		}
	}
	return "", false
}

// matchVersionToken finds the first occurrence of each token. An occurrence at
// position 0 only counts when the token itself starts with a separator.
func matchVersionToken(lower string) (string, bool) {
	for _, token := range versionTokens {
		idx := strings.Index(lower, token)
		if idx < 0 {
			continue
		}
		if idx > 0 || startsWithSeparator(token) {
			return token, true
		}
	}
	return "", false
}

func startsWithSeparator(token string) bool {
	switch token[0] {
	case ' ', '_', '-', '(':
		return true
	}
	return false
}
