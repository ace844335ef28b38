package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	blankRun     = regexp.MustCompile(`[ \t]{2,}`)
	newlineBurst = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans extracted text without touching content: NUL bytes are
// dropped, line endings unified, runs of spaces/tabs collapsed, trailing
// whitespace trimmed per line, blank-line bursts capped at one empty line and
// the whole text trimmed. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ReplaceAll(raw, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRightFunc(blankRun.ReplaceAllString(ln, " "), unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = newlineBurst.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Usable reports whether normalized text meets a minimum character count.
func Usable(text string, minChars int) bool {
	if minChars <= 0 {
		minChars = 1
	}
	return utf8.RuneCountInString(text) >= minChars
}
