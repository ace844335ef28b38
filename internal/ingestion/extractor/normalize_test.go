package extractor

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"
)

var normalizeSamples = []string{
	"",
	"hello",
	"  leading and trailing  ",
	"a\x00b\x00",
	"line one   \nline two\t\t\n\n\n\n\nline three",
	"windows\r\nline\r\n\r\n\r\n\r\nend\r",
	"tabs\t\tand  spaces   mixed \t here",
	" \n \n \n text \n \n \n ",
	"\x00\x00\x00",
	"unicode: caffè  ≠  tea  \nnext",
	"keep\x01control\x7fchars",
	"# Title\n\n- item one\n- item two  \n\n\n\n> quote",
}

func TestNormalizeCollapsesNoise(t *testing.T) {
	cases := map[string]string{
		"line one   \nline two\t\t\n\n\n\n\nline three": "line one\nline two\n\nline three",
		"windows\r\nline\r\n\r\n\r\n\r\nend\r":          "windows\nline\n\nend",
		"tabs\t\tand  spaces   mixed \t here":           "tabs and spaces mixed here",
		"a\x00b\x00":                                     "ab",
		"   \n\n  ":                                      "",
		"single\ttab kept":                               "single\ttab kept",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) got=%q want=%q", in, got, want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range normalizeSamples {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestNormalizeOnlyRemovesWhitespaceAndNUL(t *testing.T) {
	significant := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r == 0 || unicode.IsSpace(r) {
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	}
	for _, in := range normalizeSamples {
		out := Normalize(in)
		if utf8.RuneCountInString(out) > utf8.RuneCountInString(in) {
			t.Fatalf("normalize grew %q to %q", in, out)
		}
		if significant(out) != significant(in) {
			t.Fatalf("normalize altered content of %q: %q", in, out)
		}
	}
}

func TestUsable(t *testing.T) {
	if Usable("", 1) {
		t.Fatalf("empty text must not be usable")
	}
	if !Usable("ciao", 0) {
		t.Fatalf("non-empty text with no threshold must be usable")
	}
	if Usable(strings.Repeat("x", 49), 50) || !Usable(strings.Repeat("è", 50), 50) {
		t.Fatalf("threshold must count runes")
	}
}
