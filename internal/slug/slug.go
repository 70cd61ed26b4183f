// Package slug builds URL handles and case-folded lookup keys for place names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9_\s-]`)
	separators   = regexp.MustCompile(`[-\s]+`)
)

// Make turns s into a lower-case ASCII handle: diacritics are stripped,
// punctuation dropped and runs of spaces or dashes collapsed to one dash.
func Make(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}
	ascii = strings.ToLower(ascii)
	ascii = invalidChars.ReplaceAllString(ascii, "")
	ascii = separators.ReplaceAllString(strings.TrimSpace(ascii), "-")
	return strings.Trim(ascii, "-_")
}

// Fold returns the Unicode case-folded form of s used for case-insensitive lookups.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Admin2 builds the handle of a second-level division: administrative stop
// words are removed first, falling back to the full name when nothing is left.
func Admin2(name string) string {
	if s := Make(Admin2Stopwords.Trim(name)); s != "" {
		return s
	}
	return Make(name)
}
