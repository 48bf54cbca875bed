// Package text holds the case and diacritic insensitive comparison primitives
// every other component of the engine builds on.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinInformativeLength is the minimum number of letters a message needs before
// keyword scoring may yield a label. Shorter inputs ("hi", "ok") never classify.
const MinInformativeLength = 3

// Normalize lowercases s, strips diacritics, turns every non-alphanumeric rune
// into a space and collapses whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(stripped))
	space := true
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the whitespace separated tokens of the normalized form of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Informative reports whether s carries enough letters to be classified.
func Informative(s string) bool {
	n := 0
	for _, r := range Normalize(s) {
		if unicode.IsLetter(r) {
			n++
			if n >= MinInformativeLength {
				return true
			}
		}
	}
	return false
}

// Equal compares two strings after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Contains reports whether the normalized haystack contains phrase as a
// whole word sequence. Both arguments must already be normalized.
func Contains(haystack, phrase string) bool {
	if phrase == "" || haystack == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+phrase+" ")
}

// HasPrefixWord reports whether any word of the normalized haystack starts with stem.
func HasPrefixWord(haystack, stem string) bool {
	if stem == "" {
		return false
	}
	for _, w := range strings.Fields(haystack) {
		if strings.HasPrefix(w, stem) {
			return true
		}
	}
	return false
}

// FirstSentence returns s up to and including its first period.
// Text without a period (or starting with one) is returned whole.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "."); idx > 0 {
		return s[:idx+1]
	}
	return s
}

// EndsWithQuestion reports whether the trimmed reply ends in a question mark.
func EndsWithQuestion(s string) bool {
	return strings.HasSuffix(strings.TrimSpace(s), "?")
}
