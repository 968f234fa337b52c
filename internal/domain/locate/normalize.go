package locate

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize composes Unicode (NFC), collapses whitespace runs into a single space,
// trims both ends and lower-cases.
func Normalize(s string) string {
	return normalize(s, false)
}

// NormalizeWith normalizes s the way opts asks for. Unless opts.KeepPunctuation is set,
// punctuation is treated as whitespace, so "juego, según" and "juego según" compare equal.
func NormalizeWith(s string, opts Options) string {
	return normalize(s, !opts.KeepPunctuation)
}

// Haystack joins the text tokens of a page with single spaces and normalizes the result.
func Haystack(tokens []string, opts Options) string {
	return NormalizeWith(JoinTokens(tokens), opts)
}

// JoinTokens concatenates page tokens with single-space separators.
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}

func normalize(s string, foldPunct bool) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || (foldPunct && unicode.IsPunct(r)) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// truncateRunes returns the first n runes of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
