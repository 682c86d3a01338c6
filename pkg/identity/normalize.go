// Package identity resolves raw participant names from market feeds against
// a directory of canonical identities using order-independent token
// similarity. Raw names commonly carry a trailing mascot or nickname
// ("Florida State Seminoles") that the canonical entry omits ("Florida
// State"); the matcher handles this without a hand-maintained suffix list.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// localeVariants folds common spelling variants to a single form so that
// "St." and "State", or "Univ" and "University", compare equal. Applied
// per token after punctuation stripping.
var localeVariants = map[string]string{
	"st":   "state",
	"univ": "university",
	"intl": "international",
	"&":    "and",
	"assn": "association",
	"utd":  "united",
	"mt":   "mount",
	"ft":   "fort",
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize canonicalizes a raw display name into a comparable token form:
// lowercased, accents removed, punctuation folded to spaces, locale
// variants folded to one spelling, whitespace collapsed. Normalize is
// idempotent and returns "" only for input with no usable tokens.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '&':
			// Keep as its own token so it folds to "and".
			b.WriteString(" & ")
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	for i, tok := range fields {
		if v, ok := localeVariants[tok]; ok {
			fields[i] = v
		}
	}
	return strings.Join(fields, " ")
}

// Tokens returns the normalized form of raw split into tokens.
func Tokens(raw string) []string {
	n := Normalize(raw)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}
