// Package fuzzy scores how close two names are on a 0-100 scale.
package fuzzy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey reduces a name to its matching identity: NFC-composed,
// trimmed and lower-cased with full Unicode case mapping. Diacritics are
// kept, so "Öz" and "Oz" remain distinct keys.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	if s == "" {
		return ""
	}
	// Casers carry state and must not be shared across goroutines.
	return cases.Lower(language.Und).String(s)
}
