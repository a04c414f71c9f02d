package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var upper = cases.Upper(language.Und)

// NormalizeWord folds a raw entry into its canonical key: NFKC, upper case,
// letters and digits only. "New York!" and "new  york" both become "NEWYORK".
func NormalizeWord(raw string) string {
	folded := upper.String(norm.NFKC.String(raw))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}

// NormalizeWords normalizes and de-duplicates a slice, dropping empty keys.
// Input order is preserved.
func NormalizeWords(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		w := NormalizeWord(r)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
