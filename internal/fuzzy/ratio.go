package fuzzy

import (
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// MaxScore is the score of two identical strings.
const MaxScore = 100

// indelParams prices a substitution as a delete plus an insert, which turns
// the weighted Levenshtein distance into the insert/delete distance.
var indelParams = levenshtein.NewParams().InsCost(1).DelCost(1).SubCost(2)

// Ratio returns the normalized insert/delete similarity of a and b in
// [0, MaxScore]:
//
//	floor(100 * (len(a) + len(b) - distance) / (len(a) + len(b)))
//
// Lengths are counted in runes. Flooring keeps "Ratio(a, b) >= t" equal to
// the real-valued ratio ">= t" for every integer t. Two empty strings score
// MaxScore. Ratio is symmetric and does not normalize its inputs.
func Ratio(a, b string) int {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return MaxScore
	}
	if a == b {
		return MaxScore
	}

	d := levenshtein.Distance(a, b, indelParams)
	if d >= total {
		return 0
	}
	return MaxScore * (total - d) / total
}
