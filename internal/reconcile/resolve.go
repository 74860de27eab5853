// Package reconcile matches check-in lists against a roster pool.
//
// Matching is greedy and order dependent. Lists are processed in the order
// given and rows in source order. Each accepted row removes its roster
// entry from the pool at once, so later rows can no longer claim it even if
// they would score higher. Ties between roster keys go to the key loaded
// first. The result is deterministic for a given input order but is not a
// globally optimal assignment.
package reconcile

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/rollcall/internal/fuzzy"
	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/roster"
)

// DefaultThreshold is the minimum score accepted as a match.
const DefaultThreshold = 80

// ValidateThreshold checks that t is a usable score threshold.
func ValidateThreshold(t int) error {
	if t < 0 || t > fuzzy.MaxScore {
		return eris.Errorf("reconcile: threshold %d outside [0, %d]", t, fuzzy.MaxScore)
	}
	return nil
}

// Resolve finds the best-scoring live key for candidate and decides whether
// it clears threshold. It does not modify the pool.
func Resolve(candidate string, pool *roster.Pool, threshold int) model.MatchOutcome {
	norm := fuzzy.NormalizeKey(candidate)
	if norm == "" || pool.IsEmpty() {
		return model.MatchOutcome{}
	}

	best := model.MatchOutcome{Score: -1}
	for _, key := range pool.Keys() {
		// Strict comparison keeps the earliest key on ties.
		if s := fuzzy.Ratio(norm, key); s > best.Score {
			best.Key, best.Score = key, s
			if s == fuzzy.MaxScore {
				break
			}
		}
	}
	best.Accepted = best.Score >= threshold
	return best
}
