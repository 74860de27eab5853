package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/roster"
)

// Options configures a reconciliation.
type Options struct {
	Threshold int
	Marker    string // written into claiming rows; defaults to model.DefaultMarker
}

// Match records one accepted claim.
type Match struct {
	List      int    // index into the check-in lists
	Index     int    // index into that list
	Row       int    // sheet row of the claiming check-in row
	Candidate string // raw candidate text
	Key       string // roster key claimed
	Score     int
}

// Result is the outcome of Reconcile.
type Result struct {
	Lists     [][]model.CheckinRow // the input lists, annotated in place
	Remaining *roster.Pool         // entries nobody claimed
	Matches   []Match              // accepted claims in claim order
}

// Reconcile loads entries into a fresh pool and runs every check-in list
// against it, list by list and row by row. Rows with a blank candidate are
// skipped. An accepted row gets the marker and its roster key is removed
// before the next row is examined.
func Reconcile(entries []model.RosterEntry, lists [][]model.CheckinRow, opts Options) (*Result, error) {
	if err := ValidateThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	marker := opts.Marker
	if marker == "" {
		marker = model.DefaultMarker
	}

	pool := roster.Load(entries)
	res := &Result{Lists: lists, Remaining: pool}
	log := zap.L().With(zap.Int("threshold", opts.Threshold))

	for li, rows := range lists {
		for ri := range rows {
			row := &rows[ri]
			if strings.TrimSpace(row.Candidate) == "" {
				continue
			}

			out := Resolve(row.Candidate, pool, opts.Threshold)
			if !out.Accepted {
				continue
			}

			row.Annotation = marker
			pool.Remove(out.Key)
			res.Matches = append(res.Matches, Match{
				List:      li,
				Index:     ri,
				Row:       row.Row,
				Candidate: row.Candidate,
				Key:       out.Key,
				Score:     out.Score,
			})
			log.Debug("reconcile: claimed",
				zap.Int("list", li),
				zap.Int("row", row.Row),
				zap.String("candidate", row.Candidate),
				zap.String("key", out.Key),
				zap.Int("score", out.Score),
			)
		}
	}

	return res, nil
}
