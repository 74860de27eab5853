// Package monitoring summarizes recent reconciliation runs.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/store"
)

// maxSnapshotRuns bounds how many runs one snapshot reads.
const maxSnapshotRuns = 10000

// Snapshot holds a point-in-time view of run history.
type Snapshot struct {
	Total    int `json:"total" yaml:"total"`
	Complete int `json:"complete" yaml:"complete"`
	Partial  int `json:"partial" yaml:"partial"`
	Failed   int `json:"failed" yaml:"failed"`
	Pending  int `json:"pending" yaml:"pending"` // queued or running

	FailRate     float64 `json:"fail_rate" yaml:"fail_rate"`
	AvgMatched   float64 `json:"avg_matched" yaml:"avg_matched"`
	AvgUnmatched float64 `json:"avg_unmatched" yaml:"avg_unmatched"`
	AvgDuration  int64   `json:"avg_duration_ms" yaml:"avg_duration_ms"`
	SkippedFiles int     `json:"skipped_files" yaml:"skipped_files"`

	// RunsWithSkips counts runs of any status that skipped a check-in.
	RunsWithSkips int `json:"runs_with_skips" yaml:"runs_with_skips"`

	Lookback    time.Duration `json:"lookback" yaml:"lookback"`
	CollectedAt time.Time     `json:"collected_at" yaml:"collected_at"`
}

// Finished is the number of runs that reached a terminal status.
func (s *Snapshot) Finished() int {
	return s.Complete + s.Partial + s.Failed
}

// Collector gathers snapshots from a run store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect summarizes runs created within lookback. A zero lookback covers
// all history.
func (c *Collector) Collect(ctx context.Context, lookback time.Duration) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{Lookback: lookback, CollectedAt: now}

	filter := store.RunFilter{Limit: maxSnapshotRuns}
	if lookback > 0 {
		filter.CreatedAfter = now.Add(-lookback)
	}
	runs, err := c.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	var matched, unmatched int
	var duration int64
	var withResult int

	snap.Total = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
		case model.RunStatusPartial:
			snap.Partial++
		case model.RunStatusFailed:
			snap.Failed++
		case model.RunStatusQueued, model.RunStatusRunning:
			snap.Pending++
		}
		if r.Result == nil {
			continue
		}
		withResult++
		matched += r.Result.Matched
		unmatched += len(r.Result.Unmatched)
		duration += r.Result.DurationMs
		if n := len(r.Result.Skipped()); n > 0 {
			snap.SkippedFiles += n
			snap.RunsWithSkips++
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if withResult > 0 {
		snap.AvgMatched = float64(matched) / float64(withResult)
		snap.AvgUnmatched = float64(unmatched) / float64(withResult)
		snap.AvgDuration = duration / int64(withResult)
	}
	return snap, nil
}
