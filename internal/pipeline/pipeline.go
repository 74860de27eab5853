// Package pipeline runs one reconciliation end to end: it reads the roster
// and check-in workbooks, drives the matcher, writes the annotated copies and
// the unmatched report, and records the run.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rollcall/internal/config"
	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/reconcile"
	"github.com/sells-group/rollcall/internal/resilience"
	"github.com/sells-group/rollcall/internal/sheet"
	"github.com/sells-group/rollcall/internal/store"
)

// Pipeline orchestrates reconciliation runs.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline. st may be nil to skip run history.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Job describes one run.
type Job struct {
	RunID         string // generated when empty
	RosterPath    string
	CheckinPaths  []string // matched in this order
	SheetSelector string   // defaults to sheet.selector
	Threshold     int
	AnnotatedDir  string // annotated copies go next to their source when empty
	ReportPath    string // defaults to paths.result_dir/paths.report_name
	Origin        string
}

func (j Job) validate() error {
	if j.RosterPath == "" {
		return eris.New("pipeline: roster path is required")
	}
	if len(j.CheckinPaths) == 0 {
		return eris.New("pipeline: at least one check-in path is required")
	}
	return reconcile.ValidateThreshold(j.Threshold)
}

type columns struct {
	name, candidate, annotation int
}

func (p *Pipeline) columns() (columns, error) {
	var c columns
	var err error
	if c.name, err = sheet.ColumnIndex(p.cfg.Sheet.NameColumn); err != nil {
		return c, eris.Wrap(err, "pipeline: name column")
	}
	if c.candidate, err = sheet.ColumnIndex(p.cfg.Sheet.CandidateColumn); err != nil {
		return c, eris.Wrap(err, "pipeline: candidate column")
	}
	if c.annotation, err = sheet.ColumnIndex(p.cfg.Sheet.AnnotationColumn); err != nil {
		return c, eris.Wrap(err, "pipeline: annotation column")
	}
	return c, nil
}

func (p *Pipeline) concurrency() int {
	if p.cfg.Pipeline.Concurrency > 0 {
		return p.cfg.Pipeline.Concurrency
	}
	return 1
}

// Run executes a job. A roster failure returns a nil result and an error
// matching ErrRosterUnreadable. A report failure returns the full result
// together with an error matching ErrReportWriteFailed. Unreadable check-in
// sources are recorded on the result and do not fail the run.
func (p *Pipeline) Run(ctx context.Context, job Job) (*model.RunResult, error) {
	start := time.Now()
	if err := job.validate(); err != nil {
		return nil, err
	}
	cols, err := p.columns()
	if err != nil {
		return nil, err
	}

	if job.RunID == "" {
		job.RunID = uuid.New().String()
	}
	if job.SheetSelector == "" {
		job.SheetSelector = p.cfg.Sheet.Selector
	}
	if job.ReportPath == "" {
		job.ReportPath = filepath.Join(p.cfg.Paths.ResultDir, p.cfg.Paths.ReportName)
	}

	log := zap.L().With(zap.String("run_id", job.RunID))
	log.Info("pipeline: starting run",
		zap.String("roster", job.RosterPath),
		zap.Int("checkins", len(job.CheckinPaths)),
		zap.Int("threshold", job.Threshold),
	)

	if p.store != nil {
		input := model.RunInput{
			RosterPath:    job.RosterPath,
			CheckinPaths:  job.CheckinPaths,
			SheetSelector: job.SheetSelector,
			Threshold:     job.Threshold,
			Origin:        job.Origin,
		}
		if err := p.record(ctx, log, "create run", func(ctx context.Context) error {
			_, err := p.store.CreateRun(ctx, job.RunID, input)
			return err
		}); err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
	}
	p.setStatus(ctx, log, job.RunID, model.RunStatusRunning)

	// Roster
	entries, err := sheet.ReadRoster(job.RosterPath, sheet.RosterOptions{
		SheetName:  p.cfg.Sheet.RosterSheet,
		NameColumn: cols.name,
		SkipRows:   p.cfg.Sheet.RosterSkipRows,
	})
	if err != nil {
		srcErr := &SourceError{Kind: ErrRosterUnreadable, Path: job.RosterPath, Err: err}
		log.Error("pipeline: roster unreadable", zap.Error(err))
		p.fail(ctx, log, job.RunID, srcErr)
		return nil, srcErr
	}
	log.Info("pipeline: roster loaded", zap.Int("entries", len(entries)))

	result := &model.RunResult{
		RunID:     job.RunID,
		Threshold: job.Threshold,
		Sources:   make([]model.SourceResult, len(job.CheckinPaths)),
	}

	// Check-ins are parsed concurrently; matching below walks them in order.
	books, err := p.openCheckins(ctx, log, job, cols, result.Sources)
	if err != nil {
		p.fail(ctx, log, job.RunID, err)
		return nil, err
	}

	var lists [][]model.CheckinRow
	var listSource []int
	for i, b := range books {
		if b == nil {
			continue
		}
		lists = append(lists, b.Rows())
		listSource = append(listSource, i)
	}

	rec, err := reconcile.Reconcile(entries, lists, reconcile.Options{
		Threshold: job.Threshold,
		Marker:    p.cfg.Match.Marker,
	})
	if err != nil {
		p.fail(ctx, log, job.RunID, err)
		return nil, eris.Wrap(err, "pipeline: reconcile")
	}

	for _, m := range rec.Matches {
		si := listSource[m.List]
		result.Sources[si].Matched++
		result.Claims = append(result.Claims, model.ClaimRecord{
			Source:    job.CheckinPaths[si],
			Row:       m.Row,
			Candidate: m.Candidate,
			Key:       m.Key,
			Score:     m.Score,
		})
	}
	result.Matched = len(rec.Matches)
	result.Unmatched = rec.Remaining.Entries()
	result.RosterSize = result.Matched + len(result.Unmatched)
	for _, d := range rec.Remaining.Duplicates() {
		result.Duplicates = append(result.Duplicates, d.DisplayName())
	}
	if len(result.Duplicates) > 0 {
		log.Warn("pipeline: duplicate roster names ignored", zap.Strings("names", result.Duplicates))
	}

	if err := p.saveAnnotated(ctx, log, job, books, rec.Lists, listSource, result.Sources); err != nil {
		p.fail(ctx, log, job.RunID, err)
		return nil, err
	}

	// Report
	status := model.RunStatusComplete
	if len(result.Skipped()) > 0 {
		status = model.RunStatusPartial
	}

	var runErr error
	if err := writeReport(job.ReportPath, reconcile.BuildReport(rec.Remaining)); err != nil {
		runErr = &SourceError{Kind: ErrReportWriteFailed, Path: job.ReportPath, Err: err}
		result.ReportError = err.Error()
		status = model.RunStatusFailed
		log.Error("pipeline: report write failed", zap.String("path", job.ReportPath), zap.Error(err))
	} else {
		result.ReportPath = job.ReportPath
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if p.store != nil {
		if err := p.record(ctx, log, "store result", func(ctx context.Context) error {
			return p.store.UpdateRunResult(ctx, job.RunID, status, result)
		}); err != nil {
			log.Warn("pipeline: failed to store result", zap.Error(err))
		}
	}

	log.Info("pipeline: run complete",
		zap.String("status", string(status)),
		zap.Int("matched", result.Matched),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("skipped", len(result.Skipped())),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return result, runErr
}

// openCheckins parses every check-in workbook, filling sources by index.
// Unreadable workbooks leave a nil book and a skipped source.
func (p *Pipeline) openCheckins(ctx context.Context, log *zap.Logger, job Job, cols columns, sources []model.SourceResult) ([]*sheet.CheckinBook, error) {
	books := make([]*sheet.CheckinBook, len(job.CheckinPaths))
	opts := sheet.CheckinOptions{
		Selector:         job.SheetSelector,
		CandidateColumn:  cols.candidate,
		AnnotationColumn: cols.annotation,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for i, path := range job.CheckinPaths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			src := &sources[i]
			src.Path = path

			b, err := sheet.OpenCheckin(path, opts)
			if err != nil {
				srcErr := &SourceError{Kind: ErrCheckinUnreadable, Path: path, Err: err}
				src.Skipped = true
				src.Error = srcErr.Error()
				log.Warn("pipeline: skipping check-in", zap.String("path", path), zap.Error(err))
				return nil
			}
			books[i] = b
			src.Sheet = b.SheetName()
			src.Rows = len(b.Rows())
			src.Candidates = b.Candidates()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: open check-ins")
	}
	return books, nil
}

// saveAnnotated writes the annotated copy of every book with candidates.
// Save failures are recorded on the source.
func (p *Pipeline) saveAnnotated(ctx context.Context, log *zap.Logger, job Job, books []*sheet.CheckinBook, lists [][]model.CheckinRow, listSource []int, sources []model.SourceResult) error {
	if job.AnnotatedDir != "" {
		if err := os.MkdirAll(job.AnnotatedDir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create %s", job.AnnotatedDir)
		}
	}

	// Output paths are claimed in list order so same-named check-ins never
	// share a copy.
	taken := make(map[string]bool, len(lists))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for li, rows := range lists {
		si := listSource[li]
		b := books[si]
		if b.Candidates() == 0 {
			continue
		}
		out := claimPath(taken, sheet.AnnotatedPath(b.Path(), job.AnnotatedDir, p.cfg.Sheet.AnnotatedSuffix))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			b.Annotate(rows)
			if err := b.Save(out); err != nil {
				sources[si].SaveError = err.Error()
				log.Warn("pipeline: annotated copy not saved", zap.String("path", out), zap.Error(err))
				return nil
			}
			sources[si].AnnotatedPath = out
			return nil
		})
	}
	return eris.Wrap(g.Wait(), "pipeline: save annotated")
}

// claimPath returns path, or a numbered variant of it when an earlier source
// in the same run already claimed it.
func claimPath(taken map[string]bool, path string) string {
	dir, name := filepath.Split(path)
	for i := 1; taken[path]; i++ {
		path = filepath.Join(dir, strconv.Itoa(i)+"_"+name)
	}
	taken[path] = true
	return path
}

func writeReport(path string, rows []model.ReportRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create %s", dir)
		}
	}
	return sheet.WriteReport(path, sheet.DefaultReportSheet, reconcile.ReportHeader, rows)
}

func (p *Pipeline) setStatus(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus) {
	if p.store == nil {
		return
	}
	if err := p.record(ctx, log, "update status", func(ctx context.Context) error {
		return p.store.UpdateRunStatus(ctx, runID, status)
	}); err != nil {
		log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, runID string, cause error) {
	if p.store == nil {
		return
	}
	// The run context may already be cancelled.
	if err := p.record(context.WithoutCancel(ctx), log, "fail run", func(ctx context.Context) error {
		return p.store.FailRun(ctx, runID, cause.Error())
	}); err != nil {
		log.Warn("pipeline: failed to mark run failed", zap.Error(err))
	}
}

// record retries a run-history write while the store reports it busy.
func (p *Pipeline) record(ctx context.Context, log *zap.Logger, op string, fn func(ctx context.Context) error) error {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = func(attempt int, err error) {
		log.Warn("pipeline: retrying "+op, zap.Int("attempt", attempt), zap.Error(err))
	}
	return resilience.Do(ctx, cfg, fn)
}
