package model

import "time"

// RunStatus represents the current state of a reconciliation run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial" // finished, but at least one check-in source was skipped
	RunStatusFailed   RunStatus = "failed"
)

// RunInput describes what a run was asked to reconcile.
type RunInput struct {
	RosterPath    string   `json:"roster_path" yaml:"roster_path"`
	CheckinPaths  []string `json:"checkin_paths" yaml:"checkin_paths"`
	SheetSelector string   `json:"sheet_selector,omitempty" yaml:"sheet_selector,omitempty"`
	Threshold     int      `json:"threshold" yaml:"threshold"`
	Origin        string   `json:"origin,omitempty" yaml:"origin,omitempty"` // cli, web
}

// Run represents a single reconciliation run.
type Run struct {
	ID        string     `json:"id"`
	Input     RunInput   `json:"input"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SourceResult is the outcome for one check-in workbook.
type SourceResult struct {
	Path          string `json:"path" yaml:"path"`
	Sheet         string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	Rows          int    `json:"rows" yaml:"rows"`
	Candidates    int    `json:"candidates" yaml:"candidates"`
	Matched       int    `json:"matched" yaml:"matched"`
	AnnotatedPath string `json:"annotated_path,omitempty" yaml:"annotated_path,omitempty"`
	Skipped       bool   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
	SaveError     string `json:"save_error,omitempty" yaml:"save_error,omitempty"`
}

// ClaimRecord is one accepted match, in claim order.
type ClaimRecord struct {
	Source    string `json:"source" yaml:"source"`
	Row       int    `json:"row" yaml:"row"`
	Candidate string `json:"candidate" yaml:"candidate"`
	Key       string `json:"key" yaml:"key"`
	Score     int    `json:"score" yaml:"score"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Threshold   int            `json:"threshold" yaml:"threshold"`
	RosterSize  int            `json:"roster_size" yaml:"roster_size"`
	Duplicates  []string       `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Sources     []SourceResult `json:"sources" yaml:"sources"`
	Claims      []ClaimRecord  `json:"claims,omitempty" yaml:"claims,omitempty"`
	Matched     int            `json:"matched" yaml:"matched"`
	Unmatched   []RosterEntry  `json:"unmatched" yaml:"unmatched"`
	ReportPath  string         `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	ReportError string         `json:"report_error,omitempty" yaml:"report_error,omitempty"`
	DurationMs  int64          `json:"duration_ms" yaml:"duration_ms"`
}

// Skipped returns the sources that could not be read.
func (r *RunResult) Skipped() []SourceResult {
	var out []SourceResult
	for _, s := range r.Sources {
		if s.Skipped {
			out = append(out, s)
		}
	}
	return out
}
