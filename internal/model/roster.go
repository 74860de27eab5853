package model

// DefaultMarker is written into the annotation slot of a check-in row that
// claimed a roster entry.
const DefaultMarker = "matched"

// RosterEntry is one expected name from the roster workbook.
type RosterEntry struct {
	Key  string `json:"key" yaml:"key"`   // normalized identity, never empty
	Name string `json:"name" yaml:"name"` // trimmed display name
	Row  []Cell `json:"row" yaml:"row"`   // verbatim source row
}

// DisplayName returns Name, falling back to Key.
func (e RosterEntry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Key
}

// CheckinRow is one row of a check-in list as seen by the matcher.
type CheckinRow struct {
	Row        int    `json:"row"`                  // 0-based sheet row, used for write-back
	Candidate  string `json:"candidate"`            // raw candidate-name cell text
	Annotation string `json:"annotation,omitempty"` // set to the marker when the row claims an entry
}

// Annotated reports whether the row claimed a roster entry.
func (r CheckinRow) Annotated() bool {
	return r.Annotation != ""
}

// MatchOutcome is the resolver's verdict for one candidate.
type MatchOutcome struct {
	Key      string `json:"key,omitempty"`
	Score    int    `json:"score"`
	Accepted bool   `json:"accepted"`
}

// ReportRow is one output row of the unmatched report.
type ReportRow []Cell
