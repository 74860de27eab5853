package reconcile

import (
	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/roster"
)

// AllMatchedSentinel is the only report row when nothing is left unmatched.
const AllMatchedSentinel = "All rows matched."

// ReportHeader is the header row of the unmatched report.
var ReportHeader = []string{"Name", "Original Row Data"}

// BuildReport renders the pool's remaining entries in insertion order.
func BuildReport(pool *roster.Pool) []model.ReportRow {
	return ReportRows(pool.Entries())
}

// ReportRows renders entries as [name, original row...]. An empty input
// yields the single AllMatchedSentinel row.
func ReportRows(entries []model.RosterEntry) []model.ReportRow {
	if len(entries) == 0 {
		return []model.ReportRow{{model.TextCell(AllMatchedSentinel)}}
	}

	rows := make([]model.ReportRow, 0, len(entries))
	for _, e := range entries {
		row := make(model.ReportRow, 0, len(e.Row)+1)
		row = append(row, model.TextCell(e.DisplayName()))
		row = append(row, e.Row...)
		rows = append(rows, row)
	}
	return rows
}
