package sheet

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rollcall/internal/model"
)

// CheckinOptions configures check-in reading and write-back.
type CheckinOptions struct {
	Selector         string // preferred sheet name; the first sheet is used when absent
	CandidateColumn  int    // 0-based column holding the candidate name
	AnnotationColumn int    // 0-based column receiving the marker
}

// CheckinBook is an opened check-in workbook. It keeps the parsed workbook
// so annotations can be written back into the original sheet.
type CheckinBook struct {
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
	opts  CheckinOptions
	rows  []model.CheckinRow
}

// OpenCheckin opens a check-in workbook and collects its rows up to the last
// row with a non-blank candidate cell.
func OpenCheckin(path string, opts CheckinOptions) (*CheckinBook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open check-in")
	}

	sh, err := getSheet(f, opts.Selector, true)
	if err != nil {
		return nil, err
	}

	b := &CheckinBook{path: path, file: f, sheet: sh, opts: opts}

	last := -1
	candidates := make([]string, len(sh.Rows))
	for i, row := range sh.Rows {
		if row == nil || opts.CandidateColumn >= len(row.Cells) {
			continue
		}
		c := row.Cells[opts.CandidateColumn]
		if c == nil || c.Value == "" {
			continue
		}
		candidates[i] = c.String()
		last = i
	}

	for i := 0; i <= last; i++ {
		b.rows = append(b.rows, model.CheckinRow{Row: i, Candidate: candidates[i]})
	}
	return b, nil
}

// Path returns the source path.
func (b *CheckinBook) Path() string { return b.path }

// SheetName returns the name of the sheet being read.
func (b *CheckinBook) SheetName() string { return b.sheet.Name }

// Rows returns a copy of the check-in rows.
func (b *CheckinBook) Rows() []model.CheckinRow { return slices.Clone(b.rows) }

// Candidates counts rows with a non-blank candidate.
func (b *CheckinBook) Candidates() int {
	n := 0
	for _, r := range b.rows {
		if strings.TrimSpace(r.Candidate) != "" {
			n++
		}
	}
	return n
}

// Annotate writes every non-empty annotation into the annotation column and
// returns how many rows were written.
func (b *CheckinBook) Annotate(rows []model.CheckinRow) int {
	n := 0
	for _, r := range rows {
		if r.Annotation == "" || r.Row < 0 || r.Row >= len(b.sheet.Rows) {
			continue
		}
		row := b.sheet.Rows[r.Row]
		if row == nil {
			continue
		}
		for len(row.Cells) <= b.opts.AnnotationColumn {
			row.AddCell()
		}
		row.Cells[b.opts.AnnotationColumn].SetString(r.Annotation)
		n++
	}
	return n
}

// Save writes the workbook, annotations included, to path.
func (b *CheckinBook) Save(path string) error {
	return eris.Wrapf(b.file.Save(path), "sheet: save check-in %s", path)
}
