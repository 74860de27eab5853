// Package sheet reads rosters and check-in lists from XLSX workbooks, writes
// match annotations back, and writes the unmatched report.
package sheet

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/roster"
)

var columnRe = regexp.MustCompile(`^[A-Za-z]{1,3}$`)

// ColumnIndex converts a column reference such as "A" or "G" to a 0-based
// index.
func ColumnIndex(letters string) (int, error) {
	letters = strings.TrimSpace(letters)
	if !columnRe.MatchString(letters) {
		return 0, eris.Errorf("sheet: invalid column %q", letters)
	}
	return xlsx.ColLettersToIndex(strings.ToUpper(letters)), nil
}

// RosterOptions configures roster reading.
type RosterOptions struct {
	SheetName  string // optional; defaults to the first sheet
	NameColumn int    // 0-based column holding the name
	SkipRows   int    // header rows to skip
}

// ReadRoster reads every row whose name cell is non-blank. Each entry keeps
// the full row, name cell included.
func ReadRoster(path string, opts RosterOptions) ([]model.RosterEntry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open roster")
	}

	sh, err := getSheet(f, opts.SheetName, false)
	if err != nil {
		return nil, err
	}

	var entries []model.RosterEntry
	for i, row := range sh.Rows {
		if i < opts.SkipRows || row == nil || opts.NameColumn >= len(row.Cells) {
			continue
		}
		cells := rowToCells(row)
		if opts.NameColumn >= len(cells) || cells[opts.NameColumn].IsEmpty() {
			continue
		}
		name := cells[opts.NameColumn]
		if e, ok := roster.NewEntry(name.String(), cells); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// getSheet returns the named sheet, or the first sheet when name is empty.
// With fallback set a missing name also resolves to the first sheet.
func getSheet(f *xlsx.File, name string, fallback bool) (*xlsx.Sheet, error) {
	if name != "" {
		if sh, ok := f.Sheet[name]; ok {
			return sh, nil
		}
		if !fallback {
			return nil, eris.Errorf("sheet: sheet %q not found", name)
		}
	}

	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// rowToCells converts a row, dropping the empty padding cells XLSX readers
// add up to the sheet's widest row.
func rowToCells(row *xlsx.Row) []model.Cell {
	cells := make([]model.Cell, len(row.Cells))
	for j, c := range row.Cells {
		cells[j] = cellValue(c)
	}
	for len(cells) > 0 && cells[len(cells)-1].IsEmpty() {
		cells = cells[:len(cells)-1]
	}
	return cells
}

func cellValue(c *xlsx.Cell) model.Cell {
	if c == nil || c.Value == "" {
		return model.EmptyCell()
	}
	switch c.Type() {
	case xlsx.CellTypeNumeric:
		if f, err := c.Float(); err == nil {
			return model.NumberCell(f)
		}
	case xlsx.CellTypeBool:
		return model.BoolCell(c.Bool())
	}
	return model.TextCell(c.String())
}

func setCell(c *xlsx.Cell, v model.Cell) {
	switch v.Kind {
	case model.CellText:
		c.SetString(v.Text)
	case model.CellNumber:
		c.SetFloat(v.Number)
	case model.CellBool:
		c.SetBool(v.Bool)
	}
}

// AnnotatedPath names the annotated copy of src: <base><suffix><ext>, placed
// in dir when set, otherwise next to src.
func AnnotatedPath(src, dir, suffix string) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base+suffix+ext)
}
