package sheet

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rollcall/internal/model"
)

// DefaultReportSheet is the sheet name of the unmatched report.
const DefaultReportSheet = "Unmatched"

// WriteReport writes header and rows to a new workbook at path.
func WriteReport(path, sheetName string, header []string, rows []model.ReportRow) error {
	if sheetName == "" {
		sheetName = DefaultReportSheet
	}

	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "sheet: add report sheet")
	}

	if len(header) > 0 {
		hr := sh.AddRow()
		for _, h := range header {
			hr.AddCell().SetString(h)
		}
	}
	for _, r := range rows {
		xr := sh.AddRow()
		for _, v := range r {
			setCell(xr.AddCell(), v)
		}
	}

	return eris.Wrapf(f.Save(path), "sheet: save report %s", path)
}
