package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rollcall/internal/config"
)

// useTestConfig installs a config rooted in a temp dir for the test.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.Match.Threshold = 80
	c.Match.Marker = "matched"
	c.Sheet.Selector = "Kontrol"
	c.Sheet.NameColumn = "A"
	c.Sheet.CandidateColumn = "B"
	c.Sheet.AnnotationColumn = "G"
	c.Sheet.AnnotatedSuffix = "_updated"
	c.Pipeline.Concurrency = 2
	c.Paths.UploadDir = filepath.Join(dir, "uploads")
	c.Paths.ResultDir = filepath.Join(dir, "results")
	c.Paths.ReportName = "Unmatched.xlsx"
	c.Store.Driver = "none"
	c.Server.MaxUploadMB = 8
	c.Server.UploadRPS = 100
	c.Server.UploadBurst = 100
	c.Server.AllowedOrigins = []string{"*"}
	c.Monitoring.LookbackHours = 24
	c.Monitoring.FailureRateThreshold = 0.25
	c.Monitoring.MinFinishedRuns = 1

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return c
}

// writeBook writes one sheet of string cells and returns its path.
func writeBook(t *testing.T, dir, name, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, r := range rows {
		row := sh.AddRow()
		for _, v := range r {
			c := row.AddCell()
			if v != "" {
				c.SetString(v)
			}
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.Save(path))
	return path
}
