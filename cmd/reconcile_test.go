package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/pipeline"
)

func reconcileFixture(t *testing.T) (dir, roster, checkin string) {
	t.Helper()
	dir = t.TempDir()
	roster = writeBook(t, dir, "roster.xlsx", "Sheet1", [][]string{
		{"Ayşe Yılmaz", "10-A"},
		{"Zeynep Kaya", "10-C"},
	})
	checkin = writeBook(t, dir, "checkin.xlsx", "Kontrol", [][]string{
		{"1", "Ayse Yilmaz"},
	})
	return dir, roster, checkin
}

func TestRunReconcile_JSON(t *testing.T) {
	useTestConfig(t)
	dir, roster, checkin := reconcileFixture(t)

	var out bytes.Buffer
	err := runReconcile(context.Background(), nil, reconcileOptions{
		roster:    roster,
		checkins:  []string{checkin},
		threshold: 80,
		output:    filepath.Join(dir, "report.xlsx"),
		format:    "json",
	}, &out)
	require.NoError(t, err)

	var res model.RunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 1, res.Matched)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "Zeynep Kaya", res.Unmatched[0].Name)
	assert.Equal(t, []model.Cell{model.TextCell("Zeynep Kaya"), model.TextCell("10-C")}, res.Unmatched[0].Row)
	assert.Equal(t, filepath.Join(dir, "report.xlsx"), res.ReportPath)
	assert.Equal(t, filepath.Join(dir, "checkin_updated.xlsx"), res.Sources[0].AnnotatedPath)
}

func TestRunReconcile_YAML(t *testing.T) {
	useTestConfig(t)
	dir, roster, checkin := reconcileFixture(t)

	var out bytes.Buffer
	err := runReconcile(context.Background(), nil, reconcileOptions{
		roster:    roster,
		checkins:  []string{checkin},
		threshold: 90,
		output:    filepath.Join(dir, "report.xlsx"),
		format:    "yaml",
	}, &out)
	require.NoError(t, err)

	var res model.RunResult
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 90, res.Threshold)
	assert.Zero(t, res.Matched)
	assert.Len(t, res.Unmatched, 2)
}

func TestRunReconcile_BadFormat(t *testing.T) {
	useTestConfig(t)

	err := runReconcile(context.Background(), nil, reconcileOptions{format: "xml"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestRunReconcile_RosterUnreadable(t *testing.T) {
	useTestConfig(t)
	dir := t.TempDir()

	var out bytes.Buffer
	err := runReconcile(context.Background(), nil, reconcileOptions{
		roster:    filepath.Join(dir, "missing.xlsx"),
		checkins:  []string{filepath.Join(dir, "c.xlsx")},
		threshold: 80,
		format:    "json",
	}, &out)
	assert.ErrorIs(t, err, pipeline.ErrRosterUnreadable)
	assert.Empty(t, out.String())
}

func TestRunReconcile_ReportFailureStillPrints(t *testing.T) {
	useTestConfig(t)
	dir, roster, checkin := reconcileFixture(t)

	var out bytes.Buffer
	err := runReconcile(context.Background(), nil, reconcileOptions{
		roster:    roster,
		checkins:  []string{checkin},
		threshold: 80,
		output:    filepath.Join(dir, "roster.xlsx", "report.xlsx"),
		format:    "json",
	}, &out)
	assert.ErrorIs(t, err, pipeline.ErrReportWriteFailed)

	var res model.RunResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.NotEmpty(t, res.ReportError)
	assert.Len(t, res.Unmatched, 1)
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	err := writeResult(&bytes.Buffer{}, &model.RunResult{}, "toml")
	assert.Error(t, err)
}
