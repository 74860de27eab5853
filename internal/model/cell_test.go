package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCell_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cell Cell
		want string
	}{
		{TextCell("Ayşe"), "Ayşe"},
		{NumberCell(42), "42"},
		{NumberCell(3.5), "3.5"},
		{BoolCell(true), "true"},
		{EmptyCell(), ""},
		{Cell{}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cell.String())
	}
}

func TestCell_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, EmptyCell().IsEmpty())
	assert.True(t, Cell{}.IsEmpty())
	assert.False(t, TextCell("").IsEmpty())
	assert.False(t, NumberCell(0).IsEmpty())
}

func TestCell_JSONRow(t *testing.T) {
	t.Parallel()

	row := []Cell{TextCell("Mehmet Öz"), NumberCell(1987), EmptyCell(), BoolCell(false)}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `["Mehmet Öz", 1987, null, false]`, string(data))

	var back []Cell
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, row, back)
}

func TestCell_JSONRejectsObjects(t *testing.T) {
	t.Parallel()

	var c Cell
	err := json.Unmarshal([]byte(`{"a":1}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestCell_YAMLRow(t *testing.T) {
	t.Parallel()

	entry := RosterEntry{
		Key:  "ayşe yılmaz",
		Name: "Ayşe Yılmaz",
		Row:  []Cell{TextCell("Ayşe Yılmaz"), NumberCell(12), EmptyCell(), TextCell("true")},
	}

	data, err := yaml.Marshal(entry)
	require.NoError(t, err)

	var back RosterEntry
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, entry.Key, back.Key)
	assert.Equal(t, entry.Name, back.Name)
	require.Len(t, back.Row, 4)
	assert.Equal(t, TextCell("Ayşe Yılmaz"), back.Row[0])
	assert.Equal(t, NumberCell(12), back.Row[1])
	assert.True(t, back.Row[2].IsEmpty())
	// Quoted on output, so it round-trips as text.
	assert.Equal(t, TextCell("true"), back.Row[3])
}

func TestRosterEntry_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ayşe", RosterEntry{Key: "ayşe", Name: "Ayşe"}.DisplayName())
	assert.Equal(t, "ayşe", RosterEntry{Key: "ayşe"}.DisplayName())
}

func TestRunResult_Skipped(t *testing.T) {
	t.Parallel()

	r := &RunResult{Sources: []SourceResult{
		{Path: "a.xlsx"},
		{Path: "b.xlsx", Skipped: true, Error: "broken"},
	}}

	skipped := r.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "b.xlsx", skipped[0].Path)
}

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusPartial, "partial"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}
