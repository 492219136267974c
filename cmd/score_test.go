package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonefit/internal/export"
	"github.com/sells-group/zonefit/internal/scorer"
)

const testZones = `[
  {"zipcode": "11111", "major_city": "Alpha", "state": "CA",
   "travel_time_to_work_in_minutes": [{"key": "Data", "values": [
     {"x": 0, "y": 1}, {"x": 1, "y": 2}, {"x": 2, "y": 3}, {"x": 3, "y": 4},
     {"x": 4, "y": 0}, {"x": 5, "y": 0}, {"x": 6, "y": 0}, {"x": 7, "y": 0}]}]},
  {"zipcode": "22222", "major_city": "Beta", "state": "CA",
   "travel_time_to_work_in_minutes": [{"key": "Data", "values": [
     {"x": 0, "y": 4}, {"x": 1, "y": 3}, {"x": 2, "y": 2}, {"x": 3, "y": 1},
     {"x": 4, "y": 0}, {"x": 5, "y": 0}, {"x": 6, "y": 0}, {"x": 7, "y": 0}]}]}
]`

const testPrefs = `
commute_time:
  value: 25
  importance: 1
walking:
  importance: 0.5
`

func writeScoreInputs(t *testing.T) (zones, prefs string) {
	t.Helper()
	dir := t.TempDir()
	zones = filepath.Join(dir, "zones.json")
	prefs = filepath.Join(dir, "prefs.yaml")
	require.NoError(t, os.WriteFile(zones, []byte(testZones), 0o600))
	require.NoError(t, os.WriteFile(prefs, []byte(testPrefs), 0o600))
	return zones, prefs
}

func TestScoreFiles_Table(t *testing.T) {
	zones, prefs := writeScoreInputs(t)

	var out bytes.Buffer
	err := scoreFiles(context.Background(), scorer.NewScorer(nil), scoreOptions{
		ZonesPath: zones,
		PrefsPath: prefs,
		Format:    export.FormatTable,
		Filters:   scorer.ScoreFilters{MinScore: 0.7},
	}, &out)
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	require.Greater(t, len(lines), 4)
	assert.Contains(t, lines[2], "22222")
	assert.Contains(t, lines[2], "90.0%")
	assert.Contains(t, lines[3], "11111")
	assert.Contains(t, out.String(), "Passed:        1")
}

func TestScoreFiles_JSONToFile(t *testing.T) {
	zones, prefs := writeScoreInputs(t)
	outPath := filepath.Join(t.TempDir(), "scores.json")

	var stdout bytes.Buffer
	err := scoreFiles(context.Background(), scorer.NewScorer(nil), scoreOptions{
		ZonesPath:  zones,
		PrefsPath:  prefs,
		Format:     export.FormatJSON,
		OutputPath: outPath,
		Filters:    scorer.ScoreFilters{Limit: 1},
	}, &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got []scorer.ZoneScore
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "22222", got[0].Zipcode)
	assert.Equal(t, "Beta", got[0].City)
	assert.Contains(t, stdout.String(), "Summary")
}

func TestScoreFiles_CSVStdoutHasNoSummary(t *testing.T) {
	zones, prefs := writeScoreInputs(t)

	var out bytes.Buffer
	err := scoreFiles(context.Background(), scorer.NewScorer(nil), scoreOptions{
		ZonesPath: zones,
		PrefsPath: prefs,
		Format:    export.FormatCSV,
	}, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "rank,zipcode"))
	assert.NotContains(t, out.String(), "Summary")
}

func TestScoreFiles_Errors(t *testing.T) {
	zones, prefs := writeScoreInputs(t)
	s := scorer.NewScorer(nil)

	tests := []struct {
		name    string
		opts    scoreOptions
		wantErr string
	}{
		{"xlsx needs output", scoreOptions{ZonesPath: zones, PrefsPath: prefs, Format: export.FormatXLSX}, "--output is required"},
		{"min score range", scoreOptions{ZonesPath: zones, PrefsPath: prefs, Format: export.FormatCSV, Filters: scorer.ScoreFilters{MinScore: 2}}, "--min-score"},
		{"missing zones", scoreOptions{ZonesPath: filepath.Join(t.TempDir(), "none.json"), PrefsPath: prefs, Format: export.FormatCSV}, "load zones"},
		{"bad prefs extension", scoreOptions{ZonesPath: zones, PrefsPath: "prefs.ini", Format: export.FormatCSV}, "load preferences"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := scoreFiles(context.Background(), s, tt.opts, &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
