package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/models"
)

func TestExportJobs(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir)

	jobs := []models.JobPosting{
		{
			JobID:       "gh_stripe_1",
			Title:       "Software Engineer, New Grad",
			Company:     "Stripe",
			Location:    "Remote",
			URL:         "https://example.com/1",
			Description: "Line one\nLine two\twith   tabs",
			Score:       72,
			Source:      "Greenhouse",
			FirstSeen:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			JobID:   "lv_plaid_2",
			Title:   "Backend Engineer",
			Company: "Plaid",
			Score:   40,
			Status:  models.StatusApplied,
		},
	}

	path, err := e.ExportJobs(jobs, "out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Job ID", rows[0][0])
	assert.Equal(t, "gh_stripe_1", rows[1][0])
	assert.Equal(t, "72", rows[1][4])
	// Empty status defaults to new, newlines flattened.
	assert.Equal(t, "new", rows[1][5])
	assert.Equal(t, "Line one Line two with tabs", rows[1][9])
	assert.Equal(t, "applied", rows[2][5])
}

func TestExportJobsGeneratedFilename(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir)

	path, err := e.ExportJobs(nil, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "jobs_export_"))
	assert.True(t, strings.HasSuffix(path, ".csv"))
}

func TestExportWithStats(t *testing.T) {
	dir := t.TempDir()
	e := NewCSVExporter(dir)

	stats := &models.Stats{
		TotalJobs:     5,
		HighScoreJobs: 2,
		Sources: []models.SourceCount{
			{Name: "Greenhouse", Count: 3},
			{Name: "Lever", Count: 2},
		},
	}

	_, err := e.ExportWithStats(nil, stats, "report")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "report_stats.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Jobs,5")
	assert.Contains(t, string(data), "Greenhouse,3")
}

func TestCleanDescriptionTruncates(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := cleanDescription(long)
	assert.Len(t, got, 503)
	assert.True(t, strings.HasSuffix(got, "..."))
}
