package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleJob(id string) *models.JobPosting {
	return &models.JobPosting{
		JobID:       id,
		Company:     "Stripe",
		Title:       "Software Engineer, New Grad",
		Location:    "San Francisco, CA",
		URL:         "https://stripe.com/jobs/" + id,
		Description: "Python and Go services",
		PostedDate:  "2026-08-20",
		Source:      "Greenhouse",
		Score:       72,
	}
}

func TestUpsertNewAndDuplicate(t *testing.T) {
	s := openTestStore(t)

	isNew, err := s.Upsert(sampleJob("gh_1"))
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.Upsert(sampleJob("gh_1"))
	require.NoError(t, err)
	assert.False(t, isNew)

	got, err := s.GetJob("gh_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Stripe", got.Company)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.False(t, got.LastSeen.Before(got.FirstSeen))
}

func TestUpsertLeavesArchivedRowsAlone(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Upsert(sampleJob("gh_1"))
	require.NoError(t, err)
	require.NoError(t, s.Archive("gh_1"))

	before, err := s.GetJob("gh_1")
	require.NoError(t, err)

	isNew, err := s.Upsert(sampleJob("gh_1"))
	require.NoError(t, err)
	assert.False(t, isNew)

	after, err := s.GetJob("gh_1")
	require.NoError(t, err)
	assert.True(t, after.Archived)
	assert.Equal(t, before.LastSeen, after.LastSeen)
}

func TestNotificationFlow(t *testing.T) {
	s := openTestStore(t)

	high := sampleJob("gh_high")
	high.Score = 80
	low := sampleJob("gh_low")
	low.Score = 30

	_, err := s.Upsert(high)
	require.NoError(t, err)
	_, err = s.Upsert(low)
	require.NoError(t, err)

	jobs, err := s.UnnotifiedAbove(50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "gh_high", jobs[0].JobID)

	require.NoError(t, s.MarkNotified("gh_high"))
	jobs, err = s.UnnotifiedAbove(50)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpdateStatusStampsAppliedDate(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Upsert(sampleJob("gh_1"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus("gh_1", models.StatusInterested, "looks good"))
	got, err := s.GetJob("gh_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInterested, got.Status)
	assert.Equal(t, "looks good", got.Notes)
	assert.Empty(t, got.AppliedDate)

	require.NoError(t, s.UpdateStatus("gh_1", models.StatusApplied, "sent"))
	got, err = s.GetJob("gh_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApplied, got.Status)
	assert.NotEmpty(t, got.AppliedDate)

	assert.Error(t, s.UpdateStatus("gh_1", "bogus", ""))
}

func TestArchivedKeys(t *testing.T) {
	s := openTestStore(t)

	job := sampleJob("gh_1")
	job.Company = "The Stripe Company"
	_, err := s.Upsert(job)
	require.NoError(t, err)
	require.NoError(t, s.Archive("gh_1"))

	keys, err := s.ArchivedKeys("normalized")
	require.NoError(t, err)
	lookalike := models.JobPosting{Title: "Software Engineer, New Grad", Company: "the Stripe Company"}
	assert.True(t, keys[lookalike.ArchiveKey("normalized")])

	exact, err := s.ArchivedKeys("exact")
	require.NoError(t, err)
	assert.False(t, exact[lookalike.ArchiveKey("exact")])
	assert.True(t, exact[job.ArchiveKey("exact")])
}

func seedForSearch(t *testing.T, s *Store) {
	t.Helper()
	for i, spec := range []struct {
		company string
		title   string
		source  string
		score   int
		status  string
	}{
		{"Stripe", "Software Engineer, New Grad", "Greenhouse", 85, ""},
		{"Plaid", "Junior Backend Developer", "Lever", 60, ""},
		{"Acme", "Data Engineer", "Google Jobs (LinkedIn)", 45, ""},
		{"Ramp", "ML Engineer, Entry Level", "Remotive", 70, models.StatusApplied},
	} {
		job := sampleJob(fmt.Sprintf("j_%d", i))
		job.Company = spec.company
		job.Title = spec.title
		job.Source = spec.source
		job.Score = spec.score
		_, err := s.Upsert(job)
		require.NoError(t, err)
		if spec.status != "" {
			require.NoError(t, s.UpdateStatus(job.JobID, spec.status, ""))
		}
	}
}

func TestSearchJobsDefaultHidesPipelineTail(t *testing.T) {
	s := openTestStore(t)
	seedForSearch(t, s)

	page, err := s.SearchJobs(models.JobQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, j := range page.Jobs {
		assert.NotEqual(t, models.StatusApplied, j.Status)
	}

	// Default sort is score descending.
	assert.Equal(t, "Stripe", page.Jobs[0].Company)
}

func TestSearchJobsFilters(t *testing.T) {
	s := openTestStore(t)
	seedForSearch(t, s)

	page, err := s.SearchJobs(models.JobQuery{Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)

	page, err = s.SearchJobs(models.JobQuery{Status: models.StatusApplied})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Ramp", page.Jobs[0].Company)

	page, err = s.SearchJobs(models.JobQuery{Search: "backend"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Plaid", page.Jobs[0].Company)

	page, err = s.SearchJobs(models.JobQuery{MinScore: 80})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Consolidated source name matches every Google Jobs variant.
	page, err = s.SearchJobs(models.JobQuery{Source: "Google Jobs"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Acme", page.Jobs[0].Company)
}

func TestSearchJobsPagination(t *testing.T) {
	s := openTestStore(t)
	seedForSearch(t, s)

	page, err := s.SearchJobs(models.JobQuery{PerPage: 2, Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 2)
	assert.Equal(t, 2, page.TotalPages)

	page, err = s.SearchJobs(models.JobQuery{PerPage: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Jobs, 1)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	seedForSearch(t, s)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, 2, stats.HighScoreJobs)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 3, stats.NewJobs)
	assert.NotEmpty(t, stats.Sources)
}

func TestFilterOptions(t *testing.T) {
	s := openTestStore(t)
	seedForSearch(t, s)

	companies, sources, err := s.FilterOptions()
	require.NoError(t, err)
	assert.Contains(t, companies, "Stripe")
	assert.Contains(t, sources, "Greenhouse")
}

func TestLogScrape(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.LogScrape(9, 120, 14, 1))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM scrape_log").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrateAddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE jobs (
        job_id TEXT PRIMARY KEY, company TEXT, title TEXT, location TEXT,
        url TEXT, description TEXT, posted_date TEXT, source TEXT,
        score INTEGER, first_seen TIMESTAMP, last_seen TIMESTAMP,
        notified BOOLEAN DEFAULT 0)`)
	require.NoError(t, err)
	_, err = legacy.Exec(
		"INSERT INTO jobs (job_id, company, title, score) VALUES ('old_1', 'Acme', 'Data Engineer', 55)")
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetJob("old_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusNew, got.Status)
	assert.False(t, got.Archived)
}

func TestOpenSurvivesFailedMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewbacked.db")

	// A view named jobs makes every ADD COLUMN fail while PRAGMA
	// table_info still reports its columns as missing the new ones.
	legacy, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE postings (
        job_id TEXT PRIMARY KEY, company TEXT, title TEXT, location TEXT,
        url TEXT, description TEXT, posted_date TEXT, source TEXT,
        score INTEGER, first_seen TIMESTAMP, last_seen TIMESTAMP,
        notified BOOLEAN DEFAULT 0)`)
	require.NoError(t, err)
	_, err = legacy.Exec("CREATE VIEW jobs AS SELECT * FROM postings")
	require.NoError(t, err)
	_, err = legacy.Exec(
		"INSERT INTO postings (job_id, company, title, score) VALUES ('old_1', 'Acme', 'Data Engineer', 55)")
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := Open(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	// Pre-existing columns stay readable.
	var company string
	err = s.db.QueryRow("SELECT company FROM jobs WHERE job_id = 'old_1'").Scan(&company)
	require.NoError(t, err)
	assert.Equal(t, "Acme", company)
}

func TestCleanupPurgesZeroScoreAndSeniorRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")

	s, err := Open(path, testLogger())
	require.NoError(t, err)

	zero := sampleJob("z_1")
	zero.Score = 0
	_, err = s.Upsert(zero)
	require.NoError(t, err)

	senior := sampleJob("s_1")
	senior.Title = "Senior Software Engineer"
	_, err = s.Upsert(senior)
	require.NoError(t, err)

	kept := sampleJob("k_1")
	kept.Title = "Senior Software Engineer"
	_, err = s.Upsert(kept)
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus("k_1", models.StatusApplied, ""))

	require.NoError(t, s.Close())

	s, err = Open(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetJob("z_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetJob("s_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetJob("k_1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
