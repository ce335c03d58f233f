package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/models"
	"jobtrack/pkg/scorer"
	"jobtrack/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st, err := store.Open(filepath.Join(dir, "jobs.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	resume := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Python, Go, SQL, Docker"), 0o644))
	sc := scorer.New(resume, logger)

	return NewServer(st, sc, logger), st
}

func seedJob(t *testing.T, st *store.Store, id, title, company, source string, score int) {
	t.Helper()
	job := models.JobPosting{
		JobID:       id,
		Title:       title,
		Company:     company,
		Location:    "Remote",
		URL:         "https://example.com/" + id,
		Description: "Uses Python, Go and SQL",
		Source:      source,
		Score:       score,
	}
	isNew, err := st.Upsert(&job)
	require.NoError(t, err)
	require.True(t, isNew)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestJobsListConsolidatesAndPaginates(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer, New Grad", "Stripe", "Google Jobs (LinkedIn)", 70)
	seedJob(t, st, "j2", "Backend Engineer", "Plaid", "Greenhouse", 40)
	seedJob(t, st, "j3", "Data Engineer", "Ramp", "Greenhouse", 55)

	resp, out := doJSON(t, s, "GET", "/api/jobs?per_page=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.EqualValues(t, 3, out["total"])
	assert.EqualValues(t, 2, out["total_pages"])

	jobs := out["jobs"].([]any)
	require.Len(t, jobs, 2)
	first := jobs[0].(map[string]any)
	assert.Equal(t, "j1", first["job_id"])
	assert.Equal(t, "Google Jobs", first["source"])
	assert.Equal(t, "new", first["status"])
	assert.NotEmpty(t, first["time_ago"])
}

func TestJobsListFiltersBySourceAndScore(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer", "Stripe", "Google Jobs (Indeed)", 70)
	seedJob(t, st, "j2", "Backend Engineer", "Plaid", "Greenhouse", 40)

	_, out := doJSON(t, s, "GET", "/api/jobs?source=Google+Jobs", "")
	assert.EqualValues(t, 1, out["total"])

	_, out = doJSON(t, s, "GET", "/api/jobs?min_score=50", "")
	assert.EqualValues(t, 1, out["total"])
}

func TestJobDetailAndNotFound(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer", "Stripe", "Greenhouse", 70)

	resp, out := doJSON(t, s, "GET", "/api/job/j1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Stripe", out["company"])

	resp, out = doJSON(t, s, "GET", "/api/job/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", out["error"])
}

func TestJobAnalysis(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer", "Stripe", "Greenhouse", 70)

	resp, out := doJSON(t, s, "GET", "/api/job/j1/analysis", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "matching_skills")
	assert.Contains(t, out, "match_percentage")
}

func TestUpdateStatusAndArchive(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer", "Stripe", "Greenhouse", 70)

	resp, out := doJSON(t, s, "POST", "/api/job/j1/status", `{"status":"applied","notes":"sent"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	job, err := st.GetJob("j1")
	require.NoError(t, err)
	assert.Equal(t, "applied", job.Status)
	assert.Equal(t, "sent", job.Notes)
	assert.NotEmpty(t, job.AppliedDate)

	resp, _ = doJSON(t, s, "POST", "/api/job/j1/status", `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, "DELETE", "/api/job/j1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	job, err = st.GetJob("j1")
	require.NoError(t, err)
	assert.True(t, job.Archived)
}

func TestStatsAndFilters(t *testing.T) {
	s, st := newTestServer(t)
	seedJob(t, st, "j1", "Software Engineer", "Stripe", "Google Jobs (LinkedIn)", 70)
	seedJob(t, st, "j2", "Backend Engineer", "Plaid", "Google Jobs (Indeed)", 40)

	resp, out := doJSON(t, s, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["total_jobs"])
	assert.EqualValues(t, 1, out["high_score_jobs"])

	resp, out = doJSON(t, s, "GET", "/api/filters", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sources := out["sources"].([]any)
	assert.Equal(t, []any{"Google Jobs"}, sources)
	companies := out["companies"].([]any)
	assert.Len(t, companies, 2)
}
