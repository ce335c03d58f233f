package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestGreenhouseFetchBoard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stripe/jobs":
			fmt.Fprint(w, `{"jobs": [
                {"id": 101, "title": "Software Engineer, New Grad",
                 "absolute_url": "https://stripe.com/jobs/101",
                 "content": "entry level role", "updated_at": "2026-08-20T10:00:00Z",
                 "location": {"name": "San Francisco, CA"}},
                {"id": 102, "title": "Senior Software Engineer",
                 "absolute_url": "https://stripe.com/jobs/102",
                 "content": "8+ years", "updated_at": "2026-08-20T10:00:00Z",
                 "location": {"name": "Remote"}}
            ], "meta": {"total": 2}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	g := NewGreenhouse(t.TempDir(), quietLogger())
	g.baseURL = server.URL

	jobs, err := g.fetchBoard(context.Background(), "stripe", "Stripe")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "gh_stripe_101", jobs[0].JobID)
	assert.Equal(t, "Stripe", jobs[0].Company)
	assert.Equal(t, "Greenhouse", jobs[0].Source)

	// Dead boards return empty, not an error.
	jobs, err = g.fetchBoard(context.Background(), "gone", "Gone")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestGreenhouseCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := NewGreenhouse(dir, quietLogger())

	g.saveCache(map[string]string{"stripe": "Stripe"})

	fresh := NewGreenhouse(dir, quietLogger())
	cached := fresh.loadCache()
	require.NotNil(t, cached)
	assert.Equal(t, "Stripe", cached["stripe"])
}

func TestLeverSlugCandidates(t *testing.T) {
	l := NewLever(nil, quietLogger())

	slugs := l.slugCandidates(companies.Company{Name: "DATABRICKS INC"})
	require.NotEmpty(t, slugs)
	assert.Equal(t, "databricks", slugs[0])
	assert.LessOrEqual(t, len(slugs), 2)

	slugs = l.slugCandidates(companies.Company{Name: "JPMorgan Chase & Co."})
	assert.Contains(t, slugs, "jpmorganchase")

	// Explicit override always wins the first slot.
	slugs = l.slugCandidates(companies.Company{Name: "Plaid Technologies", LeverName: "plaid"})
	assert.Equal(t, "plaid", slugs[0])
}

func TestLeverFetchCachesBadSlugs(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	roster := []companies.Company{{Name: "Ghost Corp", ATSType: "Lever", LeverName: "ghost"}}
	l := NewLever(roster, quietLogger())
	l.baseURL = server.URL

	_, err := l.Fetch(context.Background())
	require.NoError(t, err)
	first := atomic.LoadInt32(&hits)
	assert.Greater(t, first, int32(0))

	// Second pass: every slug already known bad, no new requests.
	_, err = l.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, atomic.LoadInt32(&hits))
}

func TestLeverFetchParsesPostings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plaid" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[
            {"id": "abc-123", "text": "Backend Engineer, New Grad",
             "hostedUrl": "https://jobs.lever.co/plaid/abc-123",
             "description": "entry level backend role",
             "createdAt": 1755650400000,
             "categories": {"location": "San Francisco, CA"}}
        ]`)
	}))
	defer server.Close()

	roster := []companies.Company{{Name: "Plaid", ATSType: "Lever", LeverName: "plaid"}}
	l := NewLever(roster, quietLogger())
	l.baseURL = server.URL

	jobs, err := l.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "lv_plaid_abc-123", jobs[0].JobID)
	assert.Equal(t, "Plaid", jobs[0].Company)
	assert.Equal(t, "2025-08-20", jobs[0].PostedDate)
}

func TestActiveJobsRotatesOn429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			assert.Equal(t, "k1", r.Header.Get("x-rapidapi-key"))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "k2", r.Header.Get("x-rapidapi-key"))
		fmt.Fprint(w, `[{"id": "j1", "title": "Software Engineer",
            "organization": "Acme", "location": "Austin, TX",
            "url": "https://acme.example/j1", "description": "new grad",
            "date_posted": "2026-08-21T09:00:00"}]`)
	}))
	defer server.Close()

	pool := NewKeyPool([]config.RapidAPIKey{
		{Name: "one", Key: "k1"},
		{Name: "two", Key: "k2"},
	})
	a := NewActiveJobs(pool, quietLogger())
	a.baseURL = server.URL

	items, err := a.fetch(context.Background(), "active-ats-24h", `"Software Engineer"`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestActiveJobsStopsAfterConsecutiveEmpties(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	pool := NewKeyPool([]config.RapidAPIKey{{Name: "one", Key: "k1"}})
	a := NewActiveJobs(pool, quietLogger())
	a.baseURL = server.URL
	a.limiter.SetLimit(1000) // No pacing in tests.

	jobs, err := a.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestActiveJobsParseLocationShapes(t *testing.T) {
	a := NewActiveJobs(NewKeyPool(nil), quietLogger())

	job := a.parse(map[string]any{
		"id":    "x1",
		"title": "Software Engineer",
		"locations_raw": []any{map[string]any{
			"address": map[string]any{
				"addressLocality": "Boston",
				"addressRegion":   "MA",
			},
		}},
		"date_posted": "2026-08-21T09:00:00",
	})
	assert.Equal(t, "activejobs_x1", job.JobID)
	assert.Equal(t, "Boston, MA", job.Location)
	assert.Equal(t, "2026-08-21", job.PostedDate)

	// Missing upstream id yields a zero posting, dropped by the caller.
	assert.Empty(t, a.parse(map[string]any{"title": "No ID"}).JobID)
}

func TestTheMuseParseFilters(t *testing.T) {
	m := NewTheMuse(quietLogger())

	ok := museJob{ID: 9, Name: "Software Engineer", Contents: "backend work"}
	ok.Company.Name = "Acme"
	job, kept := m.parse(ok)
	assert.True(t, kept)
	assert.Equal(t, "muse_9", job.JobID)
	assert.Equal(t, "Remote", job.Location)

	senior := museJob{ID: 10, Name: "Senior Software Engineer", Contents: "backend"}
	_, kept = m.parse(senior)
	assert.False(t, kept)

	sales := museJob{ID: 11, Name: "Account Executive", Contents: "sell things"}
	_, kept = m.parse(sales)
	assert.False(t, kept)
}

func TestSerpAPIFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_jobs", r.URL.Query().Get("engine"))
		fmt.Fprint(w, `{"jobs_results": [
            {"job_id": "abcdef", "title": "Software Engineer New Grad",
             "company_name": "Acme", "location": "Austin, TX",
             "description": "new grad role", "via": "via LinkedIn",
             "share_link": "https://g.example/share",
             "detected_extensions": {"posted_at": "2 days ago"},
             "apply_options": [{"link": "https://acme.example/apply"}]}
        ]}`)
	}))
	defer server.Close()

	s := NewSerpAPI("test-key", 1, quietLogger())
	s.baseURL = server.URL
	s.limiter.SetLimit(1000)

	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "serp_abcdef", jobs[0].JobID)
	assert.Equal(t, "Google Jobs (LinkedIn)", jobs[0].Source)
	assert.Equal(t, "https://acme.example/apply", jobs[0].URL)

	unconfigured := NewSerpAPI("placeholder", 8, quietLogger())
	assert.False(t, unconfigured.IsConfigured())
}

func TestSerpAPIDefaultRunsFullQueryBattery(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `{"jobs_results": []}`)
	}))
	defer server.Close()

	// A zero cap means every query runs, independent of any key pool size.
	s := NewSerpAPI("test-key", 0, quietLogger())
	s.baseURL = server.URL
	s.limiter.SetLimit(1000)

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, len(serpQueries), atomic.LoadInt32(&hits))
}

func TestAdzunaAreaFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [
            {"id": "777", "title": "<strong>Junior</strong> Software Developer",
             "description": "entry level",
             "redirect_url": "https://adzuna.example/777",
             "created": "2026-08-22T00:00:00Z",
             "location": {"area": ["US", "Texas", "Austin"]},
             "company": {"display_name": "Acme"}}
        ]}`)
	}))
	defer server.Close()

	a := NewAdzuna(config.AdzunaConfig{AppID: "id", AppKey: "key"}, quietLogger())
	a.baseURL = server.URL
	a.limiter.SetLimit(1000)

	jobs, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "adzuna_777", jobs[0].JobID)
	assert.Equal(t, "Junior Software Developer", jobs[0].Title)
	assert.Equal(t, "Texas, Austin", jobs[0].Location)
}

func TestRemotiveFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobs": [
            {"id": 55, "title": "Junior Backend Developer", "company_name": "Acme",
             "url": "https://remotive.example/55", "description": "junior role",
             "publication_date": "2026-08-22T08:00:00",
             "candidate_required_location": ""}
        ]}`)
	}))
	defer server.Close()

	r := NewRemotive(quietLogger())
	r.baseURL = server.URL

	jobs, err := r.Fetch(context.Background())
	require.NoError(t, err)
	// Three categories hit the same stub; dedup keeps one copy.
	require.Len(t, jobs, 1)
	assert.Equal(t, "remotive_55", jobs[0].JobID)
	assert.Equal(t, "Remote", jobs[0].Location)
}

func TestSimplifyJobsFilters(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-2 * 24 * time.Hour).Unix()
	stale := now.Add(-30 * 24 * time.Hour).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
            {"id": "keep-1", "title": "Software Engineer, New Grad", "company_name": "Acme",
             "url": "https://acme.example/1", "category": "Software Engineering",
             "sponsorship": "Offers Sponsorship", "locations": ["Austin, TX"],
             "date_posted": %d, "active": true, "is_visible": true},
            {"id": "old-1", "title": "Software Engineer, New Grad", "company_name": "Olde",
             "url": "https://olde.example/1", "category": "Software Engineering",
             "locations": ["Austin, TX"], "date_posted": %d, "active": true, "is_visible": true},
            {"id": "closed-1", "title": "Software Engineer, New Grad", "company_name": "Shut",
             "url": "https://shut.example/1", "category": "Software Engineering",
             "locations": ["Austin, TX"], "date_posted": %d, "active": false, "is_visible": true},
            {"id": "quant-1", "title": "Quantitative Trader", "company_name": "Fund",
             "url": "https://fund.example/1", "category": "Quantitative Finance",
             "locations": ["New York, NY"], "date_posted": %d, "active": true, "is_visible": true},
            {"id": "ca-1", "title": "Software Engineer, New Grad", "company_name": "Maple",
             "url": "https://maple.example/1", "category": "Software Engineering",
             "locations": ["Toronto, Canada"], "date_posted": %d, "active": true, "is_visible": true}
        ]`, fresh, stale, fresh, fresh, fresh)
	}))
	defer server.Close()

	s := NewSimplifyJobs(quietLogger())
	s.urlOverride = server.URL
	s.now = func() time.Time { return now }

	jobs, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Contains(t, jobs[0].JobID, "simplify_")
	assert.Contains(t, jobs[0].Description, "Sponsorship: Offers Sponsorship.")
	assert.Equal(t, now.Add(-2*24*time.Hour).Format("2006-01-02"), jobs[0].PostedDate)
}

func TestInternshipsStandardize(t *testing.T) {
	n := NewInternships(NewKeyPool([]config.RapidAPIKey{{Name: "a", Key: "k"}}), quietLogger())

	jobs := n.standardize([]map[string]any{
		{"id": "i1", "title": "Software Engineering Intern", "company_name": "Acme",
			"location": map[string]any{"city": "Denver", "state": "CO"}},
		{"title": "Missing Company"},
	})
	require.Len(t, jobs, 1)
	assert.Equal(t, "intern_i1", jobs[0].JobID)
	assert.Equal(t, "Internships API", jobs[0].Source)
}
