package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"jobtrack/pkg/models"
)

// serpQueries target entry-level engineering roles on Google Jobs, which
// aggregates LinkedIn, Indeed, Glassdoor and company career pages.
var serpQueries = []string{
	`"Software Engineer" new grad`,
	`"Software Engineer Intern"`,
	`"Software Developer" entry level`,
	`"Backend Engineer" junior`,
	`"Machine Learning Engineer" new grad`,
	`"Data Engineer" entry level`,
	`"Full Stack Engineer" junior`,
	`"Cloud Engineer" entry level`,
}

// SerpAPI is the Google Jobs aggregator. The free tier allows 100 searches
// a month, so the scheduler budgets queries per run.
type SerpAPI struct {
	baseURL    string
	apiKey     string
	maxQueries int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewSerpAPI builds the adapter. maxQueries caps API spend per run.
func NewSerpAPI(apiKey string, maxQueries int, logger *logrus.Logger) *SerpAPI {
	if maxQueries <= 0 || maxQueries > len(serpQueries) {
		maxQueries = len(serpQueries)
	}
	return &SerpAPI{
		baseURL:    "https://serpapi.com/search.json",
		apiKey:     apiKey,
		maxQueries: maxQueries,
		client:     newHTTPClient(15 * time.Second),
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger,
	}
}

func (s *SerpAPI) Name() string { return "Google Jobs" }

func (s *SerpAPI) IsConfigured() bool {
	switch s.apiKey {
	case "", "placeholder", "YOUR_SERPAPI_KEY":
		return false
	}
	return true
}

type serpJob struct {
	JobID              string `json:"job_id"`
	Title              string `json:"title"`
	CompanyName        string `json:"company_name"`
	Location           string `json:"location"`
	Description        string `json:"description"`
	Via                string `json:"via"`
	ShareLink          string `json:"share_link"`
	Link               string `json:"link"`
	DetectedExtensions struct {
		PostedAt string `json:"posted_at"`
	} `json:"detected_extensions"`
	ApplyOptions []struct {
		Link string `json:"link"`
	} `json:"apply_options"`
}

type serpResponse struct {
	JobsResults []serpJob `json:"jobs_results"`
}

// Fetch runs the query battery and dedups on the upstream job id.
func (s *SerpAPI) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, query := range serpQueries[:s.maxQueries] {
		jobs, err := s.search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			s.logger.Warnf("SerpAPI error for %q: %v", query, err)
			continue
		}
		for _, job := range jobs {
			if job.JobID == "" || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
		s.logger.Infof("SerpAPI %q: %d jobs (%d total unique)", query, len(jobs), len(all))

		if err := s.limiter.Wait(ctx); err != nil {
			return all, err
		}
	}
	s.logger.Infof("Found %d jobs from Google Jobs", len(all))
	return all, nil
}

func (s *SerpAPI) search(ctx context.Context, query string) ([]models.JobPosting, error) {
	params := url.Values{}
	params.Set("engine", "google_jobs")
	params.Set("q", query)
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("location", "United States")
	params.Set("api_key", s.apiKey)

	var resp serpResponse
	if _, err := getJSON(ctx, s.client, s.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(resp.JobsResults))
	for _, raw := range resp.JobsResults {
		via := strings.TrimPrefix(raw.Via, "via ")
		source := "Google Jobs"
		if via != "" {
			source = "Google Jobs (" + via + ")"
		}

		applyURL := ""
		if len(raw.ApplyOptions) > 0 {
			applyURL = raw.ApplyOptions[0].Link
		}
		if applyURL == "" {
			applyURL = raw.ShareLink
		}
		if applyURL == "" {
			applyURL = raw.Link
		}

		id := raw.JobID
		if len(id) > 40 {
			id = id[:40]
		}

		jobs = append(jobs, models.JobPosting{
			JobID:       "serp_" + id,
			Title:       raw.Title,
			Company:     raw.CompanyName,
			Location:    raw.Location,
			URL:         applyURL,
			Description: raw.Description,
			PostedDate:  raw.DetectedExtensions.PostedAt,
			Source:      source,
		})
	}
	return FilterNewGrad(jobs), nil
}
