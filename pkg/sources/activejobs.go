package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"jobtrack/pkg/models"
)

// activeJobsQueries are quoted title filters run against the aggregate feed.
var activeJobsQueries = []string{
	`"Software Engineer"`,
	`"Software Engineering Intern"`,
	`"Software Developer"`,
	`"Backend Engineer"`,
	`"Machine Learning Intern"`,
	`"Data Engineering Intern"`,
	`"AI Intern"`,
	`"Cloud Engineer Intern"`,
}

// ActiveJobs queries the Active Jobs DB aggregate on RapidAPI. The free
// plan rate limits aggressively, so 429 and 401 responses trigger key
// rotation and two consecutive empty queries abort the run early.
type ActiveJobs struct {
	baseURL string
	pool    *KeyPool
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
	use7d   bool
}

// NewActiveJobs builds the adapter over the shared key pool.
func NewActiveJobs(pool *KeyPool, logger *logrus.Logger) *ActiveJobs {
	return &ActiveJobs{
		baseURL: "https://active-jobs-db.p.rapidapi.com",
		pool:    pool,
		client:  newHTTPClient(30 * time.Second),
		// One query every two seconds keeps the free plan happy.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:  logger,
	}
}

func (a *ActiveJobs) Name() string { return "ActiveJobsDB" }

func (a *ActiveJobs) IsConfigured() bool {
	_, key := a.pool.Current()
	return key != ""
}

// Fetch runs the query battery and dedups by upstream id.
func (a *ActiveJobs) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	endpoint := "active-ats-24h"
	if a.use7d {
		endpoint = "active-ats-7d"
	}

	var all []models.JobPosting
	seen := make(map[string]bool)
	consecutiveEmpty := 0

	for i, query := range activeJobsQueries {
		if i > 0 {
			if err := a.limiter.Wait(ctx); err != nil {
				return all, err
			}
		}
		name, _ := a.pool.Current()
		a.logger.Infof("ActiveJobsDB query %s (key=%s)", query, name)

		raw, err := a.fetch(ctx, endpoint, query)
		if err != nil {
			return all, err
		}

		added := 0
		for _, item := range raw {
			job := a.parse(item)
			if job.JobID == "" || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
			added++
		}
		a.logger.Infof("ActiveJobsDB: %d jobs (%d total unique)", len(raw), len(all))

		if len(raw) == 0 {
			consecutiveEmpty++
			if consecutiveEmpty >= 2 {
				a.logger.Warn("Two empty responses in a row, stopping early")
				break
			}
		} else {
			consecutiveEmpty = 0
		}
	}
	return all, nil
}

// fetch performs one query, rotating keys on rate-limit or auth failures.
func (a *ActiveJobs) fetch(ctx context.Context, endpoint, titleFilter string) ([]map[string]any, error) {
	maxAttempts := a.pool.Size()
	if maxAttempts > 6 {
		maxAttempts = 6
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	params := url.Values{}
	params.Set("limit", "100")
	params.Set("offset", "0")
	params.Set("title_filter", titleFilter)
	params.Set("location_filter", `"United States"`)
	params.Set("description_type", "text")
	reqURL := fmt.Sprintf("%s/%s?%s", a.baseURL, endpoint, params.Encode())

	for attempt := 0; attempt < maxAttempts; attempt++ {
		name, key := a.pool.Current()
		var body json.RawMessage
		status, err := getJSON(ctx, a.client, reqURL, map[string]string{
			"x-rapidapi-host": "active-jobs-db.p.rapidapi.com",
			"x-rapidapi-key":  key,
		}, &body)

		switch status {
		case http.StatusOK:
			return decodeJobList(body)
		case http.StatusTooManyRequests:
			a.logger.Warnf("429 rate limited (key=%s)", name)
			if !a.pool.Rotate() {
				a.logger.Warn("All keys rate limited")
				return nil, nil
			}
			continue
		case http.StatusUnauthorized:
			a.logger.Errorf("401 unauthorized (key=%s)", name)
			if !a.pool.Rotate() {
				return nil, nil
			}
			continue
		default:
			if err != nil {
				return nil, err
			}
			return nil, nil
		}
	}
	return nil, nil
}

// decodeJobList accepts both bare-array and wrapped responses.
func decodeJobList(body json.RawMessage) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized response shape: %w", err)
	}
	for _, field := range []string{"jobs", "data", "results"} {
		if raw, ok := wrapped[field]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}
	return nil, nil
}

func (a *ActiveJobs) parse(item map[string]any) models.JobPosting {
	id := stringField(item, "id", "job_id")
	if id == "" {
		return models.JobPosting{}
	}
	posted := isoDateOnly(stringField(item, "date_posted", "posted_at", "date_created"))

	return models.JobPosting{
		JobID:       "activejobs_" + id,
		Title:       stringField(item, "title"),
		Company:     stringField(item, "organization", "company_name", "company"),
		Location:    normalizeLocation(anyField(item, "locations_raw", "location")),
		URL:         stringField(item, "url", "apply_url"),
		Description: stringField(item, "description"),
		PostedDate:  posted,
		Source:      "ActiveJobsDB",
	}
}
