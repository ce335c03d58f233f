package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
)

// Internships hits the internships aggregate on RapidAPI, sharing the
// credential pool with ActiveJobs.
type Internships struct {
	baseURL string
	pool    *KeyPool
	client  *http.Client
	logger  *logrus.Logger
}

func NewInternships(pool *KeyPool, logger *logrus.Logger) *Internships {
	return &Internships{
		baseURL: "https://internships-api.p.rapidapi.com",
		pool:    pool,
		client:  newHTTPClient(15 * time.Second),
		logger:  logger,
	}
}

func (n *Internships) Name() string { return "Internships API" }

func (n *Internships) IsConfigured() bool {
	_, key := n.pool.Current()
	return key != ""
}

// Fetch searches US and remote internships, deduping across the two.
func (n *Internships) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, location := range []string{"United States", "Remote"} {
		jobs, err := n.fetchLocation(ctx, location)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			n.logger.Warnf("Internships API error [%s]: %v", location, err)
			continue
		}
		for _, job := range jobs {
			if job.JobID == "" || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
		n.logger.Infof("Internships [%s]: %d total unique", location, len(all))
	}
	n.logger.Infof("Found %d internships from Internships API", len(all))
	return all, nil
}

func (n *Internships) fetchLocation(ctx context.Context, location string) ([]models.JobPosting, error) {
	maxAttempts := n.pool.Size() * 2
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	params := url.Values{}
	params.Set("location_filter", location)
	reqURL := n.baseURL + "/active-ats-7d?" + params.Encode()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		name, key := n.pool.Current()
		var body json.RawMessage
		status, err := getJSON(ctx, n.client, reqURL, map[string]string{
			"x-rapidapi-host": "internships-api.p.rapidapi.com",
			"x-rapidapi-key":  key,
		}, &body)

		if status == http.StatusTooManyRequests {
			n.logger.Warnf("429 rate limited (key=%s)", name)
			n.pool.Rotate()
			continue
		}
		if err != nil {
			return nil, err
		}

		items, err := decodeJobList(body)
		if err != nil {
			return nil, err
		}
		return n.standardize(items), nil
	}
	return nil, nil
}

func (n *Internships) standardize(items []map[string]any) []models.JobPosting {
	var jobs []models.JobPosting
	for _, item := range items {
		title := stringField(item, "title", "job_title")
		company := stringField(item, "company_name", "company", "organization")
		if title == "" || company == "" {
			continue
		}

		rawID := stringField(item, "id", "job_id")
		if rawID == "" {
			rawID = truncate(company+"_"+title, 60)
		}

		location := normalizeLocation(anyField(item, "location", "job_location"))
		if location == "" {
			location = "United States"
		}

		jobs = append(jobs, models.JobPosting{
			JobID:       "intern_" + truncate(rawID, 50),
			Title:       title,
			Company:     company,
			Location:    location,
			URL:         stringField(item, "url", "apply_url", "redirect_url"),
			Description: stringField(item, "description", "job_description"),
			PostedDate:  stringField(item, "date_posted", "posted_date", "created_at"),
			Source:      "Internships API",
		})
	}
	return jobs
}
