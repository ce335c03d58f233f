package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
)

var remotiveCategories = []string{"software-dev", "data", "devops"}

// Remotive serves remote tech jobs. Keyless, but the API asks for at most
// a couple of requests per minute.
type Remotive struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func NewRemotive(logger *logrus.Logger) *Remotive {
	return &Remotive{
		baseURL: "https://remotive.com/api/remote-jobs",
		client:  newHTTPClient(15 * time.Second),
		logger:  logger,
	}
}

func (r *Remotive) Name() string { return "Remotive" }

func (r *Remotive) IsConfigured() bool { return true }

type remotiveJob struct {
	ID                        int64  `json:"id"`
	Title                     string `json:"title"`
	CompanyName               string `json:"company_name"`
	URL                       string `json:"url"`
	Description               string `json:"description"`
	PublicationDate           string `json:"publication_date"`
	CandidateRequiredLocation string `json:"candidate_required_location"`
}

type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

func (r *Remotive) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, category := range remotiveCategories {
		jobs, err := r.fetchCategory(ctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			r.logger.Warnf("Remotive error [%s]: %v", category, err)
			continue
		}
		r.logger.Infof("Remotive [%s]: %d jobs", category, len(jobs))
		for _, job := range jobs {
			if seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
	}
	r.logger.Infof("Found %d jobs from Remotive", len(all))
	return all, nil
}

func (r *Remotive) fetchCategory(ctx context.Context, category string) ([]models.JobPosting, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("limit", "100")

	var resp remotiveResponse
	if _, err := getJSON(ctx, r.client, r.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(resp.Jobs))
	for _, raw := range resp.Jobs {
		location := raw.CandidateRequiredLocation
		if location == "" {
			location = "Remote"
		}
		jobs = append(jobs, models.JobPosting{
			JobID:       fmt.Sprintf("remotive_%d", raw.ID),
			Title:       raw.Title,
			Company:     raw.CompanyName,
			Location:    location,
			URL:         raw.URL,
			Description: raw.Description,
			PostedDate:  raw.PublicationDate,
			Source:      "Remotive",
		})
	}
	return FilterNewGrad(jobs), nil
}
