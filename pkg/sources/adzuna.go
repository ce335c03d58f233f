package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"jobtrack/pkg/config"
	"jobtrack/pkg/models"
)

var adzunaQueries = []string{
	"software engineer new grad",
	"software engineer intern",
	"software developer entry level",
	"backend engineer junior",
	"machine learning engineer",
	"data engineer entry level",
	"full stack developer junior",
}

// Adzuna searches the Adzuna aggregator, US listings from the last week.
type Adzuna struct {
	baseURL string
	appID   string
	appKey  string
	country string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewAdzuna(cfg config.AdzunaConfig, logger *logrus.Logger) *Adzuna {
	return &Adzuna{
		baseURL: "https://api.adzuna.com/v1/api/jobs",
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		country: "us",
		client:  newHTTPClient(15 * time.Second),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:  logger,
	}
}

func (a *Adzuna) Name() string { return "Adzuna" }

func (a *Adzuna) IsConfigured() bool {
	switch a.appID {
	case "", "placeholder", "YOUR_APP_ID":
		return false
	}
	return a.appKey != ""
}

type adzunaJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	RedirectURL string `json:"redirect_url"`
	Created     string `json:"created"`
	Location    struct {
		DisplayName string   `json:"display_name"`
		Area        []string `json:"area"`
	} `json:"location"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
}

type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
}

func (a *Adzuna) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, query := range adzunaQueries {
		jobs, err := a.search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			a.logger.Warnf("Adzuna error for %q: %v", query, err)
			continue
		}
		for _, job := range jobs {
			if job.JobID == "" || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
		a.logger.Infof("Adzuna %q: %d jobs (%d total unique)", query, len(jobs), len(all))

		if err := a.limiter.Wait(ctx); err != nil {
			return all, err
		}
	}
	a.logger.Infof("Found %d jobs from Adzuna", len(all))
	return all, nil
}

func (a *Adzuna) search(ctx context.Context, query string) ([]models.JobPosting, error) {
	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", "50")
	params.Set("what", query)
	params.Set("content-type", "application/json")
	params.Set("max_days_old", "7")

	reqURL := fmt.Sprintf("%s/%s/search/1?%s", a.baseURL, a.country, params.Encode())

	var resp adzunaResponse
	if _, err := getJSON(ctx, a.client, reqURL, nil, &resp); err != nil {
		return nil, err
	}

	jobs := make([]models.JobPosting, 0, len(resp.Results))
	for _, raw := range resp.Results {
		location := raw.Location.DisplayName
		if location == "" && len(raw.Location.Area) > 0 {
			area := raw.Location.Area
			if len(area) >= 2 {
				area = area[len(area)-2:]
			}
			location = strings.Join(area, ", ")
		}

		title := strings.NewReplacer("<strong>", "", "</strong>", "").Replace(raw.Title)

		jobs = append(jobs, models.JobPosting{
			JobID:       "adzuna_" + raw.ID,
			Title:       title,
			Company:     raw.Company.DisplayName,
			Location:    location,
			URL:         raw.RedirectURL,
			Description: raw.Description,
			PostedDate:  raw.Created,
			Source:      "Adzuna",
		})
	}
	return FilterNewGrad(jobs), nil
}
