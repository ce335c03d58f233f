package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
)

// museSearches covers the engineering-adjacent categories, with extra pages
// for the deepest one.
var museSearches = []struct {
	category string
	page     int
}{
	{"Software Engineering", 0},
	{"Software Engineering", 1},
	{"Software Engineering", 2},
	{"Data Science", 0},
	{"Data and Analytics", 0},
	{"Engineering", 0},
	{"Engineering", 1},
	{"IT", 0},
}

var museEngineeringKeywords = []string{
	"software", "engineer", "developer", "programmer",
	"swe", "backend", "frontend", "full stack", "fullstack",
	"machine learning", "ml ", "data engineer", "platform",
	"devops", "sre", "infrastructure", "cloud engineer",
}

var museSeniorKeywords = []string{
	"senior", "sr.", "staff", "principal", "lead",
	"manager", "director", "architect",
}

// TheMuse pulls the public Muse jobs API. Keyless, 500 requests per hour.
type TheMuse struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

func NewTheMuse(logger *logrus.Logger) *TheMuse {
	return &TheMuse{
		baseURL: "https://www.themuse.com/api/public/jobs",
		client:  newHTTPClient(20 * time.Second),
		logger:  logger,
	}
}

func (m *TheMuse) Name() string { return "TheMuse" }

func (m *TheMuse) IsConfigured() bool { return true }

type museJob struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Contents        string `json:"contents"`
	PublicationDate string `json:"publication_date"`
	Company         struct {
		Name string `json:"name"`
	} `json:"company"`
	Locations []struct {
		Name string `json:"name"`
	} `json:"locations"`
	Refs struct {
		LandingPage string `json:"landing_page"`
	} `json:"refs"`
}

type museResponse struct {
	Results []museJob `json:"results"`
}

// Fetch walks the category battery and keeps non-senior engineering roles.
func (m *TheMuse) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, search := range museSearches {
		params := url.Values{}
		params.Set("category", search.category)
		params.Set("page", fmt.Sprintf("%d", search.page))

		var resp museResponse
		status, err := getJSON(ctx, m.client, m.baseURL+"?"+params.Encode(), nil, &resp)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			m.logger.Warnf("TheMuse HTTP %d for category=%s page=%d", status, search.category, search.page)
			continue
		}

		for _, raw := range resp.Results {
			job, ok := m.parse(raw)
			if !ok || seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
	}
	m.logger.Infof("TheMuse: %d jobs after filtering", len(all))
	return all, nil
}

func (m *TheMuse) parse(raw museJob) (models.JobPosting, bool) {
	title := strings.ToLower(raw.Name)
	desc := strings.ToLower(raw.Contents)

	if !containsAnyKeyword(title, museEngineeringKeywords) &&
		!containsAnyKeyword(desc, museEngineeringKeywords) {
		return models.JobPosting{}, false
	}
	if containsAnyKeyword(title, museSeniorKeywords) {
		return models.JobPosting{}, false
	}

	location := "Remote"
	if len(raw.Locations) > 0 && raw.Locations[0].Name != "" {
		location = raw.Locations[0].Name
	}
	company := raw.Company.Name
	if company == "" {
		company = "Unknown"
	}

	return models.JobPosting{
		JobID:       fmt.Sprintf("muse_%d", raw.ID),
		Company:     company,
		Title:       raw.Name,
		Location:    location,
		URL:         raw.Refs.LandingPage,
		Description: raw.Contents,
		PostedDate:  raw.PublicationDate,
		Source:      "TheMuse",
	}, true
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
