package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
)

// simplifyRepos are the community-curated GitHub listing files.
var simplifyRepos = []struct {
	jsonURL string
	name    string
	tag     string
}{
	{
		jsonURL: "https://raw.githubusercontent.com/SimplifyJobs/New-Grad-Positions/dev/.github/scripts/listings.json",
		name:    "New Grad",
		tag:     "new_grad",
	},
	{
		jsonURL: "https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/dev/.github/scripts/listings.json",
		name:    "Summer 2026 Internships",
		tag:     "intern_2026",
	},
}

var simplifyAllowedCategories = map[string]bool{
	"software engineering": true, "software": true, "swe": true,
	"data science": true, "machine learning": true, "ai": true,
	"artificial intelligence": true,
}

var simplifySkipCategories = map[string]bool{
	"quantitative finance": true, "quant": true, "hardware": true,
	"product management": true, "product design": true, "business": true,
	"marketing": true, "sales": true, "finance": true, "accounting": true,
	"mechanical": true, "electrical": true, "civil": true,
}

var simplifyTitleKeywords = []string{
	"software", "engineer", "developer", "swe", "sde",
	"backend", "frontend", "full stack", "fullstack", "full-stack",
	"devops", "sre", "cloud", "infrastructure", "platform",
	"machine learning", "ml ", "ai ", "data scientist", "data engineer",
	"research scientist", "applied scientist", "nlp", "computer vision",
	"security engineer", "systems engineer",
}

var nonUSMarkers = []string{
	", canada", ", on,", ", bc,", ", ab,", ", qc,",
	"toronto", "vancouver", "montreal", "ottawa", "calgary",
	"waterloo, on", "ontario", "british columbia", "alberta", "quebec",
	", uk", "united kingdom", "london, england", "england",
	", gb", "cambridge, uk", "oxford, uk",
	", germany", ", france", ", india", ", japan",
	", australia", ", singapore", ", ireland",
	", israel", ", netherlands", ", brazil",
}

const simplifyMaxAgeDays = 7

type simplifyListing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	CompanyURL  string   `json:"company_url"`
	URL         string   `json:"url"`
	Category    string   `json:"category"`
	Sponsorship string   `json:"sponsorship"`
	Locations   []string `json:"locations"`
	DatePosted  int64    `json:"date_posted"`
	Active      *bool    `json:"active"`
	IsVisible   *bool    `json:"is_visible"`
}

// SimplifyJobs reads the SimplifyJobs GitHub listing files and keeps US
// software and AI roles posted within the last week.
type SimplifyJobs struct {
	client *http.Client
	logger *logrus.Logger
	// urlOverride replaces every repo URL, for tests.
	urlOverride string
	now         func() time.Time
}

func NewSimplifyJobs(logger *logrus.Logger) *SimplifyJobs {
	return &SimplifyJobs{
		client: newHTTPClient(30 * time.Second),
		logger: logger,
		now:    time.Now,
	}
}

func (s *SimplifyJobs) Name() string { return "SimplifyJobs" }

func (s *SimplifyJobs) IsConfigured() bool { return true }

func (s *SimplifyJobs) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	seen := make(map[string]bool)

	for _, repo := range simplifyRepos {
		jsonURL := repo.jsonURL
		if s.urlOverride != "" {
			jsonURL = s.urlOverride
		}

		jobs, err := s.fetchRepo(ctx, jsonURL, repo.name, repo.tag)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			s.logger.Warnf("SimplifyJobs error [%s]: %v", repo.name, err)
			continue
		}
		for _, job := range jobs {
			if seen[job.JobID] {
				continue
			}
			seen[job.JobID] = true
			all = append(all, job)
		}
	}
	s.logger.Infof("Found %d recent SWE/AI jobs from SimplifyJobs", len(all))
	return all, nil
}

func (s *SimplifyJobs) fetchRepo(ctx context.Context, jsonURL, repoName, tag string) ([]models.JobPosting, error) {
	var listings []simplifyListing
	status, err := getJSON(ctx, s.client, jsonURL, nil, &listings)
	if status == 404 {
		s.logger.Warnf("listings.json not found for %s", repoName)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	cutoff := now.Add(-simplifyMaxAgeDays * 24 * time.Hour).Unix()

	var (
		jobs                       []models.JobPosting
		closed, old, filtered, kept int
	)
	for _, item := range listings {
		if (item.Active != nil && !*item.Active) || (item.IsVisible != nil && !*item.IsVisible) {
			closed++
			continue
		}
		// Recency is mandatory; listings without a date cannot be verified.
		if item.DatePosted <= 0 || item.DatePosted < cutoff {
			old++
			continue
		}
		if !s.isSWEOrAI(item) {
			filtered++
			continue
		}

		locations := item.Locations
		if len(locations) > 3 {
			locations = locations[:3]
		}
		locStr := strings.Join(locations, ", ")
		if locStr == "" {
			locStr = "United States"
		}
		if isNonUS(locStr, item.Locations) {
			filtered++
			continue
		}

		if item.CompanyName == "" || item.Title == "" {
			continue
		}

		jobURL := item.URL
		if jobURL == "" {
			jobURL = item.CompanyURL
		}

		posted := time.Unix(item.DatePosted, 0).UTC()
		ageDays := int(now.Sub(posted).Hours() / 24)

		rawID := item.ID
		if rawID == "" {
			rawID = truncate(item.CompanyName, 15) + "_" + truncate(item.Title, 20)
		}
		jobID := strings.ToLower(strings.ReplaceAll(
			fmt.Sprintf("simplify_%s_%s", tag, rawID), " ", "_"))
		jobID = truncate(jobID, 80)

		descParts := []string{
			fmt.Sprintf("%s at %s.", item.Title, item.CompanyName),
			fmt.Sprintf("Location: %s.", locStr),
		}
		if item.Category != "" {
			descParts = append(descParts, fmt.Sprintf("Category: %s.", item.Category))
		}
		if item.Sponsorship != "" {
			descParts = append(descParts, fmt.Sprintf("Sponsorship: %s.", item.Sponsorship))
		}
		descParts = append(descParts,
			fmt.Sprintf("Source: SimplifyJobs (%s). Posted %dd ago.", repoName, ageDays))

		jobs = append(jobs, models.JobPosting{
			JobID:       jobID,
			Title:       item.Title,
			Company:     item.CompanyName,
			Location:    locStr,
			URL:         jobURL,
			Description: strings.Join(descParts, " "),
			PostedDate:  posted.Format("2006-01-02"),
			Source:      "SimplifyJobs",
		})
		kept++
	}

	s.logger.Infof("SimplifyJobs [%s]: %d jobs (of %d total, %d closed, %d old, %d filtered)",
		repoName, kept, len(listings), closed, old, filtered)
	return FilterNewGrad(jobs), nil
}

func (s *SimplifyJobs) isSWEOrAI(item simplifyListing) bool {
	category := strings.ToLower(strings.TrimSpace(item.Category))
	if category != "" {
		if simplifyAllowedCategories[category] {
			return true
		}
		if simplifySkipCategories[category] {
			return false
		}
		for allowed := range simplifyAllowedCategories {
			if strings.Contains(category, allowed) {
				return true
			}
		}
	}

	title := strings.ToLower(item.Title)
	for _, kw := range simplifyTitleKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func isNonUS(locStr string, locations []string) bool {
	check := strings.ToLower(locStr)
	for _, marker := range nonUSMarkers {
		if strings.Contains(check, marker) {
			return true
		}
	}
	for _, loc := range locations {
		lower := strings.ToLower(loc)
		for _, p := range []string{
			"canada", ", on", ", bc", ", ab", ", qc", ", ns", ", mb",
			"toronto", "vancouver", "montreal", "ottawa",
			"united kingdom", ", uk", "england",
		} {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
