package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/models"
)

// knownLeverSlugs short-circuits slug guessing for common companies and
// saves the 404 round trip.
var knownLeverSlugs = map[string]string{
	"databricks": "databricks",
	"netflix":    "netflix",
	"stripe":     "stripe",
	"airbnb":     "airbnb",
	"figma":      "figma",
	"notion":     "notion",
	"reddit":     "reddit",
	"discord":    "discord",
	"roblox":     "roblox",
	"palantir":   "palantir",
	"plaid":      "plaid",
	"anduril":    "anduril",
	"verkada":    "verkada",
	"scale ai":   "scaleai",
	"brex":       "brex",
	"chime":      "chime",
	"doordash":   "doordash",
	"instacart":  "instacart",
	"lyft":       "lyft",
	"snap":       "snap",
	"spotify":    "spotify",
	"cloudflare": "cloudflare",
	"twitch":     "twitch",
	"cruise":     "cruise",
	"nuro":       "nuro",
	"aurora":     "auroratech",
	"waymo":      "waymo",
	"airtable":   "airtable",
	"grammarly":  "grammarly",
	"duolingo":   "duolingo",
	"dropbox":    "dropbox",
	"quora":      "quora",
	"coinbase":   "coinbase",
	"robinhood":  "robinhood",
	"affirm":     "affirm",
	"gusto":      "gusto",
	"flexport":   "flexport",
	"samsara":    "samsara",
}

var companySuffixes = []string{
	" inc.", " inc", " llc", " ltd", " ltd.",
	" corp.", " corp", " co.", " co",
	" group", " technologies", " technology",
	" services", " solutions", " consulting",
	" software", " systems", " international",
	", inc.", ", inc", ", llc", ", ltd",
}

var (
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]`)
	nonAlnumSpaceRe = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
)

const leverWorkers = 4

// Lever polls the postings API for every roster company whose ATS is Lever,
// guessing board slugs from the company name. Slugs that 404 are remembered
// for the life of the process.
type Lever struct {
	baseURL string
	roster  []companies.Company
	client  *http.Client
	logger  *logrus.Logger

	mu       sync.Mutex
	badSlugs map[string]bool
}

// NewLever builds the adapter over the roster companies using Lever.
func NewLever(roster []companies.Company, logger *logrus.Logger) *Lever {
	var mine []companies.Company
	for _, c := range roster {
		if strings.Contains(strings.ToLower(c.ATSType), "lever") {
			mine = append(mine, c)
		}
	}
	return &Lever{
		baseURL:  "https://api.lever.co/v0/postings",
		roster:   mine,
		client:   newHTTPClient(6 * time.Second),
		logger:   logger,
		badSlugs: make(map[string]bool),
	}
}

func (l *Lever) Name() string { return "Lever" }

// IsConfigured requires at least one Lever company on the roster.
func (l *Lever) IsConfigured() bool { return len(l.roster) > 0 }

type leverPosting struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	HostedURL   string `json:"hostedUrl"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt"`
	Categories  struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// Fetch pulls each roster company's board with a small worker pool.
func (l *Lever) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	work := make(chan companies.Company)
	results := make(chan []models.JobPosting)

	var wg sync.WaitGroup
	for i := 0; i < leverWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for company := range work {
				results <- l.fetchCompany(ctx, company)
			}
		}()
	}

	go func() {
		for _, c := range l.roster {
			if ctx.Err() != nil {
				break
			}
			work <- c
		}
		close(work)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var all []models.JobPosting
	for jobs := range results {
		all = append(all, jobs...)
	}
	l.logger.Infof("Lever total: %d jobs from %d companies", len(all), len(l.roster))
	return all, ctx.Err()
}

func (l *Lever) fetchCompany(ctx context.Context, company companies.Company) []models.JobPosting {
	for _, slug := range l.slugCandidates(company) {
		if l.isBadSlug(slug) {
			continue
		}

		var postings []leverPosting
		status, err := getJSON(ctx, l.client,
			fmt.Sprintf("%s/%s?mode=json", l.baseURL, slug), nil, &postings)
		if status == 404 {
			l.markBadSlug(slug)
			continue
		}
		if err != nil {
			continue
		}
		if len(postings) == 0 {
			continue
		}

		jobs := make([]models.JobPosting, 0, len(postings))
		for _, p := range postings {
			location := p.Categories.Location
			if location == "" {
				location = "Not specified"
			}
			posted := ""
			if p.CreatedAt > 0 {
				posted = time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02")
			}
			jobs = append(jobs, models.JobPosting{
				JobID:       fmt.Sprintf("lv_%s_%s", slug, p.ID),
				Company:     company.Name,
				Title:       p.Text,
				Location:    location,
				URL:         p.HostedURL,
				Description: p.Description,
				PostedDate:  posted,
				Source:      "Lever",
			})
		}
		return FilterNewGrad(jobs)
	}
	return nil
}

// slugCandidates yields at most two slugs: explicit override or known slug
// first, then the sanitized company name.
func (l *Lever) slugCandidates(company companies.Company) []string {
	var slugs []string
	add := func(s string) {
		if s == "" {
			return
		}
		for _, existing := range slugs {
			if existing == s {
				return
			}
		}
		slugs = append(slugs, s)
	}

	if company.LeverName != "" {
		add(strings.ToLower(strings.TrimSpace(company.LeverName)))
	}

	nameLower := strings.ToLower(strings.TrimSpace(company.Name))
	for key, slug := range knownLeverSlugs {
		if strings.Contains(nameLower, key) {
			add(slug)
			break
		}
	}

	clean := nameLower
	for _, suffix := range companySuffixes {
		if strings.HasSuffix(clean, suffix) {
			clean = clean[:len(clean)-len(suffix)]
		}
	}

	if s := nonAlnumRe.ReplaceAllString(clean, ""); len(s) > 2 {
		add(s)
	}
	hyphenated := nonAlnumSpaceRe.ReplaceAllString(clean, "")
	hyphenated = spaceRunRe.ReplaceAllString(strings.TrimSpace(hyphenated), "-")
	add(hyphenated)

	if len(slugs) > 2 {
		slugs = slugs[:2]
	}
	return slugs
}

func (l *Lever) isBadSlug(slug string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.badSlugs[slug]
}

func (l *Lever) markBadSlug(slug string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.badSlugs[slug] = true
}
