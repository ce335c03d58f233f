package models

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobPosting is the common record shape every source adapter normalizes into.
// JobID is source-prefixed (e.g. "gh_stripe_12345") and is the persistence
// identity; the in-run dedup key is derived from title+company instead.
type JobPosting struct {
	JobID            string    `json:"job_id"`
	Company          string    `json:"company"`
	Title            string    `json:"title"`
	Location         string    `json:"location"`
	URL              string    `json:"url"`
	Description      string    `json:"description"`
	PostedDate       string    `json:"posted_date"` // ISO date or source-native string
	Source           string    `json:"source"`
	Score            int       `json:"score"`
	ScoreExplanation string    `json:"score_explanation"`
	Status           string    `json:"status"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	Notified         bool      `json:"notified"`
	Archived         bool      `json:"archived"`
	AppliedDate      string    `json:"applied_date,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// ScrapeLog is one append-only run history row. It is written for
// observability only and never consulted by control flow.
type ScrapeLog struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	SourcesAttempted int       `json:"sources_attempted"`
	JobsFound        int       `json:"jobs_found"`
	NewJobs          int       `json:"new_jobs"`
	Errors           int       `json:"errors"`
}

// RunSummary aggregates the counters of a single scrape run.
type RunSummary struct {
	TotalJobs     int            `json:"total_jobs"`
	NewJobs       []JobPosting   `json:"new_jobs"`
	HighScoreJobs []JobPosting   `json:"high_score_jobs"`
	Errors        int            `json:"errors"`
	Sources       map[string]int `json:"sources"`
}

// JobQuery is the dashboard list query (pagination, search, filters).
type JobQuery struct {
	Page      int
	PerPage   int
	Search    string
	MinScore  int
	MaxScore  int
	SortBy    string // score, date, company
	SortOrder string // asc, desc
	Status    string
	Source    string
}

// JobPage is one page of dashboard results.
type JobPage struct {
	Jobs       []JobPosting `json:"jobs"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

// SourceCount is one entry of the consolidated source breakdown.
type SourceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats holds the dashboard summary counters.
type Stats struct {
	TotalJobs     int           `json:"total_jobs"`
	HighScoreJobs int           `json:"high_score_jobs"`
	NewJobs       int           `json:"new_jobs"`
	Interested    int           `json:"interested"`
	Applied       int           `json:"applied"`
	Interviewing  int           `json:"interviewing"`
	Offers        int           `json:"offers"`
	Rejected      int           `json:"rejected"`
	Sources       []SourceCount `json:"sources"`
}

// IsValid reports whether a posting carries the minimum fields worth keeping.
func (j *JobPosting) IsValid() bool {
	return j.Title != "" && j.Company != ""
}

// NormalizedKey returns the normalized "title|company" string shared by the
// dedup key and the archive-suppression key: lower-cased, trimmed, with a
// leading "the " stripped from the company name.
func NormalizedKey(title, company string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	c := strings.ToLower(strings.TrimSpace(company))
	c = strings.TrimPrefix(c, "the ")
	return t + "|" + c
}

// DedupKey hashes the normalized title+company. Two postings from different
// sources with equal keys collapse to the first one observed.
func DedupKey(title, company string) string {
	hash := md5.Sum([]byte(NormalizedKey(title, company)))
	return fmt.Sprintf("%x", hash)
}

// DedupKey returns the posting's cross-source dedup key.
func (j *JobPosting) DedupKey() string {
	return DedupKey(j.Title, j.Company)
}

// ArchiveKey returns the sticky-archive identity for the posting. The exact
// mode keeps raw title|company; the default normalized mode shares the dedup
// normalization, so a job archived once stays suppressed across re-scrapes
// even when it reappears under a new JobID.
func (j *JobPosting) ArchiveKey(mode string) string {
	if mode == "exact" {
		return j.Title + "|" + j.Company
	}
	return NormalizedKey(j.Title, j.Company)
}

func (j *JobPosting) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func (j *JobPosting) FromJSON(data []byte) error {
	return json.Unmarshal(data, j)
}
