// Package scorer ranks job postings against a resume on a 0-100 scale.
// A posting that fails the technical-role gate or trips a dealbreaker
// scores 0 and never reaches the database.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/models"
)

// defaultResumeSkills keep scoring useful before a resume is configured.
var defaultResumeSkills = []string{
	"python", "java", "c++", "javascript", "sql", "scala", "kotlin", "haskell",
	"tensorflow", "pytorch", "keras", "ml", "ai", "machine learning",
	"flask", "fastapi", "django", "react", "node", "spring",
	"aws", "docker", "kubernetes", "postgres", "mongodb", "redis",
	"kafka", "nlp", "llm", "rag", "langchain", "hugging face",
	"data pipeline", "etl", "ci/cd", "github actions",
	"linux", "rest", "api", "microservices",
}

// Scorer holds the parsed resume skill set. Swapping the resume file and
// rebuilding the Scorer re-scores everything on the next run.
type Scorer struct {
	resumeSkills []string
	logger       *logrus.Logger
}

// Analysis is the full skill breakdown for one posting.
type Analysis struct {
	JobSkills        []string     `json:"job_skills"`
	MatchingSkills   []string     `json:"matching_skills"`
	MissingSkills    []string     `json:"missing_skills"`
	ExtraSkills      []string     `json:"extra_skills"`
	MatchPercentage  int          `json:"match_percentage"`
	Dealbreaker      Dealbreakers `json:"dealbreaker"`
	ResumeSkillCount int          `json:"resume_skill_count"`
}

// New builds a Scorer from a plain-text resume export. A missing or
// unreadable resume falls back to the default skill set.
func New(resumePath string, logger *logrus.Logger) *Scorer {
	s := &Scorer{logger: logger}

	data, err := os.ReadFile(resumePath)
	if err != nil {
		logger.Warnf("No resume at %s, using default skills", resumePath)
		s.resumeSkills = append([]string(nil), defaultResumeSkills...)
		return s
	}

	s.resumeSkills = ExtractSkills(string(data))
	if len(s.resumeSkills) == 0 {
		logger.Warn("Resume yielded no recognizable skills, using defaults")
		s.resumeSkills = append([]string(nil), defaultResumeSkills...)
		return s
	}
	logger.Infof("Parsed resume: %d skills detected", len(s.resumeSkills))
	return s
}

// ResumeSkills returns the active skill set.
func (s *Scorer) ResumeSkills() []string {
	return s.resumeSkills
}

// Score rates a posting 0-100. Components: base 10, skill overlap up to 30,
// seniority fit up to 25, sponsorship history up to 20 plus a 5 point
// explicit-offer bonus, company tier up to 15. Gate failures return 0.
func (s *Scorer) Score(job *models.JobPosting, history companies.History) int {
	text := strings.ToLower(job.Title + " " + job.Description)

	if !IsTechnicalRole(job.Title) {
		return 0
	}
	deal := CheckDealbreakers(job.Description)
	if deal.Found && !deal.SponsorshipPositive {
		return 0
	}

	score := 10

	// Skill overlap.
	jobSkills := ExtractSkills(text)
	n := len(intersect(s.resumeSkills, jobSkills))
	switch {
	case n >= 12:
		score += 30
	case n >= 8:
		score += 25
	case n >= 5:
		score += 20
	case n >= 3:
		score += 15
	case n >= 1:
		score += n * 5
	}

	// Seniority fit.
	title := strings.ToLower(job.Title)
	switch {
	case containsAny(title, []string{"new grad", "new graduate"}):
		score += 25
	case strings.Contains(title, "early career"):
		score += 22
	case containsAny(title, []string{"entry level", "entry-level"}):
		score += 22
	case containsAny(title, []string{"junior", "jr.", "jr "}):
		score += 18
	case containsAny(title, []string{"associate", " i ", " i,", " 1 "}):
		score += 15
	case containsAny(text, []string{"0-2 years", "0-1 year", "1-2 years",
		"recent graduate", "new grads", "entry level", "early career"}):
		score += 12
	default:
		score += 5
	}

	// Sponsorship history.
	switch {
	case history.NewHires >= 100:
		score += 20
	case history.NewHires >= 50:
		score += 16
	case history.NewHires >= 20:
		score += 12
	case history.NewHires >= 10:
		score += 8
	case history.NewHires >= 1:
		score += 4
	}
	if deal.SponsorshipPositive {
		score += 5
	}

	score += companyTierBonus(job.Company)

	if score > 100 {
		score = 100
	}
	return score
}

var (
	tier1Companies = []string{"google", "meta", "amazon", "apple", "microsoft", "netflix"}
	tier2Companies = []string{"uber", "linkedin", "stripe", "goldman", "morgan stanley",
		"jpmorgan", "bloomberg", "citadel", "two sigma"}
	tier3Companies = []string{"openai", "anthropic", "databricks", "snowflake",
		"notion", "figma", "datadog", "coinbase", "roblox"}
)

func companyTierBonus(company string) int {
	co := strings.ToLower(company)
	switch {
	case containsAny(co, tier1Companies):
		return 15
	case containsAny(co, tier2Companies):
		return 13
	case containsAny(co, tier3Companies):
		return 11
	default:
		return 5
	}
}

// Explain renders a short human-readable breakdown for the dashboard.
func (s *Scorer) Explain(job *models.JobPosting, score int) string {
	if score == 0 {
		deal := CheckDealbreakers(job.Description)
		if deal.Found {
			reason := "citizenship/clearance required"
			if len(deal.Reasons) > 0 {
				reason = deal.Reasons[0]
			}
			return "Dealbreaker: " + reason
		}
		return "Not a matching technical role"
	}

	text := strings.ToLower(job.Title + " " + job.Description)
	jobSkills := ExtractSkills(text)
	matching := intersect(s.resumeSkills, jobSkills)
	missing := subtract(jobSkills, s.resumeSkills)

	var parts []string
	if len(matching) > 0 {
		parts = append(parts, fmt.Sprintf("Matching skills (%d): %s",
			len(matching), strings.Join(head(matching, 8), ", ")))
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("Skills to learn (%d): %s",
			len(missing), strings.Join(head(missing, 6), ", ")))
	}

	title := strings.ToLower(job.Title)
	switch {
	case strings.Contains(title, "new grad"):
		parts = append(parts, "New Grad role")
	case strings.Contains(title, "early career"):
		parts = append(parts, "Early Career")
	case containsAny(title, []string{"junior", "entry"}):
		parts = append(parts, "Junior / Entry-Level")
	}

	if CheckDealbreakers(job.Description).SponsorshipPositive {
		parts = append(parts, "Visa sponsorship available")
	}

	company := job.Company
	if company == "" {
		company = "Unknown"
	}
	parts = append(parts, "Company: "+company)

	return strings.Join(parts, "\n")
}

// Analyze returns the structured skill comparison for the detail view.
func (s *Scorer) Analyze(job *models.JobPosting) Analysis {
	text := strings.ToLower(job.Title + " " + job.Description)
	jobSkills := ExtractSkills(text)
	matching := intersect(s.resumeSkills, jobSkills)
	missing := subtract(jobSkills, s.resumeSkills)
	extra := subtract(s.resumeSkills, jobSkills)

	matchPct := 0
	if len(jobSkills) > 0 {
		matchPct = int(float64(len(matching))/float64(len(jobSkills))*100 + 0.5)
	}

	return Analysis{
		JobSkills:        jobSkills,
		MatchingSkills:   matching,
		MissingSkills:    missing,
		ExtraSkills:      extra,
		MatchPercentage:  matchPct,
		Dealbreaker:      CheckDealbreakers(job.Description),
		ResumeSkillCount: len(s.resumeSkills),
	}
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
