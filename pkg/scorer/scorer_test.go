package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/models"
)

func newTestScorer(t *testing.T, resume string) *Scorer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)

	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte(resume), 0o644))
	return New(path, logger)
}

const testResume = `Built services in Python, Go and Java backed by Postgres and Redis.
Deployed with Docker, Kubernetes and Terraform on AWS. CI with GitHub Actions.
ML work with PyTorch, TensorFlow and scikit-learn. Kafka pipelines, REST APIs.`

func TestNewMissingResumeUsesDefaults(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s := New(filepath.Join(t.TempDir(), "nope.txt"), logger)
	assert.NotEmpty(t, s.ResumeSkills())
	assert.Contains(t, s.ResumeSkills(), "python")
}

func TestExtractSkillsAliases(t *testing.T) {
	skills := ExtractSkills("experience with React.js, Node.js, Golang, k8s and PostgreSQL")
	assert.Contains(t, skills, "react")
	assert.Contains(t, skills, "node")
	assert.Contains(t, skills, "go")
	assert.Contains(t, skills, "kubernetes")
	assert.Contains(t, skills, "postgres")
	assert.NotContains(t, skills, "golang")
	assert.NotContains(t, skills, "reactjs")
}

func TestExtractSkillsWordBoundaries(t *testing.T) {
	skills := ExtractSkills("we build scalable systems")
	assert.NotContains(t, skills, "r")
	assert.NotContains(t, skills, "go")
}

func TestIsTechnicalRole(t *testing.T) {
	assert.True(t, IsTechnicalRole("Software Engineer, New Grad"))
	assert.True(t, IsTechnicalRole("Backend Developer"))
	assert.False(t, IsTechnicalRole("Senior Software Engineer"))
	assert.False(t, IsTechnicalRole("Account Executive"))
	assert.False(t, IsTechnicalRole("Mechanical Engineer"))
	// Junior marker lets a level-1 title through the seniority filter.
	assert.True(t, IsTechnicalRole("Software Engineer I (Entry Level)"))
}

func TestCheckDealbreakers(t *testing.T) {
	deal := CheckDealbreakers("Applicants must be a U.S. citizen for this role.")
	assert.True(t, deal.Found)
	require.NotEmpty(t, deal.Reasons)

	deal = CheckDealbreakers("We are unable to provide visa sponsorship at this time.")
	assert.True(t, deal.Found)

	deal = CheckDealbreakers("H1B sponsorship available for qualified candidates.")
	assert.False(t, deal.Found)
	assert.True(t, deal.SponsorshipPositive)
}

func TestScoreSeniorRoleIsZero(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Senior Software Engineer",
		Company:     "Stripe",
		Description: "Python, Go, Kubernetes, AWS",
	}
	assert.Equal(t, 0, s.Score(job, companies.History{}))
}

func TestScoreDealbreakerIsZero(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Software Engineer, New Grad",
		Company:     "Raytheon",
		Description: "Active secret clearance required. Python, Go, AWS.",
	}
	assert.Equal(t, 0, s.Score(job, companies.History{NewHires: 500}))
}

func TestScoreNewGradTierOneClampsAt100(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:   "Software Engineer, New Grad",
		Company: "Google",
		Description: `Python, Go, Java, Postgres, Redis, Docker, Kubernetes,
Terraform, AWS, Kafka, PyTorch, TensorFlow, REST APIs, GitHub Actions.
H1B sponsorship available.`,
	}
	// 10 base + 30 skills + 25 new grad + 20 hires + 5 sponsorship + 15 tier
	// exceeds the cap.
	assert.Equal(t, 100, s.Score(job, companies.History{NewHires: 150}))
}

func TestScoreSponsorshipPositiveOverridesDealbreaker(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Junior Backend Developer",
		Company:     "Acme",
		Description: "No sponsorship for contractors, but H1B sponsorship available for full time. Python, Postgres.",
	}
	assert.Greater(t, s.Score(job, companies.History{}), 0)
}

func TestScoreMonotonicInHiringHistory(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Software Engineer, Entry Level",
		Company:     "Acme",
		Description: "Python and Postgres services on AWS.",
	}

	prev := -1
	for _, hires := range []int{0, 1, 10, 20, 50, 100} {
		score := s.Score(job, companies.History{NewHires: hires})
		assert.GreaterOrEqual(t, score, prev, "hires=%d", hires)
		prev = score
	}
}

func TestExplainZeroScore(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Software Engineer, New Grad",
		Company:     "Acme",
		Description: "Must be a US citizen.",
	}
	text := s.Explain(job, 0)
	assert.Contains(t, text, "Dealbreaker")

	job.Description = "Python services"
	job.Title = "Account Executive"
	assert.Equal(t, "Not a matching technical role", s.Explain(job, 0))
}

func TestAnalyze(t *testing.T) {
	s := newTestScorer(t, testResume)
	job := &models.JobPosting{
		Title:       "Software Engineer, New Grad",
		Company:     "Acme",
		Description: "Python, Rust, Postgres and Kafka. H1B sponsorship available.",
	}

	a := s.Analyze(job)
	assert.Contains(t, a.MatchingSkills, "python")
	assert.Contains(t, a.MissingSkills, "rust")
	assert.NotContains(t, a.MatchingSkills, "rust")
	assert.True(t, a.Dealbreaker.SponsorshipPositive)
	assert.Greater(t, a.MatchPercentage, 0)
	assert.LessOrEqual(t, a.MatchPercentage, 100)
}
