package notify

import (
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/pkg/config"
	"jobtrack/pkg/models"
)

func newTestMailer() (*Mailer, *[]string) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := NewMailer(config.EmailConfig{
		From:       "me@example.com",
		To:         "me@example.com",
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		Password:   "app-password",
	}, logger)

	var sent []string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, string(msg))
		return nil
	}
	m.now = func() time.Time {
		return time.Date(2026, time.August, 29, 9, 30, 0, 0, time.UTC)
	}
	return m, &sent
}

func sampleJob(id string, score int) models.JobPosting {
	return models.JobPosting{
		JobID:    id,
		Title:    "Software Engineer, New Grad",
		Company:  "Stripe",
		Location: "Remote",
		URL:      "https://example.com/" + id,
		Source:   "Greenhouse",
		Score:    score,
	}
}

func TestSendDigestRendersTopJobs(t *testing.T) {
	m, sent := newTestMailer()

	jobs := []models.JobPosting{sampleJob("a", 72), sampleJob("b", 45)}
	require.NoError(t, m.SendDigest(jobs, 9))

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Contains(t, msg, "Subject: Top 2 Job Matches - 9 new jobs found")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "1. Software Engineer, New Grad")
	assert.Contains(t, msg, "#22c55e")
	assert.Contains(t, msg, "#eab308")
	assert.Contains(t, msg, "+ 7 more jobs")
	assert.Contains(t, msg, "August 29, 2026")
}

func TestSendDigestSkipsWithoutPassword(t *testing.T) {
	m, sent := newTestMailer()
	m.password = "your_app_password"

	require.NoError(t, m.SendDigest([]models.JobPosting{sampleJob("a", 50)}, 1))
	assert.Empty(t, *sent)
	assert.False(t, m.IsConfigured())
}

func TestSendDigestEmptyIsNoop(t *testing.T) {
	m, sent := newTestMailer()
	require.NoError(t, m.SendDigest(nil, 0))
	assert.Empty(t, *sent)
}

func TestSendAlertFallbacks(t *testing.T) {
	m, sent := newTestMailer()

	job := sampleJob("a", 80)
	require.NoError(t, m.SendAlert(&job))

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Contains(t, msg, "Subject: NEW JOB MATCH (Score: 80) - Stripe")
	assert.Contains(t, msg, "Recently")
	assert.Contains(t, msg, "Good skill match with your profile")
}
