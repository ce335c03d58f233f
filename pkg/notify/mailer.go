// Package notify sends email digests for freshly scored jobs.
package notify

import (
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/config"
	"jobtrack/pkg/models"
)

// placeholderPasswords are values that mean "not configured yet".
var placeholderPasswords = map[string]bool{
	"":                  true,
	"a":                 true,
	"your_app_password": true,
	"placeholder":       true,
}

// Mailer delivers HTML email over SMTP with STARTTLS. When no app
// password is configured every send becomes a logged no-op, which keeps
// the pipeline runnable without mail credentials.
type Mailer struct {
	from     string
	to       string
	server   string
	port     int
	password string
	logger   *logrus.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now  func() time.Time
}

func NewMailer(cfg config.EmailConfig, logger *logrus.Logger) *Mailer {
	return &Mailer{
		from:     cfg.From,
		to:       cfg.To,
		server:   cfg.SMTPServer,
		port:     cfg.SMTPPort,
		password: cfg.Password,
		logger:   logger,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

// IsConfigured reports whether a real app password is present.
func (m *Mailer) IsConfigured() bool {
	return !placeholderPasswords[m.password]
}

var digestFuncs = template.FuncMap{
	"scoreColor": scoreColor,
	"inc":        func(i int) int { return i + 1 },
}

var digestTmpl = template.Must(template.New("digest").Funcs(digestFuncs).Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #38bdf8;">Your Top Job Matches</h2>
  <p>Found <strong>{{.Total}} new jobs</strong>. Here are the top {{len .Jobs}}:</p>
  {{range $i, $job := .Jobs}}
  <div style="background-color: #f8f9fa; padding: 15px; margin: 10px 0; border-radius: 8px; border-left: 4px solid {{scoreColor $job.Score}};">
    <h4 style="margin: 0 0 8px 0;">{{inc $i}}. {{$job.Title}}</h4>
    <p style="margin: 4px 0;"><strong>{{$job.Company}}</strong> &middot; {{$job.Location}}</p>
    <p style="margin: 4px 0;">Score: <strong style="color: {{scoreColor $job.Score}};">{{$job.Score}}/100</strong> &middot; {{$job.Source}}</p>
    <a href="{{$job.URL}}" style="color: #3498db; text-decoration: none; font-weight: bold;">Apply</a>
  </div>
  {{end}}
  {{if gt .Remaining 0}}<p style="text-align:center; color:#7f8c8d;">+ {{.Remaining}} more jobs in your dashboard</p>{{end}}
  <hr style="margin: 30px 0; border: none; border-top: 1px solid #ddd;">
  <p style="color: #7f8c8d; font-size: 12px;">
    Job Tracker &middot; {{.Date}} &middot; <a href="http://localhost:5000">Open Dashboard</a>
  </p>
</body>
</html>`))

var alertTmpl = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2 style="color: #2ecc71;">New Job Match</h2>
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #333;">{{.Title}}</h3>
    <p><strong>Company:</strong> {{.Company}}</p>
    <p><strong>Location:</strong> {{.Location}}</p>
    <p><strong>Score:</strong> {{.Score}}/100</p>
    <p><strong>Posted:</strong> {{.Posted}}</p>
  </div>
  <div style="margin: 20px 0;">
    <h4>Why this is a good match:</h4>
    <pre style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; white-space: pre-wrap;">{{.Explanation}}</pre>
  </div>
  <div style="margin: 30px 0;">
    <a href="{{.URL}}" style="background-color: #3498db; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px; display: inline-block; font-weight: bold;">APPLY NOW</a>
  </div>
</body>
</html>`))

// SendDigest emails a summary of the top jobs. total is the full count of
// new matches, of which len(jobs) appear in the body.
func (m *Mailer) SendDigest(jobs []models.JobPosting, total int) error {
	if len(jobs) == 0 {
		return nil
	}
	if total < len(jobs) {
		total = len(jobs)
	}

	data := struct {
		Jobs      []models.JobPosting
		Total     int
		Remaining int
		Date      string
	}{
		Jobs:      jobs,
		Total:     total,
		Remaining: total - len(jobs),
		Date:      m.now().Format("January 2, 2006 at 3:04 PM"),
	}

	var body strings.Builder
	if err := digestTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("Top %d Job Matches - %d new jobs found", len(jobs), total)
	return m.sendHTML(subject, body.String())
}

// SendAlert emails a single high-scoring job immediately.
func (m *Mailer) SendAlert(job *models.JobPosting) error {
	posted := job.PostedDate
	if posted == "" {
		posted = "Recently"
	}
	explanation := job.ScoreExplanation
	if explanation == "" {
		explanation = "Good skill match with your profile"
	}

	data := struct {
		Title, Company, Location, Posted, Explanation, URL string
		Score                                              int
	}{job.Title, job.Company, job.Location, posted, explanation, job.URL, job.Score}

	var body strings.Builder
	if err := alertTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render alert: %w", err)
	}

	subject := fmt.Sprintf("NEW JOB MATCH (Score: %d) - %s", job.Score, job.Company)
	return m.sendHTML(subject, body.String())
}

// SendTest verifies the SMTP configuration end to end.
func (m *Mailer) SendTest() error {
	body := `<html><body style="font-family: Arial, sans-serif;">
<h2>Test Email Successful</h2>
<p>Job tracker email notifications are working correctly.</p>
</body></html>`
	return m.sendHTML("Job Tracker Test Email", body)
}

func (m *Mailer) sendHTML(subject, body string) error {
	if !m.IsConfigured() {
		m.logger.Infof("Email skipped (no app password configured): %s", subject)
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", m.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.server, m.port)
	auth := smtp.PlainAuth("", m.from, m.password, m.server)
	if err := m.send(addr, auth, m.from, []string{m.to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	m.logger.Infof("Email sent: %s", subject)
	return nil
}

func scoreColor(score int) string {
	switch {
	case score >= 60:
		return "#22c55e"
	case score >= 40:
		return "#eab308"
	default:
		return "#f97316"
	}
}
