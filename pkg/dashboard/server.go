// Package dashboard serves the job tracker REST API.
package dashboard

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"jobtrack/pkg/models"
	"jobtrack/pkg/scorer"
	"jobtrack/pkg/store"
)

// Server exposes the stored jobs over HTTP for the dashboard UI.
type Server struct {
	store  *store.Store
	scorer *scorer.Scorer
	logger *logrus.Logger
	app    *fiber.App
}

func NewServer(st *store.Store, sc *scorer.Scorer, logger *logrus.Logger) *Server {
	s := &Server{
		store:  st,
		scorer: sc,
		logger: logger,
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/jobs", s.handleJobs)
	api.Get("/job/:id", s.handleJobDetail)
	api.Get("/job/:id/analysis", s.handleJobAnalysis)
	api.Post("/job/:id/status", s.handleUpdateStatus)
	api.Delete("/job/:id", s.handleArchive)
	api.Get("/filters", s.handleFilters)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen blocks serving on addr, e.g. ":5000".
func (s *Server) Listen(addr string) error {
	s.logger.Infof("Dashboard listening on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

// jobView is a JobPosting with the display fields the UI expects.
type jobView struct {
	models.JobPosting
	TimeAgo string `json:"time_ago"`
}

func newJobView(j models.JobPosting) jobView {
	if j.Status == "" {
		j.Status = models.StatusNew
	}
	j.Source = consolidateSource(j.Source)
	ts := j.PostedDate
	if ts == "" && !j.FirstSeen.IsZero() {
		ts = j.FirstSeen.Format(time.RFC3339)
	}
	return jobView{JobPosting: j, TimeAgo: formatDate(ts)}
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(stats)
}

func (s *Server) handleJobs(c *fiber.Ctx) error {
	q := models.JobQuery{
		Page:      c.QueryInt("page", 1),
		PerPage:   c.QueryInt("per_page", 20),
		Search:    c.Query("search"),
		MinScore:  c.QueryInt("min_score", 0),
		MaxScore:  c.QueryInt("max_score", 100),
		SortBy:    c.Query("sort_by", "score"),
		SortOrder: c.Query("sort_order", "desc"),
		Status:    c.Query("status"),
		Source:    c.Query("source"),
	}

	page, err := s.store.SearchJobs(q)
	if err != nil {
		return s.fail(c, err)
	}

	views := make([]jobView, 0, len(page.Jobs))
	for _, j := range page.Jobs {
		views = append(views, newJobView(j))
	}
	return c.JSON(fiber.Map{
		"jobs":        views,
		"total":       page.Total,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total_pages": page.TotalPages,
	})
}

func (s *Server) handleJobDetail(c *fiber.Ctx) error {
	job, err := s.store.GetJob(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}
	return c.JSON(newJobView(*job))
}

func (s *Server) handleJobAnalysis(c *fiber.Ctx) error {
	job, err := s.store.GetJob(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	}
	return c.JSON(s.scorer.Analyze(job))
}

type statusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleUpdateStatus(c *fiber.Ctx) error {
	req := statusReq{Status: models.StatusNew}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload"})
	}
	if err := s.store.UpdateStatus(c.Params("id"), req.Status, req.Notes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleArchive(c *fiber.Ctx) error {
	if err := s.store.Archive(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleFilters(c *fiber.Ctx) error {
	companies, rawSources, err := s.store.FilterOptions()
	if err != nil {
		return s.fail(c, err)
	}

	seen := make(map[string]bool)
	sources := make([]string, 0, len(rawSources))
	for _, src := range rawSources {
		name := consolidateSource(src)
		if !seen[name] {
			seen[name] = true
			sources = append(sources, name)
		}
	}

	return c.JSON(fiber.Map{"companies": companies, "sources": sources})
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	s.logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// consolidateSource folds aggregator variants ("Google Jobs (LinkedIn)")
// into their base name for display and filtering.
func consolidateSource(source string) string {
	if i := strings.Index(source, " ("); i > 0 {
		return source[:i]
	}
	return source
}

// formatDate renders a stored timestamp as a short display string.
// Relative strings from sources ("3 days ago") pass through untouched.
func formatDate(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "-"
	}
	if strings.Contains(strings.ToLower(ts), "ago") {
		return ts
	}

	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("Jan 2, 3:04 PM")
		}
	}
	if len(ts) >= 10 {
		if t, err := time.Parse("2006-01-02", ts[:10]); err == nil {
			return t.Format("Jan 2")
		}
	}
	return ts
}
