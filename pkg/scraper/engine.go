// Package scraper orchestrates a scrape run: fetch from every configured
// source, dedup, suppress archived postings, score, and persist.
package scraper

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"jobtrack/pkg/companies"
	"jobtrack/pkg/config"
	"jobtrack/pkg/models"
	"jobtrack/pkg/scorer"
	"jobtrack/pkg/sources"
	"jobtrack/pkg/store"
)

// rejectPrefixes hard-reject senior titles before scoring ever runs.
var rejectPrefixes = []string{
	"senior ", "sr. ", "sr ", "staff ", "principal ", "lead ",
	"director ", "vp ", "head of ", "chief ", "manager ",
	"executive ", "distinguished ",
}

func isSeniorTitle(title string) bool {
	t := strings.TrimSpace(strings.ToLower(title))
	for _, p := range rejectPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// Engine runs the pipeline over an ordered source list. Order is stable so
// that cross-source duplicates always resolve to the same winner.
type Engine struct {
	cfg     *config.Config
	store   *store.Store
	scorer  *scorer.Scorer
	history map[string]companies.History
	sources []sources.Source
	logger  *logrus.Logger
}

// New builds an engine. The source slice order is preserved.
func New(cfg *config.Config, st *store.Store, sc *scorer.Scorer,
	history map[string]companies.History, srcs []sources.Source,
	logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   st,
		scorer:  sc,
		history: history,
		sources: srcs,
		logger:  logger,
	}
}

// Run executes one full scrape. Per-source failures are counted, logged,
// and skipped; they never abort the run.
func (e *Engine) Run(ctx context.Context) (*models.RunSummary, error) {
	archived, err := e.store.ArchivedKeys(e.cfg.Matching.ArchiveKey)
	if err != nil {
		return nil, err
	}

	var (
		kept      []models.JobPosting
		errors    int
		attempted int
	)
	seen := make(map[string]bool)
	suppressed, seniorDropped, zeroDropped := 0, 0, 0

	for i, src := range e.sources {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !src.IsConfigured() {
			e.logger.Warnf("%d/%d %s: not configured, skipping", i+1, len(e.sources), src.Name())
			continue
		}
		attempted++
		e.logger.Infof("%d/%d Scraping %s", i+1, len(e.sources), src.Name())

		jobs, err := src.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Errorf("%s error: %v", src.Name(), err)
			errors++
			// Partial results before the failure still count.
		}

		added, dupes := 0, 0
		for j := range jobs {
			job := jobs[j]
			if !job.IsValid() {
				continue
			}
			key := job.DedupKey()
			if seen[key] {
				dupes++
				continue
			}
			seen[key] = true

			if archived[job.ArchiveKey(e.cfg.Matching.ArchiveKey)] {
				suppressed++
				continue
			}
			if isSeniorTitle(job.Title) {
				seniorDropped++
				continue
			}

			job.Score = e.scorer.Score(&job, e.history[strings.ToLower(job.Company)])
			if job.Score <= 0 {
				zeroDropped++
				continue
			}
			job.ScoreExplanation = e.scorer.Explain(&job, job.Score)

			kept = append(kept, job)
			added++
		}
		if dupes > 0 {
			e.logger.Infof("%s: %d duplicates removed", src.Name(), dupes)
		}
		e.logger.Infof("%s: %d jobs kept", src.Name(), added)
	}

	e.logger.Infof("Post-processing: %d kept, %d archived suppressed, %d senior dropped, %d zero-score dropped",
		len(kept), suppressed, seniorDropped, zeroDropped)

	threshold := e.cfg.Matching.Threshold
	summary := &models.RunSummary{
		TotalJobs: len(kept),
		Errors:    errors,
		Sources:   make(map[string]int),
	}

	for i := range kept {
		job := kept[i]
		if job.Score >= threshold {
			summary.HighScoreJobs = append(summary.HighScoreJobs, job)
		}

		isNew, err := e.store.Upsert(&job)
		if err != nil {
			e.logger.Errorf("Failed to store %s: %v", job.JobID, err)
			errors++
			continue
		}
		if isNew && job.Score >= threshold {
			summary.NewJobs = append(summary.NewJobs, job)
		}

		summary.Sources[consolidatedSource(job.Source)]++
	}
	summary.Errors = errors

	e.logSourceBreakdown(summary.Sources)
	e.logger.Infof("Above threshold (%d): %d, new: %d",
		threshold, len(summary.HighScoreJobs), len(summary.NewJobs))

	if err := e.store.LogScrape(attempted, summary.TotalJobs, len(summary.NewJobs), errors); err != nil {
		e.logger.Warnf("Failed to write scrape log: %v", err)
	}
	return summary, nil
}

// Notifier delivers a digest of new high-score jobs.
type Notifier interface {
	SendDigest(jobs []models.JobPosting, total int) error
}

// Notify sends a digest covering every unnotified job at or above the
// threshold. The digest shows the top five; all of them are marked
// notified so the next run starts clean.
func (e *Engine) Notify(n Notifier) error {
	unnotified, err := e.store.UnnotifiedAbove(e.cfg.Matching.Threshold)
	if err != nil {
		return err
	}
	if len(unnotified) == 0 {
		e.logger.Infof("No new jobs to notify about")
		return nil
	}

	top := unnotified
	if len(top) > 5 {
		top = top[:5]
	}
	if err := n.SendDigest(top, len(unnotified)); err != nil {
		return err
	}

	for i := range unnotified {
		if err := e.store.MarkNotified(unnotified[i].JobID); err != nil {
			e.logger.Warnf("Failed to mark %s notified: %v", unnotified[i].JobID, err)
		}
	}
	e.logger.Infof("Notified about %d jobs (%d in digest)", len(unnotified), len(top))
	return nil
}

// consolidatedSource folds aggregator variants ("Google Jobs (LinkedIn)")
// into their base name.
func consolidatedSource(source string) string {
	if i := strings.Index(source, " ("); i > 0 {
		return source[:i]
	}
	if source == "" {
		return "Unknown"
	}
	return source
}

func (e *Engine) logSourceBreakdown(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	for _, name := range names {
		e.logger.Infof("  %-30s %5d jobs", name, counts[name])
	}
}
