package sources

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"jobtrack/pkg/config"
	"jobtrack/pkg/models"
)

// Boards scrapes selector-configured HTML career pages for companies with
// neither an ATS API nor a feed. Each board entry names a listing URL plus
// CSS selectors for the job fields.
type Boards struct {
	boards    []config.BoardConfig
	userAgent string
	logger    *logrus.Logger
}

func NewBoards(boards []config.BoardConfig, userAgent string, logger *logrus.Logger) *Boards {
	var enabled []config.BoardConfig
	for _, b := range boards {
		if b.Enabled && b.URL != "" && b.JobContainer != "" {
			enabled = append(enabled, b)
		}
	}
	return &Boards{boards: enabled, userAgent: userAgent, logger: logger}
}

func (b *Boards) Name() string { return "Boards" }

func (b *Boards) IsConfigured() bool { return len(b.boards) > 0 }

func (b *Boards) Fetch(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	for _, board := range b.boards {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		jobs, err := b.scrapeBoard(board)
		if err != nil {
			b.logger.Warnf("Board %s: %v", board.Name, err)
			continue
		}
		b.logger.Infof("Board %s: %d jobs", board.Name, len(jobs))
		all = append(all, jobs...)
	}
	return FilterNewGrad(all), nil
}

func (b *Boards) scrapeBoard(board config.BoardConfig) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	var mu sync.Mutex

	c := colly.NewCollector()
	c.UserAgent = b.userAgent
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       500 * time.Millisecond,
	})

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	c.OnHTML(board.JobContainer, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(board.Selectors["title"]))
		company := strings.TrimSpace(e.ChildText(board.Selectors["company"]))
		if company == "" {
			company = board.Name
		}
		if title == "" || company == "" {
			return
		}

		link := e.ChildAttr(board.Selectors["link"], "href")
		if link != "" && !strings.HasPrefix(link, "http") {
			link = e.Request.AbsoluteURL(link)
		}

		job := models.JobPosting{
			JobID:       boardJobID(board.Name, title, link),
			Company:     company,
			Title:       title,
			Location:    strings.TrimSpace(e.ChildText(board.Selectors["location"])),
			URL:         link,
			Description: strings.TrimSpace(e.ChildText(board.Selectors["description"])),
			Source:      board.Name,
		}

		mu.Lock()
		jobs = append(jobs, job)
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		b.logger.Errorf("Board error on %s: %v", r.Request.URL, err)
	})

	if err := c.Visit(board.URL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", board.URL, err)
	}
	c.Wait()

	if board.MaxResults > 0 && len(jobs) > board.MaxResults {
		jobs = jobs[:board.MaxResults]
	}
	return jobs, nil
}

// boardJobID keys on the listing URL when present; title otherwise. HTML
// boards expose no stable upstream id.
func boardJobID(boardName, title, link string) string {
	basis := link
	if basis == "" {
		basis = title
	}
	return fmt.Sprintf("board_%s_%x",
		strings.ToLower(strings.ReplaceAll(boardName, " ", "")),
		md5.Sum([]byte(basis)))
}
