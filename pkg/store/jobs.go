package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"jobtrack/pkg/models"
)

const jobColumns = `job_id, company, title, location, url, description,
    posted_date, source, score, score_explanation, first_seen, last_seen,
    notified, status, applied_date, notes, archived`

func scanJob(scanner interface{ Scan(...any) error }) (models.JobPosting, error) {
	var (
		j           models.JobPosting
		location    sql.NullString
		url         sql.NullString
		description sql.NullString
		postedDate  sql.NullString
		source      sql.NullString
		score       sql.NullInt64
		explanation sql.NullString
		firstSeen   sql.NullTime
		lastSeen    sql.NullTime
		notified    sql.NullBool
		status      sql.NullString
		appliedDate sql.NullString
		notes       sql.NullString
		archived    sql.NullBool
	)

	err := scanner.Scan(&j.JobID, &j.Company, &j.Title, &location, &url,
		&description, &postedDate, &source, &score, &explanation,
		&firstSeen, &lastSeen, &notified, &status, &appliedDate, &notes,
		&archived)
	if err != nil {
		return j, err
	}

	j.Location = location.String
	j.URL = url.String
	j.Description = description.String
	j.PostedDate = postedDate.String
	j.Source = source.String
	j.Score = int(score.Int64)
	j.ScoreExplanation = explanation.String
	j.FirstSeen = firstSeen.Time
	j.LastSeen = lastSeen.Time
	j.Notified = notified.Bool
	j.Status = status.String
	if j.Status == "" {
		j.Status = models.StatusNew
	}
	j.AppliedDate = appliedDate.String
	j.Notes = notes.String
	j.Archived = archived.Bool
	return j, nil
}

// Upsert inserts a posting or refreshes last_seen on an existing one.
// Archived rows are left untouched so an archived job stays buried even
// while the source keeps listing it. Returns true when the row is new.
func (s *Store) Upsert(job *models.JobPosting) (bool, error) {
	res, err := s.db.Exec(
		"UPDATE jobs SET last_seen = ? WHERE job_id = ? AND archived = 0",
		time.Now(), job.JobID)
	if err != nil {
		return false, fmt.Errorf("failed to refresh job %s: %w", job.JobID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	var exists int
	err = s.db.QueryRow("SELECT COUNT(*) FROM jobs WHERE job_id = ?", job.JobID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists > 0 {
		// Archived row, leave as is.
		return false, nil
	}

	now := time.Now()
	_, err = s.db.Exec(`INSERT INTO jobs (
        job_id, company, title, location, url, description,
        posted_date, source, score, score_explanation,
        first_seen, last_seen, notified, status, archived
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, 0)`,
		job.JobID, job.Company, job.Title, job.Location, job.URL,
		job.Description, job.PostedDate, job.Source, job.Score,
		job.ScoreExplanation, now, now, models.StatusNew)
	if err != nil {
		return false, fmt.Errorf("failed to insert job %s: %w", job.JobID, err)
	}
	return true, nil
}

// GetJob fetches one posting by id.
func (s *Store) GetJob(jobID string) (*models.JobPosting, error) {
	row := s.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE job_id = ?", jobID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UnnotifiedAbove returns postings at or above minScore that have not yet
// gone out in a digest, best first.
func (s *Store) UnnotifiedAbove(minScore int) ([]models.JobPosting, error) {
	rows, err := s.db.Query("SELECT "+jobColumns+
		" FROM jobs WHERE notified = 0 AND score >= ? ORDER BY score DESC, first_seen DESC",
		minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// MarkNotified flags a posting as delivered.
func (s *Store) MarkNotified(jobID string) error {
	_, err := s.db.Exec("UPDATE jobs SET notified = 1 WHERE job_id = ?", jobID)
	return err
}

// UpdateStatus moves a posting through the application pipeline. Moving to
// applied stamps applied_date.
func (s *Store) UpdateStatus(jobID, status, notes string) error {
	if _, err := models.ParseStatus(status); err != nil {
		return err
	}
	if status == models.StatusApplied {
		_, err := s.db.Exec(
			"UPDATE jobs SET status = ?, notes = ?, applied_date = ? WHERE job_id = ?",
			status, notes, time.Now().Format(time.RFC3339), jobID)
		return err
	}
	_, err := s.db.Exec(
		"UPDATE jobs SET status = ?, notes = ? WHERE job_id = ?",
		status, notes, jobID)
	return err
}

// Archive hides a posting from every default view. The row stays so that
// re-scrapes recognize it and future runs suppress lookalikes.
func (s *Store) Archive(jobID string) error {
	_, err := s.db.Exec("UPDATE jobs SET archived = 1 WHERE job_id = ?", jobID)
	return err
}

// ArchivedKeys returns the suppression set of archived postings, keyed per
// the configured mode.
func (s *Store) ArchivedKeys(mode string) (map[string]bool, error) {
	rows, err := s.db.Query("SELECT title, company FROM jobs WHERE archived = 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var title, company string
		if err := rows.Scan(&title, &company); err != nil {
			return nil, err
		}
		j := models.JobPosting{Title: title, Company: company}
		keys[j.ArchiveKey(mode)] = true
	}
	return keys, rows.Err()
}

// LogScrape appends one run-history row.
func (s *Store) LogScrape(sourcesAttempted, jobsFound, newJobs, errors int) error {
	_, err := s.db.Exec(
		"INSERT INTO scrape_log (timestamp, sources_attempted, jobs_found, new_jobs, errors) VALUES (?, ?, ?, ?, ?)",
		time.Now(), sourcesAttempted, jobsFound, newJobs, errors)
	return err
}

func collectJobs(rows *sql.Rows) ([]models.JobPosting, error) {
	var jobs []models.JobPosting
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// visibleScope restricts queries to live, scored rows.
const visibleScope = " (archived = 0 OR archived IS NULL) AND score > 0"

// hiddenStatuses is the pipeline tail excluded from the default list view.
const hiddenStatuses = "('applied','interviewing','offer','rejected')"

// SearchJobs runs the dashboard list query.
func (s *Store) SearchJobs(q models.JobQuery) (*models.JobPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.MaxScore == 0 {
		q.MaxScore = 100
	}

	where := "WHERE" + visibleScope
	var params []any

	if q.Search != "" {
		where += " AND (title LIKE ? OR company LIKE ? OR description LIKE ?)"
		t := "%" + q.Search + "%"
		params = append(params, t, t, t)
	}
	if q.MinScore > 0 {
		where += " AND score >= ?"
		params = append(params, q.MinScore)
	}
	if q.MaxScore < 100 {
		where += " AND score <= ?"
		params = append(params, q.MaxScore)
	}

	switch q.Status {
	case "":
		where += " AND (status IS NULL OR status NOT IN " + hiddenStatuses + ")"
	case "new":
		where += " AND (status = 'new' OR status IS NULL)"
	case "all":
		// No status restriction.
	default:
		where += " AND status = ?"
		params = append(params, q.Status)
	}

	if q.Source != "" {
		if q.Source == "Google Jobs" {
			where += " AND source LIKE 'Google Jobs%'"
		} else {
			where += " AND source = ?"
			params = append(params, q.Source)
		}
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM jobs "+where, params...).Scan(&total); err != nil {
		return nil, err
	}

	sortCols := map[string]string{
		"score":   "score",
		"date":    "COALESCE(posted_date, first_seen)",
		"company": "company",
	}
	col, ok := sortCols[q.SortBy]
	if !ok {
		col = "score"
	}
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}

	offset := (q.Page - 1) * q.PerPage
	query := fmt.Sprintf("SELECT %s FROM jobs %s ORDER BY %s %s LIMIT %d OFFSET %d",
		jobColumns, where, col, order, q.PerPage, offset)

	rows, err := s.db.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + q.PerPage - 1) / q.PerPage
	if totalPages < 1 {
		totalPages = 1
	}
	return &models.JobPage{
		Jobs:       jobs,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages,
	}, nil
}

// Stats computes the dashboard summary counters.
func (s *Store) Stats() (*models.Stats, error) {
	stats := &models.Stats{}

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.TotalJobs, "SELECT COUNT(*) FROM jobs WHERE" + visibleScope +
			" AND (status IS NULL OR status NOT IN " + hiddenStatuses + ")"},
		{&stats.HighScoreJobs, "SELECT COUNT(*) FROM jobs WHERE score >= 60 AND (archived = 0 OR archived IS NULL)"},
		{&stats.NewJobs, "SELECT COUNT(*) FROM jobs WHERE" + visibleScope +
			" AND datetime(first_seen) >= datetime('now','-1 day')"},
		{&stats.Interested, statusCountQuery(models.StatusInterested)},
		{&stats.Applied, statusCountQuery(models.StatusApplied)},
		{&stats.Interviewing, statusCountQuery(models.StatusInterviewing)},
		{&stats.Offers, statusCountQuery(models.StatusOffer)},
		{&stats.Rejected, statusCountQuery(models.StatusRejected)},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query("SELECT source, COUNT(*) FROM jobs WHERE" + visibleScope +
		" GROUP BY source ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc models.SourceCount
		if err := rows.Scan(&sc.Name, &sc.Count); err != nil {
			return nil, err
		}
		stats.Sources = append(stats.Sources, sc)
	}
	return stats, rows.Err()
}

func statusCountQuery(status string) string {
	return "SELECT COUNT(*) FROM jobs WHERE status = '" + status +
		"' AND (archived = 0 OR archived IS NULL)"
}

// FilterOptions lists the distinct companies and sources present in the
// visible rows, for the dashboard filter dropdowns.
func (s *Store) FilterOptions() (companies []string, sources []string, err error) {
	rows, err := s.db.Query("SELECT DISTINCT company FROM jobs WHERE" + visibleScope +
		" AND company != '' ORDER BY company")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, nil, err
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	srows, err := s.db.Query("SELECT DISTINCT source FROM jobs WHERE" + visibleScope +
		" ORDER BY source")
	if err != nil {
		return nil, nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var src string
		if err := srows.Scan(&src); err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	return companies, sources, srows.Err()
}
