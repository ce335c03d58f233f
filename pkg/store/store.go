// Package store persists job postings and scrape history in SQLite.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps the jobs database. All methods are safe for concurrent use;
// SQLite serializes writers and WAL keeps readers unblocked.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    job_id            TEXT PRIMARY KEY,
    company           TEXT,
    title             TEXT,
    location          TEXT,
    url               TEXT,
    description       TEXT,
    posted_date       TEXT,
    source            TEXT,
    score             INTEGER,
    score_explanation TEXT,
    first_seen        TIMESTAMP,
    last_seen         TIMESTAMP,
    notified          BOOLEAN DEFAULT 0,
    status            TEXT DEFAULT 'new',
    applied_date      TEXT,
    notes             TEXT,
    archived          BOOLEAN DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scrape_log (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp         TIMESTAMP,
    sources_attempted INTEGER,
    jobs_found        INTEGER,
    new_jobs          INTEGER,
    errors            INTEGER
);
`

// Open opens (or creates) the database, applies pending column migrations,
// and purges rows that predate the ingest-time filters.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the dashboard read while a scrape run writes.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db, logger: logger}
	s.migrate()
	s.cleanup()
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate adds columns introduced after the first release. Additive only,
// safe to run on every startup. A failed ALTER is logged and skipped so
// the run can keep using whatever columns already exist.
func (s *Store) migrate() {
	migrations := []struct {
		column string
		ddl    string
	}{
		{"status", "TEXT DEFAULT 'new'"},
		{"applied_date", "TEXT"},
		{"notes", "TEXT"},
		{"archived", "BOOLEAN DEFAULT 0"},
		{"score_explanation", "TEXT"},
	}

	rows, err := s.db.Query("PRAGMA table_info(jobs)")
	if err != nil {
		s.logger.Warnf("Failed to inspect jobs table, skipping migrations: %v", err)
		return
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			s.logger.Warnf("Failed to scan column info, skipping migrations: %v", err)
			return
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		s.logger.Warnf("Failed to read column info, skipping migrations: %v", err)
		return
	}

	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE jobs ADD COLUMN %s %s", m.column, m.ddl)
		if _, err := s.db.Exec(ddl); err != nil {
			s.logger.Warnf("Failed to add column %s: %v", m.column, err)
			continue
		}
		s.logger.Infof("Added column: %s", m.column)
	}
}

// cleanup removes untouched rows that the current ingest filters would have
// rejected. Rows with a user-set status are never deleted.
func (s *Store) cleanup() {
	res, err := s.db.Exec(
		"DELETE FROM jobs WHERE (score = 0 OR score IS NULL) AND (status IS NULL OR status = 'new')")
	if err != nil {
		s.logger.Warnf("Cleanup of zero-score rows failed: %v", err)
	} else if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Infof("Cleaned up %d zero-score jobs", n)
	}

	seniorPrefixes := []string{
		"senior %", "sr. %", "sr %", "staff %", "principal %", "lead %", "director %",
	}
	for _, prefix := range seniorPrefixes {
		if _, err := s.db.Exec(
			"DELETE FROM jobs WHERE LOWER(title) LIKE ? AND (status IS NULL OR status = 'new')",
			prefix); err != nil {
			s.logger.Warnf("Cleanup of senior rows failed: %v", err)
		}
	}
}
