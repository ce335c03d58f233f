package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RapidAPIKey is one credential in the rotation pool. ScheduleTime is an
// "HH:MM" hint binding the key to a run slot, or "backup" to keep it out of
// normal rotation.
type RapidAPIKey struct {
	Name         string `json:"name"`
	Key          string `json:"key"`
	ScheduleTime string `json:"schedule_time,omitempty"`
}

// AdzunaConfig holds the Adzuna app credential pair.
type AdzunaConfig struct {
	AppID  string `json:"app_id"`
	AppKey string `json:"app_key"`
}

// MatchingConfig controls scoring thresholds and the archive identity rule.
type MatchingConfig struct {
	Threshold  int    `json:"threshold"`
	ArchiveKey string `json:"archive_key,omitempty"` // "normalized" (default) or "exact"
}

// ScheduleConfig lists the weekday run times ("HH:MM", local time).
type ScheduleConfig struct {
	RunTimes []string `json:"run_times"`
}

// EmailConfig is the SMTP digest delivery settings.
type EmailConfig struct {
	From       string `json:"from"`
	To         string `json:"to"`
	SMTPServer string `json:"smtp_server"`
	SMTPPort   int    `json:"smtp_port"`
	Password   string `json:"password"`
}

// BoardConfig is one selector-driven HTML career board (no API, no feed).
type BoardConfig struct {
	Name         string            `json:"name"`
	Enabled      bool              `json:"enabled"`
	URL          string            `json:"url"`
	JobContainer string            `json:"jobContainer"`
	Selectors    map[string]string `json:"selectors"` // title, company, location, description, link
	MaxResults   int               `json:"maxResults"`
}

// Config is the structured settings object for the whole pipeline.
type Config struct {
	DatabasePath string          `json:"database_path"`
	ResumePath   string          `json:"resume_path"`
	CompaniesCSV string          `json:"companies_csv"`
	DataDir      string          `json:"data_dir"`
	RapidAPIKeys []RapidAPIKey   `json:"rapidapi_keys,omitempty"`
	SerpAPIKey   string          `json:"serpapi_key,omitempty"`
	Adzuna       AdzunaConfig    `json:"adzuna"`
	Matching     MatchingConfig  `json:"matching"`
	Schedule     ScheduleConfig  `json:"schedule"`
	Email        EmailConfig     `json:"email"`
	Boards       []BoardConfig   `json:"boards,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
}

// Load reads the JSON settings file and applies environment overrides for
// secrets. Missing per-source credentials are not an error; the affected
// adapters are skipped at construction time instead.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SERPAPI_KEY"); v != "" {
		c.SerpAPIKey = v
	}
	if v := os.Getenv("ADZUNA_APP_ID"); v != "" {
		c.Adzuna.AppID = v
	}
	if v := os.Getenv("ADZUNA_APP_KEY"); v != "" {
		c.Adzuna.AppKey = v
	}
	if v := os.Getenv("RAPIDAPI_KEY"); v != "" && len(c.RapidAPIKeys) == 0 {
		c.RapidAPIKeys = []RapidAPIKey{{Name: "env", Key: v}}
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "data/jobs.db"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = 20
	}
	if c.Matching.ArchiveKey == "" {
		c.Matching.ArchiveKey = "normalized"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
}
