package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// MonthlyLimit is the free-tier request cap per RapidAPI key per month.
const MonthlyLimit = 25

const usageFile = "api_usage.json"

// Usage tracks per-key request counts by calendar month, persisted as
// JSON so counts survive restarts. Keys are "YYYY-MM" month buckets.
type Usage struct {
	path string
	now  func() time.Time
}

func NewUsage(dataDir string) *Usage {
	return &Usage{
		path: filepath.Join(dataDir, usageFile),
		now:  time.Now,
	}
}

func (u *Usage) monthKey() string {
	return u.now().Format("2006-01")
}

func (u *Usage) load() map[string]map[string]int {
	tracker := make(map[string]map[string]int)
	data, err := os.ReadFile(u.path)
	if err != nil {
		return tracker
	}
	if err := json.Unmarshal(data, &tracker); err != nil {
		return make(map[string]map[string]int)
	}
	return tracker
}

func (u *Usage) save(tracker map[string]map[string]int) error {
	if err := os.MkdirAll(filepath.Dir(u.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tracker, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(u.path, data, 0o644)
}

// Count returns how many runs keyName has used this month.
func (u *Usage) Count(keyName string) int {
	return u.load()[u.monthKey()][keyName]
}

// Increment bumps the month counter for keyName and returns the new count.
func (u *Usage) Increment(keyName string) (int, error) {
	tracker := u.load()
	month := u.monthKey()
	if tracker[month] == nil {
		tracker[month] = make(map[string]int)
	}
	tracker[month][keyName]++
	if err := u.save(tracker); err != nil {
		return 0, err
	}
	return tracker[month][keyName], nil
}

// Exhausted reports whether keyName is at or over its monthly cap.
func (u *Usage) Exhausted(keyName string) bool {
	return u.Count(keyName) >= MonthlyLimit
}
