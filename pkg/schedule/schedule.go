// Package schedule fires scrape runs at configured weekday times and
// rotates RapidAPI keys across the time slots, keeping each key inside
// its monthly request cap.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"jobtrack/pkg/config"
)

// RunFunc executes one scrape with the chosen key applied.
type RunFunc func(ctx context.Context, key config.RapidAPIKey) error

// Scheduler wraps robfig/cron with one weekday entry per configured run
// time. A run picks the key whose schedule slot is nearest the current
// time, skips it if the month budget is spent, and records usage after
// a successful run.
type Scheduler struct {
	cfg      *config.Config
	usage    *Usage
	rotation *Rotation
	run      RunFunc
	logger   *logrus.Logger
	cron     *cron.Cron

	now         func() time.Time
	lastRunDay  string
	lastRunHour int
}

func New(cfg *config.Config, usage *Usage, rotation *Rotation, run RunFunc, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		usage:       usage,
		rotation:    rotation,
		run:         run,
		logger:      logger,
		cron:        cron.New(),
		now:         time.Now,
		lastRunHour: -1,
	}
}

// PickKey chooses the key for a run starting at now: the nearest schedule
// slot wins; keys without slots fall back to the persisted rotation cursor.
func (s *Scheduler) PickKey(now time.Time) *config.RapidAPIKey {
	if key := KeyForTime(s.cfg.RapidAPIKeys, now); key != nil {
		return key
	}
	return s.rotation.Next(s.cfg.RapidAPIKeys)
}

// Start registers a weekday cron entry per run time and starts ticking.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.cfg.Schedule.RunTimes) == 0 {
		return fmt.Errorf("no run times configured")
	}

	for _, rt := range s.cfg.Schedule.RunTimes {
		hour, minute, err := parseClock(rt)
		if err != nil {
			return fmt.Errorf("bad run time %q: %w", rt, err)
		}
		spec := fmt.Sprintf("%d %d * * 1-5", minute, hour)
		if _, err := s.cron.AddFunc(spec, func() { s.fire(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Infof("Scheduler started, run times: %s (weekdays)",
		strings.Join(s.cfg.Schedule.RunTimes, ", "))
	s.logger.Infof("Next run: %s", NextRunTime(s.cfg.Schedule.RunTimes, s.now()))
	s.logUsage()
	return nil
}

// Stop shuts down the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Infof("Scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context) {
	now := s.now()
	day := now.Format("2006-01-02")
	if s.lastRunDay == day && s.lastRunHour == now.Hour() {
		s.logger.Infof("Already ran this hour, skipping")
		return
	}

	key := s.PickKey(now)
	if key == nil {
		s.logger.Errorf("No RapidAPI key configured, skipping run")
		return
	}
	if s.usage.Exhausted(key.Name) {
		s.logger.Warnf("Key %s has used %d/%d requests this month, skipping run",
			key.Name, s.usage.Count(key.Name), MonthlyLimit)
		return
	}

	s.logger.Infof("Starting scrape run with key %s (%d/%d used)",
		key.Name, s.usage.Count(key.Name), MonthlyLimit)

	if err := s.run(ctx, *key); err != nil {
		s.logger.Errorf("Scrape run failed: %v", err)
		return
	}

	count, err := s.usage.Increment(key.Name)
	if err != nil {
		s.logger.Warnf("Failed to record usage for %s: %v", key.Name, err)
	} else {
		s.logger.Infof("Key %s now at %d/%d requests this month", key.Name, count, MonthlyLimit)
	}

	s.lastRunDay = day
	s.lastRunHour = now.Hour()
	s.logger.Infof("Next run: %s", NextRunTime(s.cfg.Schedule.RunTimes, s.now()))
}

// Status renders a human-readable snapshot for the -status flag.
func (s *Scheduler) Status() string {
	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s (%s)\n", now.Format("2006-01-02"), now.Weekday())
	fmt.Fprintf(&b, "Run times: %s (weekdays)\n", strings.Join(s.cfg.Schedule.RunTimes, ", "))
	fmt.Fprintf(&b, "Next run: %s\n", NextRunTime(s.cfg.Schedule.RunTimes, now))
	b.WriteString("Key usage this month:\n")
	for _, k := range s.cfg.RapidAPIKeys {
		if k.ScheduleTime == "backup" {
			continue
		}
		count := s.usage.Count(k.Name)
		state := "ok"
		if count >= MonthlyLimit {
			state = "LIMIT REACHED"
		}
		fmt.Fprintf(&b, "  %s (%s): %d/%d %s\n", k.Name, k.ScheduleTime, count, MonthlyLimit, state)
	}
	return b.String()
}

func (s *Scheduler) logUsage() {
	for _, k := range s.cfg.RapidAPIKeys {
		if k.ScheduleTime == "backup" {
			continue
		}
		s.logger.Infof("Key %s (%s): %d/%d requests this month",
			k.Name, k.ScheduleTime, s.usage.Count(k.Name), MonthlyLimit)
	}
}

// KeyForTime picks the key whose schedule slot is closest to now. Backup
// keys never win a slot. Returns nil when no key carries a parseable
// slot; callers fall back to the rotation cursor.
func KeyForTime(keys []config.RapidAPIKey, now time.Time) *config.RapidAPIKey {
	current := now.Hour()*60 + now.Minute()

	var best *config.RapidAPIKey
	bestDiff := -1
	for i := range keys {
		k := &keys[i]
		if k.ScheduleTime == "backup" {
			continue
		}
		hour, minute, err := parseClock(k.ScheduleTime)
		if err != nil {
			continue
		}
		diff := current - (hour*60 + minute)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			best = k
		}
	}
	return best
}

// NextRunTime returns the next scheduled slot as "HH:MM", with a
// "(tomorrow)" suffix when today's slots have all passed.
func NextRunTime(runTimes []string, now time.Time) string {
	current := now.Hour()*60 + now.Minute()

	var slots []int
	for _, rt := range runTimes {
		hour, minute, err := parseClock(rt)
		if err != nil {
			continue
		}
		slots = append(slots, hour*60+minute)
	}
	if len(slots) == 0 {
		return "unknown"
	}
	sort.Ints(slots)

	for _, slot := range slots {
		if slot > current {
			return fmt.Sprintf("%02d:%02d", slot/60, slot%60)
		}
	}
	return fmt.Sprintf("%02d:%02d (tomorrow)", slots[0]/60, slots[0]%60)
}

func parseClock(v string) (hour, minute int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range: %q", v)
	}
	return hour, minute, nil
}
