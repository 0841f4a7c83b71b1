package models

import (
	"maps"
	"slices"
	"time"

	"github.com/goccy/go-json"
)

const (
	MaxStatsDays = 90
	hoursPerDay  = 24
	DateLayout   = "2006-01-02"
)

type SiteStats struct {
	Blocks        int `json:"blocks"`
	Bypasses      int `json:"bypasses"`
	AutoRedirects int `json:"autoRedirects"`
}

type DailyStats struct {
	Blocks              int                   `json:"blocks"`
	AutoRedirects       int                   `json:"autoRedirects"`
	BypassAttempts      int                   `json:"bypassAttempts"`
	BypassSuccesses     int                   `json:"bypassSuccesses"`
	SiteBreakdown       map[string]*SiteStats `json:"siteBreakdown"`
	HourlyBlocks        []int                 `json:"hourlyBlocks"`
	HourlyAutoRedirects []int                 `json:"hourlyAutoRedirects"`
}

type UsageStats struct {
	Daily                  map[string]*DailyStats `json:"daily"`
	Streak                 int                    `json:"streak"`
	LastBypassDate         *string                `json:"lastBypassDate"`
	BestStreak             int                    `json:"bestStreak"`
	TotalBlocks            int                    `json:"totalBlocks"`
	TotalBypasses          int                    `json:"totalBypasses"`
	TotalAutoRedirects     int                    `json:"totalAutoRedirects"`
	NuclearCompletions     int                    `json:"nuclearCompletions"`
	HardDifficultyBypasses int                    `json:"hardDifficultyBypasses"`
}

// usageStatsRecord is the persisted shape, where any field may be missing
// in data written by older versions.
type usageStatsRecord struct {
	Daily                  map[string]*DailyStats `json:"daily"`
	Streak                 *int                   `json:"streak"`
	LastBypassDate         *string                `json:"lastBypassDate"`
	BestStreak             *int                   `json:"bestStreak"`
	TotalBlocks            *int                   `json:"totalBlocks"`
	TotalBypasses          *int                   `json:"totalBypasses"`
	TotalAutoRedirects     *int                   `json:"totalAutoRedirects"`
	NuclearCompletions     *int                   `json:"nuclearCompletions"`
	HardDifficultyBypasses *int                   `json:"hardDifficultyBypasses"`
}

func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func NewDailyStats() *DailyStats {
	return &DailyStats{
		SiteBreakdown:       map[string]*SiteStats{},
		HourlyBlocks:        make([]int, hoursPerDay),
		HourlyAutoRedirects: make([]int, hoursPerDay),
	}
}

func DefaultUsageStats() UsageStats {
	return UsageStats{Daily: map[string]*DailyStats{}}
}

// DecodeUsageStats parses a persisted record and migrates it to the current shape.
func DecodeUsageStats(data []byte) (UsageStats, error) {
	if len(data) == 0 || string(data) == "null" {
		return DefaultUsageStats(), nil
	}
	var rec usageStatsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DefaultUsageStats(), err
	}
	return migrateUsageStats(rec), nil
}

// MigrateUsageStats canonicalises an in-memory value: hourly arrays get 24
// entries and nil maps are allocated.
func MigrateUsageStats(s UsageStats) UsageStats {
	if s.Daily == nil {
		s.Daily = map[string]*DailyStats{}
	}
	for date, day := range s.Daily {
		if day == nil {
			s.Daily[date] = NewDailyStats()
			continue
		}
		normalizeDay(day)
	}
	return s
}

func migrateUsageStats(rec usageStatsRecord) UsageStats {
	s := MigrateUsageStats(UsageStats{Daily: rec.Daily, LastBypassDate: rec.LastBypassDate})

	var blocks, bypasses, autoRedirects int
	for _, day := range s.Daily {
		blocks += day.Blocks
		bypasses += day.BypassSuccesses
		autoRedirects += day.AutoRedirects
	}

	s.Streak = valueOr(rec.Streak, 0)
	s.BestStreak = valueOr(rec.BestStreak, s.Streak)
	s.TotalBlocks = valueOr(rec.TotalBlocks, blocks)
	s.TotalBypasses = valueOr(rec.TotalBypasses, bypasses)
	s.TotalAutoRedirects = valueOr(rec.TotalAutoRedirects, autoRedirects)
	s.NuclearCompletions = valueOr(rec.NuclearCompletions, 0)
	s.HardDifficultyBypasses = valueOr(rec.HardDifficultyBypasses, 0)
	return s
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func normalizeDay(day *DailyStats) {
	if len(day.HourlyBlocks) != hoursPerDay {
		day.HourlyBlocks = make([]int, hoursPerDay)
	}
	if len(day.HourlyAutoRedirects) != hoursPerDay {
		day.HourlyAutoRedirects = make([]int, hoursPerDay)
	}
	if day.SiteBreakdown == nil {
		day.SiteBreakdown = map[string]*SiteStats{}
	}
	for domain, site := range day.SiteBreakdown {
		if site == nil {
			day.SiteBreakdown[domain] = &SiteStats{}
		}
	}
}

// EnsureDay returns the bucket for date, creating or repairing it.
func (s *UsageStats) EnsureDay(date string) *DailyStats {
	if s.Daily == nil {
		s.Daily = map[string]*DailyStats{}
	}
	day, ok := s.Daily[date]
	if !ok || day == nil {
		day = NewDailyStats()
		s.Daily[date] = day
	}
	normalizeDay(day)
	return day
}

func (d *DailyStats) site(domain string) *SiteStats {
	site, ok := d.SiteBreakdown[domain]
	if !ok {
		site = &SiteStats{}
		d.SiteBreakdown[domain] = site
	}
	return site
}

func (s *UsageStats) RecordBlock(domain string, now time.Time) {
	day := s.EnsureDay(DateKey(now))
	day.Blocks++
	day.HourlyBlocks[now.UTC().Hour()]++
	day.site(domain).Blocks++
	s.TotalBlocks++
}

func (s *UsageStats) RecordAutoRedirect(domain string, now time.Time) {
	day := s.EnsureDay(DateKey(now))
	day.AutoRedirects++
	day.HourlyAutoRedirects[now.UTC().Hour()]++
	day.site(domain).AutoRedirects++
	s.TotalAutoRedirects++
}

func (s *UsageStats) RecordBypassAttempt(domain string, success bool, difficulty MathDifficulty, now time.Time) {
	today := DateKey(now)
	day := s.EnsureDay(today)
	day.BypassAttempts++
	if !success {
		return
	}
	day.BypassSuccesses++
	day.site(domain).Bypasses++
	s.LastBypassDate = &today
	s.Streak = 0
	s.TotalBypasses++
	if difficulty == DifficultyHard {
		s.HardDifficultyBypasses++
	}
}

func (s *UsageStats) RecordNuclearCompletion() {
	s.NuclearCompletions++
}

// Prune drops the oldest date keys beyond maxDays and returns them.
func (s *UsageStats) Prune(maxDays int) map[string]*DailyStats {
	if len(s.Daily) <= maxDays {
		return nil
	}
	dates := slices.Sorted(maps.Keys(s.Daily))
	removed := make(map[string]*DailyStats, len(dates)-maxDays)
	for _, date := range dates[:len(dates)-maxDays] {
		removed[date] = s.Daily[date]
		delete(s.Daily, date)
	}
	return removed
}

// UpdateStreak recomputes the streak and raises the best streak when beaten.
func (s *UsageStats) UpdateStreak(now time.Time) {
	s.Streak = CalculateStreak(*s, now)
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}
}
