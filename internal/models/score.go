package models

import (
	"cmp"
	"math"
	"slices"
	"time"
)

const (
	blockPointsMax    = 40
	noBypassPoints    = 30
	streakPointsMax   = 30
	blocksForMaxScore = 10
	daysForMaxStreak  = 7
)

type ScoreBreakdown struct {
	BlocksToday int `json:"blocksToday"`
	NoBypass    int `json:"noBypass"`
	StreakBonus int `json:"streakBonus"`
}

type ProductivityScore struct {
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Trend     int            `json:"trend"`
}

type TopSite struct {
	Domain string `json:"domain"`
	SiteStats
}

type DayBlocks struct {
	Date    string `json:"date"`
	DayName string `json:"dayName"`
	Blocks  int    `json:"blocks"`
}

type Totals struct {
	TotalBlocks          int `json:"totalBlocks"`
	TotalBypassAttempts  int `json:"totalBypassAttempts"`
	TotalBypassSuccesses int `json:"totalBypassSuccesses"`
}

func (s UsageStats) day(t time.Time) *DailyStats {
	return s.Daily[DateKey(t)]
}

// CalculateStreak walks back from today over at most MaxStatsDays days. Days
// with blocks extend the streak, a day with a successful bypass ends it, and
// an empty day ends it unless it is today.
func CalculateStreak(stats UsageStats, now time.Time) int {
	streak := 0
	for i := 0; i < MaxStatsDays; i++ {
		day := stats.day(now.AddDate(0, 0, -i))
		if day != nil && day.BypassSuccesses > 0 {
			break
		}
		if day != nil && day.Blocks > 0 {
			streak++
			continue
		}
		if i == 0 {
			continue
		}
		break
	}
	return streak
}

func CalculateProductivityScore(stats UsageStats, now time.Time) ProductivityScore {
	var blocks, successes int
	if today := stats.day(now); today != nil {
		blocks, successes = today.Blocks, today.BypassSuccesses
	}

	blocksToday := math.Min(float64(blocks)/blocksForMaxScore, 1) * blockPointsMax
	noBypass := 0.0
	if successes == 0 {
		noBypass = noBypassPoints
	}
	streakBonus := math.Min(float64(stats.Streak)/daysForMaxStreak, 1) * streakPointsMax

	return ProductivityScore{
		Score: int(math.Round(blocksToday + noBypass + streakBonus)),
		Breakdown: ScoreBreakdown{
			BlocksToday: int(math.Round(blocksToday)),
			NoBypass:    int(math.Round(noBypass)),
			StreakBonus: int(math.Round(streakBonus)),
		},
		Trend: CalculateTrend(stats, now),
	}
}

// CalculateTrend compares today's blocks against yesterday's.
func CalculateTrend(stats UsageStats, now time.Time) int {
	var today, yesterday int
	if d := stats.day(now); d != nil {
		today = d.Blocks
	}
	if d := stats.day(now.AddDate(0, 0, -1)); d != nil {
		yesterday = d.Blocks
	}
	if yesterday == 0 {
		if today > 0 {
			return 1
		}
		return 0
	}
	return cmp.Compare(today, yesterday)
}

func TopBlockedSites(stats UsageStats, limit int) []TopSite {
	aggregated := map[string]*SiteStats{}
	for _, day := range stats.Daily {
		for domain, site := range day.SiteBreakdown {
			agg, ok := aggregated[domain]
			if !ok {
				agg = &SiteStats{}
				aggregated[domain] = agg
			}
			agg.Blocks += site.Blocks
			agg.Bypasses += site.Bypasses
			agg.AutoRedirects += site.AutoRedirects
		}
	}

	top := make([]TopSite, 0, len(aggregated))
	for domain, site := range aggregated {
		top = append(top, TopSite{Domain: domain, SiteStats: *site})
	}
	slices.SortFunc(top, func(a, b TopSite) int {
		if c := cmp.Compare(b.Blocks, a.Blocks); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain, b.Domain)
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top
}

// Last7Days lists block counts from six days ago up to today.
func Last7Days(stats UsageStats, now time.Time) []DayBlocks {
	result := make([]DayBlocks, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		entry := DayBlocks{Date: DateKey(date), DayName: date.UTC().Weekday().String()[:3]}
		if d := stats.day(date); d != nil {
			entry.Blocks = d.Blocks
		}
		result = append(result, entry)
	}
	return result
}

func CalculateTotals(stats UsageStats) Totals {
	var t Totals
	for _, day := range stats.Daily {
		t.TotalBlocks += day.Blocks
		t.TotalBypassAttempts += day.BypassAttempts
		t.TotalBypassSuccesses += day.BypassSuccesses
	}
	return t
}
