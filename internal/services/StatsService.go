package services

import (
	"antislack/internal/errs"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/storage"
	"context"
	"fmt"
	"sync"
	"time"
)

const topSitesLimit = 5

// StatsArchiveInterface receives days pruned from the rolling window.
type StatsArchiveInterface interface {
	Archive(days map[string]*models.DailyStats)
	Get(date string) (*models.DailyStats, bool)
	Flush() error
}

type Dashboard struct {
	Score                  models.ProductivityScore `json:"score"`
	Streak                 int                      `json:"streak"`
	BestStreak             int                      `json:"bestStreak"`
	Today                  *models.DailyStats       `json:"today"`
	TopSites               []models.TopSite         `json:"topSites"`
	Last7Days              []models.DayBlocks       `json:"last7Days"`
	Totals                 models.Totals            `json:"totals"`
	TotalBlocks            int                      `json:"totalBlocks"`
	TotalBypasses          int                      `json:"totalBypasses"`
	TotalAutoRedirects     int                      `json:"totalAutoRedirects"`
	NuclearCompletions     int                      `json:"nuclearCompletions"`
	HardDifficultyBypasses int                      `json:"hardDifficultyBypasses"`
}

type StatsServiceInterface interface {
	RecordBlockAttempt(ctx context.Context, domain string)
	RecordAutoRedirect(ctx context.Context, domain string)
	RecordBypassAttempt(ctx context.Context, domain string, success bool, difficulty models.MathDifficulty)
	RecordNuclearCompletion(ctx context.Context)
	GetStats(ctx context.Context) models.UsageStats
	LoadStats(ctx context.Context) (models.UsageStats, error)
	SaveStats(ctx context.Context, stats models.UsageStats) error
	Migrate(ctx context.Context) error
	UpdateStreak(ctx context.Context) error
	Reset(ctx context.Context) error
	Dashboard(ctx context.Context) Dashboard
	ArchivedDay(date string) (*models.DailyStats, bool)
	FlushArchive() error
}

type StatsService struct {
	mu      sync.Mutex
	local   storage.PartitionInterface
	archive StatsArchiveInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
	now     func() time.Time
}

func NewStatsService(
	parts *storage.Partitions,
	archive StatsArchiveInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) *StatsService {
	return &StatsService{
		local:   parts.Local,
		archive: archive,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// LoadStats reads and migrates the stored aggregate. A missing record is
// the empty aggregate.
func (s *StatsService) LoadStats(ctx context.Context) (models.UsageStats, error) {
	data, ok, err := s.local.Get(ctx, storage.KeyUsageStats)
	if err != nil {
		return models.DefaultUsageStats(), fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageRead, s.local.Name(), storage.KeyUsageStats, err)
	}
	if !ok {
		return models.DefaultUsageStats(), nil
	}
	stats, err := models.DecodeUsageStats(data)
	if err != nil {
		return stats, fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageRead, s.local.Name(), storage.KeyUsageStats, err)
	}
	return stats, nil
}

func (s *StatsService) GetStats(ctx context.Context) models.UsageStats {
	stats, err := s.LoadStats(ctx)
	if err != nil {
		s.logger.Errorf(providers.TypeStats, "Get usage stats: %v", err)
	}
	return stats
}

func (s *StatsService) SaveStats(ctx context.Context, stats models.UsageStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, models.MigrateUsageStats(stats))
}

// save prunes to the rolling window, hands pruned days to the archive and
// persists.
func (s *StatsService) save(ctx context.Context, stats models.UsageStats) error {
	if pruned := stats.Prune(models.MaxStatsDays); len(pruned) > 0 {
		s.archive.Archive(pruned)
		s.logger.Debugf(providers.TypeStats, "Archived %d days", len(pruned))
	}
	return storage.SetJSON(ctx, s.local, storage.KeyUsageStats, stats)
}

// record applies fn to the stored aggregate. Failures are logged only:
// statistics never sit on the blocking path.
func (s *StatsService) record(ctx context.Context, op string, fn func(*models.UsageStats, time.Time)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.LoadStats(ctx)
	if err != nil {
		s.logger.Errorf(providers.TypeStats, "%s: %v", op, err)
	}
	fn(&stats, s.now())
	if err := s.save(ctx, stats); err != nil {
		s.logger.Errorf(providers.TypeStats, "%s: %v", op, err)
	}
}

func (s *StatsService) RecordBlockAttempt(ctx context.Context, domain string) {
	s.record(ctx, "Record block", func(stats *models.UsageStats, now time.Time) {
		stats.RecordBlock(domain, now)
	})
	s.metrics.IncBlocks()
}

func (s *StatsService) RecordAutoRedirect(ctx context.Context, domain string) {
	s.record(ctx, "Record auto-redirect", func(stats *models.UsageStats, now time.Time) {
		stats.RecordAutoRedirect(domain, now)
	})
	s.metrics.IncAutoRedirects()
}

func (s *StatsService) RecordBypassAttempt(ctx context.Context, domain string, success bool, difficulty models.MathDifficulty) {
	s.record(ctx, "Record bypass attempt", func(stats *models.UsageStats, now time.Time) {
		stats.RecordBypassAttempt(domain, success, difficulty, now)
	})
	outcome := "failure"
	if success {
		outcome = "success"
	}
	s.metrics.IncBypassAttempts(outcome)
}

func (s *StatsService) RecordNuclearCompletion(ctx context.Context) {
	s.record(ctx, "Record nuclear completion", func(stats *models.UsageStats, _ time.Time) {
		stats.RecordNuclearCompletion()
	})
	s.metrics.IncNuclearCompletions()
}

// Migrate rewrites the stored aggregate in its canonical shape.
func (s *StatsService) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.local.Get(ctx, storage.KeyUsageStats)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageRead, s.local.Name(), storage.KeyUsageStats, err)
	}
	if !ok {
		return nil
	}
	stats, err := models.DecodeUsageStats(data)
	if err != nil {
		s.logger.Warnf(providers.TypeStats, "Discarding unreadable usage stats: %v", err)
	}
	return s.save(ctx, stats)
}

func (s *StatsService) UpdateStreak(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.LoadStats(ctx)
	if err != nil {
		return err
	}
	streak, best := stats.Streak, stats.BestStreak
	stats.UpdateStreak(s.now())
	if stats.Streak == streak && stats.BestStreak == best {
		return nil
	}
	return s.save(ctx, stats)
}

// Reset clears every counter. Unlike recording, failures propagate.
func (s *StatsService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.SetJSON(ctx, s.local, storage.KeyUsageStats, models.DefaultUsageStats()); err != nil {
		return err
	}
	s.logger.Infof(providers.TypeStats, "Usage stats reset")
	return nil
}

func (s *StatsService) Dashboard(ctx context.Context) Dashboard {
	stats := s.GetStats(ctx)
	now := s.now()

	today := stats.Daily[models.DateKey(now)]
	if today == nil {
		today = models.NewDailyStats()
	}
	return Dashboard{
		Score:                  models.CalculateProductivityScore(stats, now),
		Streak:                 models.CalculateStreak(stats, now),
		BestStreak:             stats.BestStreak,
		Today:                  today,
		TopSites:               models.TopBlockedSites(stats, topSitesLimit),
		Last7Days:              models.Last7Days(stats, now),
		Totals:                 models.CalculateTotals(stats),
		TotalBlocks:            stats.TotalBlocks,
		TotalBypasses:          stats.TotalBypasses,
		TotalAutoRedirects:     stats.TotalAutoRedirects,
		NuclearCompletions:     stats.NuclearCompletions,
		HardDifficultyBypasses: stats.HardDifficultyBypasses,
	}
}

func (s *StatsService) ArchivedDay(date string) (*models.DailyStats, bool) {
	return s.archive.Get(date)
}

func (s *StatsService) FlushArchive() error {
	return s.archive.Flush()
}
