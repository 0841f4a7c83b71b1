package services

import (
	"antislack/internal/backup"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/rules"
	"antislack/internal/storage"
	"antislack/internal/testutil"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testBlockPage = "/blocked"

// 2024-03-15 is a Friday.
var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memArchive struct {
	mu      sync.Mutex
	days    map[string]*models.DailyStats
	flushes int
}

func newMemArchive() *memArchive {
	return &memArchive{days: map[string]*models.DailyStats{}}
}

func (a *memArchive) Archive(days map[string]*models.DailyStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range days {
		a.days[k] = v
	}
}

func (a *memArchive) Get(date string) (*models.DailyStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.days[date]
	return d, ok
}

func (a *memArchive) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.flushes++
	return nil
}

type memSink struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memSink) Put(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = data
	return "mem://" + name, nil
}

func (s *memSink) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[name]
	if !ok {
		return nil, backup.ErrBackupNotFound
	}
	return d, nil
}

type fixture struct {
	syncPart  *testutil.MockPartition
	localPart *testutil.MockPartition
	alarms    *testutil.MockAlarms
	cache     *testutil.MockCache
	metrics   *testutil.MockMetrics
	logger    *testutil.MockLogger
	clock     *testClock
	archive   *memArchive
	sink      *memSink
	engine    *host.MemoryRuleEngine

	config  *ConfigService
	bypass  *BypassService
	stats   *StatsService
	nuclear *NuclearService
	rules   *rules.Synchronizer
	guard   *GuardService
	backup  *BackupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		syncPart:  testutil.NewMockPartition(storage.PartitionSync),
		localPart: testutil.NewMockPartition(storage.PartitionLocal),
		alarms:    testutil.NewMockAlarms(),
		cache:     testutil.NewMockCache(),
		metrics:   testutil.NewMockMetrics(),
		logger:    testutil.NewMockLogger(),
		clock:     &testClock{t: fixedNow},
		archive:   newMemArchive(),
		sink:      &memSink{data: map[string][]byte{}},
		engine:    host.NewMemoryRuleEngine(0),
	}
	parts := &storage.Partitions{Sync: f.syncPart, Local: f.localPart}

	f.config = NewConfigService(parts, f.logger)
	f.config.now = f.clock.Now
	f.bypass = NewBypassService(parts, f.alarms, f.logger)
	f.bypass.now = f.clock.Now
	f.stats = NewStatsService(parts, f.archive, f.metrics, f.logger)
	f.stats.now = f.clock.Now
	f.nuclear = NewNuclearService(parts, f.alarms, f.stats, f.metrics, f.logger)
	f.nuclear.now = f.clock.Now
	f.rules = rules.NewSynchronizer(f.config, f.bypass, f.nuclear, f.engine, testBlockPage, f.metrics, f.logger)
	f.guard = NewGuardService(f.config, f.bypass, f.nuclear, f.stats, f.rules, f.cache, f.logger)
	f.guard.now = f.clock.Now
	f.backup = NewBackupService(f.config, f.stats, f.rules, f.sink, f.logger)
	f.backup.now = f.clock.Now

	require.NoError(t, f.config.Initialize(context.Background()))
	return f
}

func (f *fixture) sites(t *testing.T) []models.BlockedSite {
	t.Helper()
	sites, err := f.config.LoadSites(context.Background())
	require.NoError(t, err)
	return sites
}

func (f *fixture) usage(t *testing.T) models.UsageStats {
	t.Helper()
	stats, err := f.stats.LoadStats(context.Background())
	require.NoError(t, err)
	return stats
}
