package controllers

import (
	"antislack/internal/backup"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/rules"
	"antislack/internal/services"
	"antislack/internal/storage"
	"antislack/internal/testutil"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

type nopArchive struct {
	days map[string]*models.DailyStats
}

func (a *nopArchive) Archive(days map[string]*models.DailyStats) {}
func (a *nopArchive) Get(date string) (*models.DailyStats, bool) {
	d, ok := a.days[date]
	return d, ok
}
func (a *nopArchive) Flush() error { return nil }

type fixture struct {
	syncPart  *testutil.MockPartition
	localPart *testutil.MockPartition
	cache     *testutil.MockCache
	logger    *testutil.MockLogger
	engine    *host.MemoryRuleEngine
	archive   *nopArchive

	config  *services.ConfigService
	bypass  *services.BypassService
	stats   *services.StatsService
	nuclear *services.NuclearService
	guard   *services.GuardService
	rules   *rules.Synchronizer

	api    *ApiController
	lock   *LockController
	stat   *StatsController
	backup *BackupController
	health *HealthController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		syncPart:  testutil.NewMockPartition(storage.PartitionSync),
		localPart: testutil.NewMockPartition(storage.PartitionLocal),
		cache:     testutil.NewMockCache(),
		logger:    testutil.NewMockLogger(),
		engine:    host.NewMemoryRuleEngine(0),
		archive:   &nopArchive{days: map[string]*models.DailyStats{}},
	}
	parts := &storage.Partitions{Sync: f.syncPart, Local: f.localPart}
	metrics := testutil.NewMockMetrics()
	alarms := testutil.NewMockAlarms()

	f.config = services.NewConfigService(parts, f.logger)
	f.bypass = services.NewBypassService(parts, alarms, f.logger)
	f.stats = services.NewStatsService(parts, f.archive, metrics, f.logger)
	f.nuclear = services.NewNuclearService(parts, alarms, f.stats, metrics, f.logger)
	synchronizer := rules.NewSynchronizer(f.config, f.bypass, f.nuclear, f.engine, "/blocked", metrics, f.logger)
	f.rules = synchronizer
	f.guard = services.NewGuardService(f.config, f.bypass, f.nuclear, f.stats, synchronizer, f.cache, f.logger)
	backups := services.NewBackupService(f.config, f.stats, synchronizer, backup.NewLocalSink(t.TempDir()), f.logger)

	f.api = NewApiController(f.logger, f.config, f.guard, f.engine)
	f.lock = NewLockController(f.logger, f.bypass, f.nuclear, f.guard)
	f.stat = NewStatsController(f.logger, f.stats)
	f.backup = NewBackupController(f.logger, backups)
	f.health = NewHealthController(f.nuclear, f.engine)

	ctx := context.Background()
	require.NoError(t, f.config.Initialize(ctx))
	require.NoError(t, synchronizer.UpdateBlockingRules(ctx))
	return f
}

// call runs handler with an optional JSON body and chi URL params given as
// key/value pairs.
func call(t *testing.T, handler http.HandlerFunc, method, target string, body any, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}
