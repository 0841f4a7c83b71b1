package rules

import (
	"antislack/internal/errs"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/testutil"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockPage = "/blocked"

type stubConfig struct {
	settings models.Settings
	sites    []models.BlockedSite
}

func (s *stubConfig) GetSettings(context.Context) models.Settings   { return s.settings }
func (s *stubConfig) GetSites(context.Context) []models.BlockedSite { return s.sites }

type stubBypass struct{ domains []string }

func (s *stubBypass) ActiveDomains(context.Context) []string { return s.domains }

type stubLockdown struct{ active bool }

func (s *stubLockdown) LockdownActive(context.Context) bool { return s.active }

// failingEngine rejects updates without touching the wrapped engine.
type failingEngine struct {
	*host.MemoryRuleEngine
	fail bool
}

func (f *failingEngine) UpdateDynamicRules(ctx context.Context, remove []int, add []host.Rule) error {
	if f.fail {
		return errors.New("quota exceeded")
	}
	return f.MemoryRuleEngine.UpdateDynamicRules(ctx, remove, add)
}

type syncFixture struct {
	config   *stubConfig
	bypass   *stubBypass
	lockdown *stubLockdown
	engine   *failingEngine
	metrics  *testutil.MockMetrics
	logger   *testutil.MockLogger
	sync     *Synchronizer
}

func newSyncFixture(sites ...models.BlockedSite) *syncFixture {
	f := &syncFixture{
		config:   &stubConfig{settings: models.DefaultSettings(), sites: sites},
		bypass:   &stubBypass{},
		lockdown: &stubLockdown{},
		engine:   &failingEngine{MemoryRuleEngine: host.NewMemoryRuleEngine(0)},
		metrics:  testutil.NewMockMetrics(),
		logger:   testutil.NewMockLogger(),
	}
	f.sync = NewSynchronizer(f.config, f.bypass, f.lockdown, f.engine, blockPage, f.metrics, f.logger)
	return f
}

func installed(t *testing.T, f *syncFixture) []host.Rule {
	t.Helper()
	rules, err := f.engine.GetDynamicRules(context.Background())
	require.NoError(t, err)
	return rules
}

func TestUpdateBlockingRules_TwitterScenario(t *testing.T) {
	f := newSyncFixture(models.BlockedSite{ID: "1", Pattern: "twitter.com", RedirectURL: "https://notion.so"})

	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	rules := installed(t, f)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].ID)
	assert.Equal(t, "||twitter.com", rules[0].Condition.URLFilter)
	assert.Equal(t, []string{host.ResourceMainFrame}, rules[0].Condition.ResourceTypes)
	assert.Equal(t, "/blocked?blocked=twitter.com", rules[0].Action.Redirect.ExtensionPath)
	assert.Empty(t, rules[0].Action.Redirect.URL)

	rule, ok := f.engine.Match("https://twitter.com/home")
	require.True(t, ok)
	assert.Equal(t, rules[0].ID, rule.ID)

	f.config.settings.AutoRedirect = true
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	rules = installed(t, f)
	require.Len(t, rules, 1)
	assert.Equal(t, "https://notion.so", rules[0].Action.Redirect.URL)
	assert.Empty(t, rules[0].Action.Redirect.ExtensionPath)
	assert.Equal(t, 1, f.metrics.InstalledRules)
	assert.Equal(t, 2, f.metrics.RuleSyncs["ok"])
}

func TestUpdateBlockingRules_DisabledClearsAll(t *testing.T) {
	f := newSyncFixture(models.DefaultBlockedSites(0)...)
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	assert.Len(t, installed(t, f), 7)

	f.config.settings.Enabled = false
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	assert.Empty(t, installed(t, f))
	assert.Equal(t, 0, f.metrics.InstalledRules)
	assert.Equal(t, 1, f.metrics.RuleSyncs["cleared"])
}

func TestUpdateBlockingRules_BypassedSitesSkipped(t *testing.T) {
	f := newSyncFixture(models.DefaultBlockedSites(0)...)
	f.bypass.domains = []string{"old.reddit.com", "x.com"}

	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	rules := installed(t, f)
	require.Len(t, rules, 5)
	for i, rule := range rules {
		assert.Equal(t, RuleIDOffset+i, rule.ID)
		assert.NotEqual(t, "||reddit.com", rule.Condition.URLFilter)
		assert.NotEqual(t, "||x.com", rule.Condition.URLFilter)
	}
	assert.True(t, f.logger.Contains("(2 bypassed)"))
}

func TestUpdateBlockingRules_LockdownIgnoresBypass(t *testing.T) {
	f := newSyncFixture(models.BlockedSite{ID: "1", Pattern: "twitter.com"})
	f.bypass.domains = []string{"twitter.com"}

	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	_, ok := f.engine.Match("https://twitter.com/home")
	assert.False(t, ok)

	f.lockdown.active = true
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	rule, ok := f.engine.Match("https://twitter.com/home")
	require.True(t, ok)
	assert.Equal(t, "||twitter.com", rule.Condition.URLFilter)
	assert.True(t, f.logger.Contains("(0 bypassed)"))

	f.lockdown.active = false
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))
	_, ok = f.engine.Match("https://twitter.com/home")
	assert.False(t, ok)
}

func TestUpdateBlockingRules_FailureKeepsPreviousRules(t *testing.T) {
	f := newSyncFixture(models.BlockedSite{ID: "1", Pattern: "twitter.com"})
	require.NoError(t, f.sync.UpdateBlockingRules(context.Background()))

	f.config.sites = append(f.config.sites, models.BlockedSite{ID: "2", Pattern: "reddit.com"})
	f.engine.fail = true
	err := f.sync.UpdateBlockingRules(context.Background())
	require.ErrorIs(t, err, errs.ErrRuleSync)

	rules := installed(t, f)
	require.Len(t, rules, 1)
	assert.Equal(t, "||twitter.com", rules[0].Condition.URLFilter)
	assert.Equal(t, 1, f.metrics.RuleSyncs["error"])
	assert.Equal(t, 1, f.logger.Count("error"))
}

func TestBuildRules_EscapesPattern(t *testing.T) {
	sites := []models.BlockedSite{{Pattern: "*.news.example.com"}}
	rules := BuildRules(models.DefaultSettings(), sites, nil, blockPage)
	require.Len(t, rules, 1)
	assert.Equal(t, "/blocked?blocked=%2A.news.example.com", rules[0].Action.Redirect.ExtensionPath)

	assert.Empty(t, BuildRules(models.DefaultSettings(), sites, []string{"a.news.example.com"}, blockPage))
}
