package rules

import (
	"antislack/internal/errs"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/providers"
	"context"
	"fmt"
	"net/url"
	"sync"
)

// RuleIDOffset is the id of the first generated rule.
const RuleIDOffset = 1

const (
	syncResultOK      = "ok"
	syncResultCleared = "cleared"
	syncResultError   = "error"
)

// ConfigReaderInterface is the read side of the config store. Both calls
// degrade to defaults on storage errors.
type ConfigReaderInterface interface {
	GetSettings(ctx context.Context) models.Settings
	GetSites(ctx context.Context) []models.BlockedSite
}

// BypassReaderInterface lists domains with an unexpired bypass session.
type BypassReaderInterface interface {
	ActiveDomains(ctx context.Context) []string
}

// LockdownReaderInterface reports an active nuclear lockdown. Read
// failures must report true.
type LockdownReaderInterface interface {
	LockdownActive(ctx context.Context) bool
}

type SynchronizerInterface interface {
	UpdateBlockingRules(ctx context.Context) error
}

type Synchronizer struct {
	mu            sync.Mutex
	config        ConfigReaderInterface
	bypass        BypassReaderInterface
	lockdown      LockdownReaderInterface
	engine        host.RuleEngineInterface
	blockPagePath string
	metrics       providers.MetricsProviderInterface
	logger        providers.Logger
}

func NewSynchronizer(
	config ConfigReaderInterface,
	bypass BypassReaderInterface,
	lockdown LockdownReaderInterface,
	engine host.RuleEngineInterface,
	blockPagePath string,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) *Synchronizer {
	return &Synchronizer{
		config:        config,
		bypass:        bypass,
		lockdown:      lockdown,
		engine:        engine,
		blockPagePath: blockPagePath,
		metrics:       metrics,
		logger:        logger,
	}
}

// BlockPageURL is the internal page a blocked navigation lands on.
func BlockPageURL(blockPagePath, pattern string) string {
	return blockPagePath + "?blocked=" + url.QueryEscape(pattern)
}

// BuildRule turns one site into a redirect rule with the given id.
func BuildRule(site models.BlockedSite, id int, settings models.Settings, blockPagePath string) host.Rule {
	redirect := &host.Redirect{ExtensionPath: BlockPageURL(blockPagePath, site.Pattern)}
	if ResolveAutoRedirect(site, settings) {
		redirect = &host.Redirect{URL: ResolveTargetURL(site, settings)}
	}
	return host.Rule{
		ID:       id,
		Priority: 1,
		Action: host.Action{
			Type:     host.ActionRedirect,
			Redirect: redirect,
		},
		Condition: host.Condition{
			URLFilter:     "||" + site.Pattern,
			ResourceTypes: []string{host.ResourceMainFrame},
		},
	}
}

// BuildRules computes the full rule set. Sites covering a bypassed domain
// are left out; a disabled blocker yields no rules.
func BuildRules(settings models.Settings, sites []models.BlockedSite, bypassed []string, blockPagePath string) []host.Rule {
	if !settings.Enabled {
		return nil
	}
	out := make([]host.Rule, 0, len(sites))
	for _, site := range sites {
		if isBypassed(site, bypassed) {
			continue
		}
		out = append(out, BuildRule(site, RuleIDOffset+len(out), settings, blockPagePath))
	}
	return out
}

func isBypassed(site models.BlockedSite, bypassed []string) bool {
	base := models.PatternBase(site.Pattern)
	for _, domain := range bypassed {
		if models.DomainCovers(base, domain) {
			return true
		}
	}
	return false
}

// UpdateBlockingRules replaces every installed rule with the freshly
// computed set in a single engine call. Bypass sessions are ignored while
// a nuclear lockdown is active. On failure the engine keeps the
// previous rules and the error wraps errs.ErrRuleSync.
func (s *Synchronizer) UpdateBlockingRules(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.config.GetSettings(ctx)
	var next []host.Rule
	bypassedCount := 0
	if settings.Enabled {
		var bypassed []string
		if s.lockdown.LockdownActive(ctx) {
			s.logger.Infof(providers.TypeRules, "Nuclear mode active, ignoring bypass sessions")
		} else {
			bypassed = s.bypass.ActiveDomains(ctx)
		}
		bypassedCount = len(bypassed)
		next = BuildRules(settings, s.config.GetSites(ctx), bypassed, s.blockPagePath)
	}

	existing, err := s.engine.GetDynamicRules(ctx)
	if err != nil {
		return s.fail(err)
	}
	removeIDs := make([]int, 0, len(existing))
	for _, rule := range existing {
		removeIDs = append(removeIDs, rule.ID)
	}

	if !settings.Enabled && len(removeIDs) == 0 {
		s.metrics.IncRuleSyncs(syncResultCleared)
		s.metrics.SetInstalledRules(0)
		return nil
	}
	if err := s.engine.UpdateDynamicRules(ctx, removeIDs, next); err != nil {
		return s.fail(err)
	}

	if !settings.Enabled {
		s.logger.Infof(providers.TypeRules, "Cleared all blocking rules")
		s.metrics.IncRuleSyncs(syncResultCleared)
	} else {
		s.logger.Infof(providers.TypeRules, "Updated %d blocking rules (%d bypassed)", len(next), bypassedCount)
		s.metrics.IncRuleSyncs(syncResultOK)
	}
	s.metrics.SetInstalledRules(len(next))
	return nil
}

func (s *Synchronizer) fail(err error) error {
	s.logger.Errorf(providers.TypeRules, "Rule update failed: %v", err)
	s.metrics.IncRuleSyncs(syncResultError)
	return fmt.Errorf("%w: %w", errs.ErrRuleSync, err)
}
