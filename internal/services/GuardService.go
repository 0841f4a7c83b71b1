package services

import (
	"antislack/internal/challenge"
	"antislack/internal/crypto"
	"antislack/internal/errs"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	blockDebounceWindow = 10 * time.Second
	challengeTTL        = 5 * time.Minute
	undoTTL             = 5 * time.Second

	challengeKeyPrefix = "challenge-"
	undoKeyPrefix      = "undo-"
)

type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

var quotes = []Quote{
	{"Stay on target. Stay on target.", "Gold Five"},
	{"The only way to do great work is to love what you do.", "Steve Jobs"},
	{"Focus is saying no to 1,000 good ideas.", "Steve Jobs"},
	{"Houston, we are go for launch.", "Mission Control"},
	{"One small step for focus, one giant leap for productivity.", "Anonymous"},
	{"The obstacle is the way.", "Marcus Aurelius"},
	{"What you do today matters.", "Anonymous"},
	{"Discipline equals freedom.", "Jocko Willink"},
	{"Where focus goes, energy flows.", "Tony Robbins"},
	{"The successful warrior is the average man, with laser-like focus.", "Bruce Lee"},
}

type BlockPageView struct {
	Domain                string        `json:"domain"`
	Nuclear               NuclearStatus `json:"nuclear"`
	Streak                int           `json:"streak"`
	BypassAvailable       bool          `json:"bypassAvailable"`
	BypassDurationMinutes int           `json:"bypassDurationMinutes"`
	MathDifficulty        string        `json:"mathDifficulty"`
	ProductiveURL         string        `json:"productiveUrl"`
	BlockCount            int           `json:"blockCount"`
	Counted               bool          `json:"counted"`
	Quote                 Quote         `json:"quote"`
}

type ChallengeView struct {
	ID              string `json:"id"`
	Domain          string `json:"domain"`
	Question        string `json:"question"`
	Difficulty      string `json:"difficulty"`
	DurationMinutes int    `json:"durationMinutes"`
}

type SolveResult struct {
	Correct     bool                  `json:"correct"`
	Session     *models.BypassSession `json:"session,omitempty"`
	RedirectURL string                `json:"redirectUrl,omitempty"`
	Next        *ChallengeView        `json:"next,omitempty"`
}

type QuickBlockResult struct {
	Site      models.BlockedSite `json:"site"`
	UndoToken string             `json:"undoToken"`
	UndoTTLMs int64              `json:"undoTtlMs"`
}

type pendingChallenge struct {
	Domain     string                `json:"domain"`
	Answer     int                   `json:"answer"`
	Difficulty models.MathDifficulty `json:"difficulty"`
}

type GuardServiceInterface interface {
	ViewBlockPage(ctx context.Context, domain string) (BlockPageView, error)
	RequestChallenge(ctx context.Context, domain string) (ChallengeView, error)
	SolveChallenge(ctx context.Context, domain, id string, answer int) (SolveResult, error)
	TrackRedirect(ctx context.Context, rawURL, redirectURL string) bool
	QuickBlock(ctx context.Context, rawURL string) (QuickBlockResult, error)
	Undo(ctx context.Context, token string) error
	AddSite(ctx context.Context, pattern string) (models.BlockedSite, error)
	UpdateSite(ctx context.Context, id string, update SiteUpdate) (models.BlockedSite, error)
	RemoveSite(ctx context.Context, id string) error
	UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
	SetEnabled(ctx context.Context, enabled bool, passphrase string) (models.Settings, error)
	EnableLock(ctx context.Context, passphrase, confirm string) error
	DisableLock(ctx context.Context, passphrase string) error
	ChangeLock(ctx context.Context, current, next, confirm string) error
	RemoveBypass(ctx context.Context, domain string) error
	ActivateNuclear(ctx context.Context, hours int, passphrase string) (NuclearStatus, error)
	AbortNuclear(ctx context.Context, passphrase string) (NuclearStatus, error)
}

// GuardService runs the user-facing flows that chain several aggregates.
// Each chain is sequential: a write completes before the rule resync
// reads it.
type GuardService struct {
	config  ConfigServiceInterface
	bypass  BypassServiceInterface
	nuclear NuclearServiceInterface
	stats   StatsServiceInterface
	rules   rules.SynchronizerInterface
	cache   providers.CacheProviderInterface
	logger  providers.Logger
	now     func() time.Time

	genMu sync.Mutex
	gen   *challenge.Generator
}

func NewGuardService(
	config ConfigServiceInterface,
	bypass BypassServiceInterface,
	nuclear NuclearServiceInterface,
	stats StatsServiceInterface,
	sync rules.SynchronizerInterface,
	cache providers.CacheProviderInterface,
	logger providers.Logger,
) *GuardService {
	return &GuardService{
		config:  config,
		bypass:  bypass,
		nuclear: nuclear,
		stats:   stats,
		rules:   sync,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
		gen:     challenge.NewGenerator(nil),
	}
}

func (g *GuardService) resync(ctx context.Context) {
	if err := g.rules.UpdateBlockingRules(ctx); err != nil {
		g.logger.Errorf(providers.TypeRules, "Resync: %v", err)
	}
}

func (g *GuardService) pick(n int) int {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	return g.gen.Intn(n)
}

// ViewBlockPage builds the block page and counts the visit once per domain
// per 10 second window, so reloads do not inflate counters.
func (g *GuardService) ViewBlockPage(ctx context.Context, domain string) (BlockPageView, error) {
	domain = models.CleanPattern(domain)
	if domain == "" {
		return BlockPageView{}, errs.ErrInvalidDomain
	}

	settings := g.config.GetSettings(ctx)
	nuclear := g.nuclear.IsActive(ctx)
	view := BlockPageView{
		Domain:                domain,
		Nuclear:               nuclear,
		Streak:                models.CalculateStreak(g.stats.GetStats(ctx), g.now()),
		BypassAvailable:       settings.ShowBypassOption && !nuclear.Active,
		BypassDurationMinutes: settings.BypassDurationMinutes,
		MathDifficulty:        string(settings.MathDifficulty),
		ProductiveURL:         settings.DefaultRedirectURL,
		Quote:                 quotes[g.pick(len(quotes))],
	}

	sites := g.config.GetSites(ctx)
	i := models.FindSiteForDomain(sites, domain)
	if i < 0 {
		return view, nil
	}
	view.BlockCount = sites[i].BlockCount
	view.ProductiveURL = rules.ResolveTargetURL(sites[i], settings)

	key := fmt.Sprintf("blocked-%s-%d", domain, g.now().Unix()/10)
	if !g.cache.SetIfAbsent(key, []byte{1}, blockDebounceWindow) {
		return view, nil
	}
	if err := g.config.IncrementBlockCount(ctx, domain); err != nil {
		g.logger.Errorf(providers.TypeStorage, "Increment block count for %s: %v", domain, err)
	} else {
		view.BlockCount++
	}
	g.stats.RecordBlockAttempt(ctx, domain)
	view.Counted = true
	return view, nil
}

// bypassAllowed refuses while a lockdown runs (including when its state
// cannot be read) or when the bypass option is hidden.
func (g *GuardService) bypassAllowed(ctx context.Context) (models.Settings, error) {
	if g.nuclear.IsActive(ctx).Active {
		return models.Settings{}, errs.ErrNuclearActive
	}
	settings := g.config.GetSettings(ctx)
	if !settings.ShowBypassOption {
		return settings, errs.ErrBypassDisabled
	}
	return settings, nil
}

func (g *GuardService) issueChallenge(domain string, settings models.Settings) (ChallengeView, error) {
	g.genMu.Lock()
	problem := g.gen.Generate(settings.MathDifficulty)
	g.genMu.Unlock()

	id := uuid.NewString()
	data, err := json.Marshal(pendingChallenge{Domain: domain, Answer: problem.Answer, Difficulty: settings.MathDifficulty})
	if err != nil {
		return ChallengeView{}, err
	}
	g.cache.Set(challengeKeyPrefix+id, data, challengeTTL)
	return ChallengeView{
		ID:              id,
		Domain:          domain,
		Question:        problem.Question,
		Difficulty:      string(settings.MathDifficulty),
		DurationMinutes: settings.BypassDurationMinutes,
	}, nil
}

func (g *GuardService) RequestChallenge(ctx context.Context, domain string) (ChallengeView, error) {
	domain = models.CleanPattern(domain)
	if domain == "" {
		return ChallengeView{}, errs.ErrInvalidDomain
	}
	settings, err := g.bypassAllowed(ctx)
	if err != nil {
		return ChallengeView{}, err
	}
	return g.issueChallenge(domain, settings)
}

// takeChallenge consumes id; a challenge can be answered once.
func (g *GuardService) takeChallenge(id, domain string) (pendingChallenge, error) {
	key := challengeKeyPrefix + id
	data, ok := g.cache.Get(key)
	if !ok || !g.cache.Del(key) {
		return pendingChallenge{}, errs.ErrChallengeExpired
	}
	var pending pendingChallenge
	if err := json.Unmarshal(data, &pending); err != nil || pending.Domain != domain {
		return pendingChallenge{}, errs.ErrChallengeExpired
	}
	return pending, nil
}

// SolveChallenge checks answer. A wrong answer is recorded and replaced by a
// fresh challenge; a right one records the bypass, grants the session and
// resyncs rules, in that order.
func (g *GuardService) SolveChallenge(ctx context.Context, domain, id string, answer int) (SolveResult, error) {
	domain = models.CleanPattern(domain)
	pending, err := g.takeChallenge(id, domain)
	if err != nil {
		return SolveResult{}, err
	}
	settings, err := g.bypassAllowed(ctx)
	if err != nil {
		return SolveResult{}, err
	}

	if pending.Answer != answer {
		g.stats.RecordBypassAttempt(ctx, domain, false, "")
		next, err := g.issueChallenge(domain, settings)
		if err != nil {
			return SolveResult{}, err
		}
		return SolveResult{Next: &next}, nil
	}

	g.stats.RecordBypassAttempt(ctx, domain, true, pending.Difficulty)
	session, err := g.bypass.Add(ctx, domain, settings.BypassDurationMinutes)
	if err != nil {
		return SolveResult{}, err
	}
	g.resync(ctx)
	return SolveResult{
		Correct:     true,
		Session:     &session,
		RedirectURL: "https://" + domain,
	}, nil
}

// TrackRedirect records an auto-redirect when the host reports one of ours:
// the first site whose pattern occurs in rawURL, with auto-redirect in
// effect and a target equal to redirectURL.
func (g *GuardService) TrackRedirect(ctx context.Context, rawURL, redirectURL string) bool {
	settings := g.config.GetSettings(ctx)
	for _, site := range g.config.GetSites(ctx) {
		if !strings.Contains(rawURL, models.PatternBase(site.Pattern)) {
			continue
		}
		if !rules.ResolveAutoRedirect(site, settings) {
			continue
		}
		if rules.ResolveTargetURL(site, settings) != redirectURL {
			continue
		}
		g.stats.RecordAutoRedirect(ctx, site.Pattern)
		if err := g.config.IncrementAutoRedirectCount(ctx, site.ID); err != nil {
			g.logger.Errorf(providers.TypeStorage, "Increment auto-redirect count for %s: %v", site.Pattern, err)
		}
		g.logger.Debugf(providers.TypeStats, "Auto-redirect tracked for %s", site.Pattern)
		return true
	}
	return false
}

// QuickBlockDomain extracts the domain a quick block of rawURL would add.
func QuickBlockDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", fmt.Errorf("%w: system pages cannot be blocked", errs.ErrInvalidURL)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), nil
}

// QuickBlock adds the site of rawURL and hands back a token that undoes
// the addition for 5 seconds.
func (g *GuardService) QuickBlock(ctx context.Context, rawURL string) (QuickBlockResult, error) {
	domain, err := QuickBlockDomain(rawURL)
	if err != nil {
		return QuickBlockResult{}, err
	}
	site, err := g.config.AddSite(ctx, domain)
	if err != nil {
		return QuickBlockResult{}, err
	}
	g.resync(ctx)

	token := uuid.NewString()
	g.cache.Set(undoKeyPrefix+token, []byte(site.ID), undoTTL)
	g.logger.Infof(providers.TypeApp, "Blocked %s via quick block", domain)
	return QuickBlockResult{Site: site, UndoToken: token, UndoTTLMs: undoTTL.Milliseconds()}, nil
}

func (g *GuardService) Undo(ctx context.Context, token string) error {
	key := undoKeyPrefix + token
	id, ok := g.cache.Get(key)
	if !ok || !g.cache.Del(key) {
		return fmt.Errorf("%w: undo window closed", errs.ErrNotFound)
	}
	if err := g.config.RemoveSite(ctx, string(id)); err != nil {
		return err
	}
	g.resync(ctx)
	g.logger.Infof(providers.TypeApp, "Undo: removed site from blocklist")
	return nil
}

func (g *GuardService) AddSite(ctx context.Context, pattern string) (models.BlockedSite, error) {
	site, err := g.config.AddSite(ctx, pattern)
	if err != nil {
		return site, err
	}
	g.resync(ctx)
	return site, nil
}

func (g *GuardService) UpdateSite(ctx context.Context, id string, update SiteUpdate) (models.BlockedSite, error) {
	site, err := g.config.UpdateSite(ctx, id, update)
	if err != nil {
		return site, err
	}
	g.resync(ctx)
	return site, nil
}

func (g *GuardService) RemoveSite(ctx context.Context, id string) error {
	if err := g.config.RemoveSite(ctx, id); err != nil {
		return err
	}
	g.resync(ctx)
	return nil
}

func (g *GuardService) RemoveBypass(ctx context.Context, domain string) error {
	if err := g.bypass.Remove(ctx, models.CleanPattern(domain)); err != nil {
		return err
	}
	g.resync(ctx)
	return nil
}

// ActivateNuclear starts a lockdown unless one is already running, then
// resyncs so bypass sessions stop applying.
func (g *GuardService) ActivateNuclear(ctx context.Context, hours int, passphrase string) (NuclearStatus, error) {
	if current := g.nuclear.IsActive(ctx); current.Active {
		return current, errs.ErrNuclearActive
	}
	status, err := g.nuclear.Activate(ctx, hours, passphrase)
	if err != nil {
		return status, err
	}
	g.resync(ctx)
	return status, nil
}

func (g *GuardService) AbortNuclear(ctx context.Context, passphrase string) (NuclearStatus, error) {
	if err := g.nuclear.Abort(ctx, passphrase); err != nil {
		return NuclearStatus{}, err
	}
	g.resync(ctx)
	return g.nuclear.IsActive(ctx), nil
}

// UpdateSettings applies a partial update. The enabled flag and the disable
// lock have their own guarded flows and are ignored here.
func (g *GuardService) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	patch.Enabled = nil
	patch.RequirePassphraseToDisable = nil
	settings, err := g.config.UpdateSettings(ctx, patch)
	if err != nil {
		return settings, err
	}
	g.resync(ctx)
	return settings, nil
}

// verifyLock checks passphrase against the stored disable-lock hash.
func (g *GuardService) verifyLock(ctx context.Context, passphrase string) error {
	hash, err := g.config.GetPassphraseHash(ctx)
	if err != nil {
		return err
	}
	if hash == "" {
		return fmt.Errorf("%w: no passphrase set", errs.ErrPassphraseMismatch)
	}
	res := crypto.Verify(passphrase, hash)
	if res.Error != "" {
		return fmt.Errorf("%w: %s", errs.ErrPassphraseFormat, res.Error)
	}
	if !res.Success {
		return errs.ErrPassphraseMismatch
	}
	return nil
}

// SetEnabled switches blocking. Disabling is refused during a lockdown and
// needs the passphrase when the disable lock is on.
func (g *GuardService) SetEnabled(ctx context.Context, enabled bool, passphrase string) (models.Settings, error) {
	current := g.config.GetSettings(ctx)
	if !enabled {
		if g.nuclear.IsActive(ctx).Active {
			return current, errs.ErrNuclearActive
		}
		if current.RequirePassphraseToDisable {
			if err := g.verifyLock(ctx, passphrase); err != nil {
				g.logger.Warnf(providers.TypeApp, "Disable rejected: %v", err)
				return current, err
			}
		}
	}

	settings, err := g.config.UpdateSettings(ctx, models.SettingsPatch{Enabled: &enabled})
	if err != nil {
		return current, err
	}
	g.resync(ctx)
	state := "deactivated"
	if enabled {
		state = "activated"
	}
	g.logger.Infof(providers.TypeApp, "Blocking %s", state)
	return settings, nil
}

func validateNewPassphrase(passphrase, confirm string) error {
	if err := crypto.ValidateStrength(passphrase); err != nil {
		return err
	}
	if passphrase != confirm {
		return errs.ErrPassphraseDiffer
	}
	return nil
}

func (g *GuardService) storeLock(ctx context.Context, passphrase string) error {
	hash, err := crypto.Hash(passphrase)
	if err != nil {
		return err
	}
	if err := g.config.SetPassphraseHash(ctx, hash); err != nil {
		return err
	}
	on := true
	_, err = g.config.UpdateSettings(ctx, models.SettingsPatch{RequirePassphraseToDisable: &on})
	return err
}

// EnableLock requires passphrase to turn blocking off from now on.
func (g *GuardService) EnableLock(ctx context.Context, passphrase, confirm string) error {
	if err := validateNewPassphrase(passphrase, confirm); err != nil {
		return err
	}
	if err := g.storeLock(ctx, passphrase); err != nil {
		return err
	}
	g.logger.Infof(providers.TypeApp, "Disable lock enabled")
	return nil
}

func (g *GuardService) DisableLock(ctx context.Context, passphrase string) error {
	if err := g.verifyLock(ctx, passphrase); err != nil {
		return err
	}
	if err := g.config.ClearPassphraseHash(ctx); err != nil {
		return err
	}
	off := false
	if _, err := g.config.UpdateSettings(ctx, models.SettingsPatch{RequirePassphraseToDisable: &off}); err != nil {
		return err
	}
	g.logger.Infof(providers.TypeApp, "Disable lock removed")
	return nil
}

func (g *GuardService) ChangeLock(ctx context.Context, current, next, confirm string) error {
	if err := g.verifyLock(ctx, current); err != nil {
		return err
	}
	if err := validateNewPassphrase(next, confirm); err != nil {
		return err
	}
	if err := g.storeLock(ctx, next); err != nil {
		return err
	}
	g.logger.Infof(providers.TypeApp, "Disable lock passphrase changed")
	return nil
}
