package services

import (
	"antislack/internal/errs"
	"antislack/internal/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingAnswer(t *testing.T, f *fixture, id string) int {
	t.Helper()
	data, ok := f.cache.Get(challengeKeyPrefix + id)
	require.True(t, ok)
	var p pendingChallenge
	require.NoError(t, json.Unmarshal(data, &p))
	return p.Answer
}

func TestGuard_ViewBlockPageDebounces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.guard.ViewBlockPage(ctx, "twitter.com")
	require.NoError(t, err)
	assert.True(t, view.Counted)
	assert.Equal(t, 1, view.BlockCount)
	assert.True(t, view.BypassAvailable)
	assert.Equal(t, "https://notion.so", view.ProductiveURL)
	assert.NotEmpty(t, view.Quote.Text)

	view, err = f.guard.ViewBlockPage(ctx, "twitter.com")
	require.NoError(t, err)
	assert.False(t, view.Counted)
	assert.Equal(t, 1, view.BlockCount)
	assert.Equal(t, 1, f.usage(t).TotalBlocks)

	f.clock.Advance(10 * time.Second)
	view, err = f.guard.ViewBlockPage(ctx, "twitter.com")
	require.NoError(t, err)
	assert.True(t, view.Counted)
	assert.Equal(t, 2, view.BlockCount)
	assert.Equal(t, 2, f.usage(t).TotalBlocks)
}

func TestGuard_ViewBlockPageDuringLockdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.nuclear.Activate(ctx, 1, nuclearPass)
	require.NoError(t, err)

	view, err := f.guard.ViewBlockPage(ctx, "reddit.com")
	require.NoError(t, err)
	assert.True(t, view.Nuclear.Active)
	assert.False(t, view.BypassAvailable)

	_, err = f.guard.RequestChallenge(ctx, "reddit.com")
	assert.ErrorIs(t, err, errs.ErrNuclearActive)
}

func TestGuard_ChallengeRefusedWhenNuclearUnreadable(t *testing.T) {
	f := newFixture(t)
	f.localPart.GetErr = errors.New("io")
	_, err := f.guard.RequestChallenge(context.Background(), "reddit.com")
	assert.ErrorIs(t, err, errs.ErrNuclearActive)
}

func TestGuard_ChallengeRefusedWhenHidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	_, err := f.config.UpdateSettings(ctx, models.SettingsPatch{ShowBypassOption: &off})
	require.NoError(t, err)

	_, err = f.guard.RequestChallenge(ctx, "reddit.com")
	assert.ErrorIs(t, err, errs.ErrBypassDisabled)
}

func TestGuard_SolveChallengeGrantsBypass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rules.UpdateBlockingRules(ctx))
	_, blocked := f.engine.Match("https://twitter.com/home")
	require.True(t, blocked)

	ch, err := f.guard.RequestChallenge(ctx, "twitter.com")
	require.NoError(t, err)
	assert.Equal(t, "medium", ch.Difficulty)
	assert.Equal(t, 15, ch.DurationMinutes)
	assert.Equal(t, challengeTTL, f.cache.TTLs[challengeKeyPrefix+ch.ID])

	wrong := pendingAnswer(t, f, ch.ID) + 1
	res, err := f.guard.SolveChallenge(ctx, "twitter.com", ch.ID, wrong)
	require.NoError(t, err)
	assert.False(t, res.Correct)
	require.NotNil(t, res.Next)

	_, err = f.guard.SolveChallenge(ctx, "twitter.com", ch.ID, wrong)
	assert.ErrorIs(t, err, errs.ErrChallengeExpired)

	res, err = f.guard.SolveChallenge(ctx, "twitter.com", res.Next.ID, pendingAnswer(t, f, res.Next.ID))
	require.NoError(t, err)
	assert.True(t, res.Correct)
	require.NotNil(t, res.Session)
	assert.Equal(t, "https://twitter.com", res.RedirectURL)

	assert.True(t, f.bypass.IsBypassed(ctx, "twitter.com"))
	_, blocked = f.engine.Match("https://twitter.com/home")
	assert.False(t, blocked)
	_, blocked = f.engine.Match("https://reddit.com")
	assert.True(t, blocked)

	stats := f.usage(t)
	assert.Equal(t, 2, stats.Daily["2024-03-15"].BypassAttempts)
	assert.Equal(t, 1, stats.TotalBypasses)
}

func TestGuard_SolveChallengeForOtherDomain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ch, err := f.guard.RequestChallenge(ctx, "twitter.com")
	require.NoError(t, err)

	_, err = f.guard.SolveChallenge(ctx, "reddit.com", ch.ID, pendingAnswer(t, f, ch.ID))
	assert.ErrorIs(t, err, errs.ErrChallengeExpired)
}

func TestGuard_TrackRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mode := models.ModeAlways
	target := "https://todoist.com"
	_, err := f.config.UpdateSite(ctx, "default-reddit", SiteUpdate{AutoRedirectMode: &mode, RedirectURL: &target})
	require.NoError(t, err)

	assert.False(t, f.guard.TrackRedirect(ctx, "https://twitter.com/", "https://notion.so"))
	assert.False(t, f.guard.TrackRedirect(ctx, "https://reddit.com/r/golang", "https://notion.so"))
	assert.True(t, f.guard.TrackRedirect(ctx, "https://reddit.com/r/golang", target))

	assert.Equal(t, 1, f.sites(t)[2].AutoRedirectCount)
	assert.Equal(t, 1, f.usage(t).TotalAutoRedirects)
	assert.Equal(t, 1, f.metrics.AutoRedirects)
}

func TestGuard_QuickBlockAndUndo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.guard.QuickBlock(ctx, "https://www.Example.com/some/page")
	require.NoError(t, err)
	assert.Equal(t, "example.com", res.Site.Pattern)
	assert.Equal(t, int64(5000), res.UndoTTLMs)
	_, blocked := f.engine.Match("https://example.com")
	assert.True(t, blocked)

	_, err = f.guard.QuickBlock(ctx, "https://example.com/other")
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, f.guard.Undo(ctx, res.UndoToken))
	assert.Len(t, f.sites(t), 7)
	_, blocked = f.engine.Match("https://example.com")
	assert.False(t, blocked)

	assert.ErrorIs(t, f.guard.Undo(ctx, res.UndoToken), errs.ErrNotFound)
}

func TestGuard_QuickBlockRejectsSystemPages(t *testing.T) {
	f := newFixture(t)
	for _, u := range []string{"chrome://settings", "chrome-extension://abc/index.html", "about:blank"} {
		_, err := f.guard.QuickBlock(context.Background(), u)
		assert.ErrorIs(t, err, errs.ErrInvalidURL, u)
	}
}

func TestGuard_UndoAfterWindow(t *testing.T) {
	f := newFixture(t)
	res, err := f.guard.QuickBlock(context.Background(), "https://example.com")
	require.NoError(t, err)
	f.cache.Expire(undoKeyPrefix + res.UndoToken)

	assert.ErrorIs(t, f.guard.Undo(context.Background(), res.UndoToken), errs.ErrNotFound)
	assert.Len(t, f.sites(t), 8)
}

func TestGuard_DisableLockFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rules.UpdateBlockingRules(ctx))

	assert.ErrorIs(t, f.guard.EnableLock(ctx, "longenough", "different1"), errs.ErrPassphraseDiffer)
	assert.ErrorIs(t, f.guard.EnableLock(ctx, "short", "short"), errs.ErrWeakPassphrase)
	require.NoError(t, f.guard.EnableLock(ctx, "longenough", "longenough"))
	assert.True(t, f.config.GetSettings(ctx).RequirePassphraseToDisable)

	_, err := f.guard.SetEnabled(ctx, false, "wrong-one")
	assert.ErrorIs(t, err, errs.ErrPassphraseMismatch)
	assert.True(t, f.config.GetSettings(ctx).Enabled)

	require.NoError(t, f.guard.ChangeLock(ctx, "longenough", "evenlonger", "evenlonger"))
	_, err = f.guard.SetEnabled(ctx, false, "longenough")
	assert.ErrorIs(t, err, errs.ErrPassphraseMismatch)

	settings, err := f.guard.SetEnabled(ctx, false, "evenlonger")
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Equal(t, 0, f.engine.Count())

	require.NoError(t, f.guard.DisableLock(ctx, "evenlonger"))
	assert.False(t, f.config.GetSettings(ctx).RequirePassphraseToDisable)
	settings, err = f.guard.SetEnabled(ctx, true, "")
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Equal(t, 7, f.engine.Count())
}

func TestGuard_DisableRefusedDuringLockdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.nuclear.Activate(ctx, 1, nuclearPass)
	require.NoError(t, err)

	_, err = f.guard.SetEnabled(ctx, false, "")
	assert.ErrorIs(t, err, errs.ErrNuclearActive)
}

func TestGuard_ActivateNuclearRefusesRunningLockdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bypass.Add(ctx, "twitter.com", 15)
	require.NoError(t, err)
	require.NoError(t, f.rules.UpdateBlockingRules(ctx))
	_, blocked := f.engine.Match("https://twitter.com/home")
	require.False(t, blocked)

	status, err := f.guard.ActivateNuclear(ctx, 1, nuclearPass)
	require.NoError(t, err)
	assert.True(t, status.Active)
	rule, blocked := f.engine.Match("https://twitter.com/home")
	require.True(t, blocked)
	assert.Equal(t, "||twitter.com", rule.Condition.URLFilter)

	status, err = f.guard.ActivateNuclear(ctx, 24, nuclearPass)
	assert.ErrorIs(t, err, errs.ErrNuclearActive)
	assert.Equal(t, 1, status.DurationHours)
	assert.Equal(t, 1, f.nuclear.IsActive(ctx).DurationHours)

	status, err = f.guard.AbortNuclear(ctx, nuclearPass)
	require.NoError(t, err)
	assert.False(t, status.Active)
	_, blocked = f.engine.Match("https://twitter.com/home")
	assert.False(t, blocked)
}

func TestGuard_UpdateSettingsIgnoresGuardedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off, on := false, true
	s, err := f.guard.UpdateSettings(ctx, models.SettingsPatch{Enabled: &off, RequirePassphraseToDisable: &on, AutoRedirect: &on})
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.False(t, s.RequirePassphraseToDisable)
	assert.True(t, s.AutoRedirect)

	rule, ok := f.engine.Match("https://x.com")
	require.True(t, ok)
	assert.Equal(t, "https://notion.so", rule.Action.Redirect.URL)
}
