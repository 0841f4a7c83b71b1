package rules

import "antislack/internal/models"

// ResolveAutoRedirect reports whether navigations to site go straight to
// the productive URL instead of the block page.
func ResolveAutoRedirect(site models.BlockedSite, settings models.Settings) bool {
	switch site.AutoRedirectMode {
	case models.ModeAlways:
		return true
	case models.ModeNever:
		return false
	default:
		return settings.AutoRedirect
	}
}

// ResolveTargetURL picks the site's own redirect URL and falls back to the
// global default.
func ResolveTargetURL(site models.BlockedSite, settings models.Settings) string {
	if site.RedirectURL != "" {
		return site.RedirectURL
	}
	return settings.DefaultRedirectURL
}

// EffectiveMode describes the resolved behaviour for the options screen.
func EffectiveMode(site models.BlockedSite, settings models.Settings) string {
	switch site.AutoRedirectMode {
	case models.ModeAlways:
		return "Always redirect directly (no block page)"
	case models.ModeNever:
		return "Always show block page (allows bypass)"
	}
	if settings.AutoRedirect {
		return "Using global setting: Auto-redirect ON"
	}
	return "Using global setting: Auto-redirect OFF"
}
