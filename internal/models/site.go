package models

import (
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

type BlockedSite struct {
	ID                string           `json:"id"`
	Pattern           string           `json:"pattern"`
	RedirectURL       string           `json:"redirectUrl,omitempty"`
	AutoRedirectMode  AutoRedirectMode `json:"autoRedirectMode,omitempty"`
	CreatedAt         int64            `json:"createdAt"`
	BlockCount        int              `json:"blockCount"`
	AutoRedirectCount int              `json:"autoRedirectCount"`
}

var defaultSiteNames = []string{"twitter", "x", "reddit", "facebook", "instagram", "tiktok", "youtube"}

// DefaultBlockedSites is the list installed on first run.
func DefaultBlockedSites(nowMs int64) []BlockedSite {
	sites := make([]BlockedSite, 0, len(defaultSiteNames))
	for _, name := range defaultSiteNames {
		sites = append(sites, BlockedSite{
			ID:        "default-" + name,
			Pattern:   name + ".com",
			CreatedAt: nowMs,
		})
	}
	return sites
}

func NewBlockedSite(pattern string, nowMs int64) BlockedSite {
	return BlockedSite{
		ID:        uuid.NewString(),
		Pattern:   CleanPattern(pattern),
		CreatedAt: nowMs,
	}
}

// NormalizeBlockedSites keeps entries with a string pattern and fills every
// other field with its default. Empty patterns are dropped and a pattern
// that cleans to one already seen keeps its first entry. Missing or
// repeated ids are replaced.
func NormalizeBlockedSites(raw []any, nowMs int64) []BlockedSite {
	sites := make([]BlockedSite, 0, len(raw))
	patterns := make(map[string]struct{}, len(raw))
	ids := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pattern, ok := entry["pattern"].(string)
		if !ok || CleanPattern(pattern) == "" {
			continue
		}
		site := BlockedSite{
			Pattern:   CleanPattern(pattern),
			CreatedAt: nowMs,
		}
		if _, dup := patterns[site.Pattern]; dup {
			continue
		}
		patterns[site.Pattern] = struct{}{}
		if id, ok := entry["id"].(string); ok && id != "" {
			site.ID = id
		}
		if _, dup := ids[site.ID]; dup || site.ID == "" {
			site.ID = uuid.NewString()
		}
		ids[site.ID] = struct{}{}
		if v, ok := entry["redirectUrl"].(string); ok {
			site.RedirectURL = v
		}
		if v, ok := entry["autoRedirectMode"].(string); ok && AutoRedirectMode(v).Valid() {
			site.AutoRedirectMode = AutoRedirectMode(v)
		}
		if v, ok := entry["createdAt"]; ok && isNumber(v) {
			site.CreatedAt = cast.ToInt64(v)
		}
		if v, ok := entry["blockCount"]; ok && isNumber(v) {
			site.BlockCount = max(cast.ToInt(v), 0)
		}
		if v, ok := entry["autoRedirectCount"]; ok && isNumber(v) {
			site.AutoRedirectCount = max(cast.ToInt(v), 0)
		}
		sites = append(sites, site)
	}
	return sites
}

// FindSiteForDomain returns the index of the first site whose pattern covers
// domain, or -1.
func FindSiteForDomain(sites []BlockedSite, domain string) int {
	for i, site := range sites {
		if DomainCovers(PatternBase(site.Pattern), domain) {
			return i
		}
	}
	return -1
}
