package services

import (
	"antislack/internal/errs"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/storage"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// SiteUpdate edits the per-site redirect. An empty RedirectURL clears the
// override.
type SiteUpdate struct {
	RedirectURL      *string                  `json:"redirectUrl,omitempty"`
	AutoRedirectMode *models.AutoRedirectMode `json:"autoRedirectMode,omitempty"`
}

type ConfigServiceInterface interface {
	Initialize(ctx context.Context) error
	GetSettings(ctx context.Context) models.Settings
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
	UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
	GetSites(ctx context.Context) []models.BlockedSite
	LoadSites(ctx context.Context) ([]models.BlockedSite, error)
	SaveSites(ctx context.Context, sites []models.BlockedSite) error
	AddSite(ctx context.Context, pattern string) (models.BlockedSite, error)
	UpdateSite(ctx context.Context, id string, update SiteUpdate) (models.BlockedSite, error)
	RemoveSite(ctx context.Context, id string) error
	IncrementBlockCount(ctx context.Context, domain string) error
	IncrementAutoRedirectCount(ctx context.Context, siteID string) error
	GetPassphraseHash(ctx context.Context) (string, error)
	SetPassphraseHash(ctx context.Context, hash string) error
	ClearPassphraseHash(ctx context.Context) error
}

type ConfigService struct {
	mu     sync.Mutex
	sync   storage.PartitionInterface
	local  storage.PartitionInterface
	logger providers.Logger
	now    func() time.Time
}

func NewConfigService(parts *storage.Partitions, logger providers.Logger) *ConfigService {
	return &ConfigService{
		sync:   parts.Sync,
		local:  parts.Local,
		logger: logger,
		now:    time.Now,
	}
}

// ValidateRedirectURL accepts absolute http and https URLs only.
func ValidateRedirectURL(raw string) error {
	if !models.IsHTTPURL(raw) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidURL, raw)
	}
	return nil
}

func validateSettings(s models.Settings) error {
	if s.BypassDurationMinutes <= 0 {
		return fmt.Errorf("%w: bypass duration must be positive", errs.ErrInvalidDuration)
	}
	if !s.MathDifficulty.Valid() {
		return fmt.Errorf("%w: unknown math difficulty %q", errs.ErrInvalidSetting, s.MathDifficulty)
	}
	return ValidateRedirectURL(s.DefaultRedirectURL)
}

// Initialize writes the default settings and site list when they are absent.
func (c *ConfigService) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw map[string]any
	ok, err := storage.GetJSON(ctx, c.sync, storage.KeySettings, &raw)
	if err != nil {
		return err
	}
	if !ok {
		if err := storage.SetJSON(ctx, c.sync, storage.KeySettings, models.DefaultSettings()); err != nil {
			return err
		}
		c.logger.Infof(providers.TypeApp, "Default settings installed")
	}

	var sites []any
	ok, err = storage.GetJSON(ctx, c.sync, storage.KeyBlockedSites, &sites)
	if err != nil {
		return err
	}
	if !ok {
		if err := storage.SetJSON(ctx, c.sync, storage.KeyBlockedSites, models.DefaultBlockedSites(c.now().UnixMilli())); err != nil {
			return err
		}
		c.logger.Infof(providers.TypeApp, "Default blocked sites installed")
	}
	return nil
}

func (c *ConfigService) LoadSettings(ctx context.Context) (models.Settings, error) {
	var raw map[string]any
	if _, err := storage.GetJSON(ctx, c.sync, storage.KeySettings, &raw); err != nil {
		return models.DefaultSettings(), err
	}
	return models.MigrateSettings(raw), nil
}

// GetSettings never fails; storage errors are logged and yield defaults.
func (c *ConfigService) GetSettings(ctx context.Context) models.Settings {
	s, err := c.LoadSettings(ctx)
	if err != nil {
		c.logger.Errorf(providers.TypeStorage, "Get settings: %v", err)
	}
	return s
}

func (c *ConfigService) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := validateSettings(settings); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return storage.SetJSON(ctx, c.sync, storage.KeySettings, settings)
}

func (c *ConfigService) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.LoadSettings(ctx)
	if err != nil {
		return current, err
	}
	next := patch.Apply(current)
	if err := validateSettings(next); err != nil {
		return current, err
	}
	if err := storage.SetJSON(ctx, c.sync, storage.KeySettings, next); err != nil {
		return current, err
	}
	return next, nil
}

func (c *ConfigService) LoadSites(ctx context.Context) ([]models.BlockedSite, error) {
	var raw []any
	if _, err := storage.GetJSON(ctx, c.sync, storage.KeyBlockedSites, &raw); err != nil {
		return []models.BlockedSite{}, err
	}
	return models.NormalizeBlockedSites(raw, c.now().UnixMilli()), nil
}

// GetSites never fails; storage errors are logged and yield an empty list.
func (c *ConfigService) GetSites(ctx context.Context) []models.BlockedSite {
	sites, err := c.LoadSites(ctx)
	if err != nil {
		c.logger.Errorf(providers.TypeStorage, "Get blocked sites: %v", err)
	}
	return sites
}

func (c *ConfigService) SaveSites(ctx context.Context, sites []models.BlockedSite) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return storage.SetJSON(ctx, c.sync, storage.KeyBlockedSites, sites)
}

// mutateSites runs fn on the current list and persists the result when fn
// succeeds.
func (c *ConfigService) mutateSites(ctx context.Context, fn func([]models.BlockedSite) ([]models.BlockedSite, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sites, err := c.LoadSites(ctx)
	if err != nil {
		return err
	}
	next, err := fn(sites)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	return storage.SetJSON(ctx, c.sync, storage.KeyBlockedSites, next)
}

func (c *ConfigService) AddSite(ctx context.Context, pattern string) (models.BlockedSite, error) {
	normalized, ok := models.NormalizePattern(pattern)
	if !ok {
		return models.BlockedSite{}, fmt.Errorf("%w: %q", errs.ErrInvalidDomain, pattern)
	}

	var added models.BlockedSite
	err := c.mutateSites(ctx, func(sites []models.BlockedSite) ([]models.BlockedSite, error) {
		for _, site := range sites {
			if site.Pattern == normalized {
				return nil, fmt.Errorf("%w: %s", errs.ErrAlreadyExists, normalized)
			}
		}
		added = models.NewBlockedSite(normalized, c.now().UnixMilli())
		return append(sites, added), nil
	})
	if err != nil {
		return models.BlockedSite{}, err
	}
	c.logger.Infof(providers.TypeApp, "Blocked site added: %s", added.Pattern)
	return added, nil
}

func (c *ConfigService) UpdateSite(ctx context.Context, id string, update SiteUpdate) (models.BlockedSite, error) {
	if update.RedirectURL != nil && *update.RedirectURL != "" {
		if err := ValidateRedirectURL(*update.RedirectURL); err != nil {
			return models.BlockedSite{}, err
		}
	}
	if update.AutoRedirectMode != nil && !update.AutoRedirectMode.Valid() {
		return models.BlockedSite{}, fmt.Errorf("%w: unknown auto-redirect mode %q", errs.ErrInvalidSetting, *update.AutoRedirectMode)
	}

	var updated models.BlockedSite
	err := c.mutateSites(ctx, func(sites []models.BlockedSite) ([]models.BlockedSite, error) {
		i := slices.IndexFunc(sites, func(s models.BlockedSite) bool { return s.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: site %s", errs.ErrNotFound, id)
		}
		if update.RedirectURL != nil {
			sites[i].RedirectURL = *update.RedirectURL
		}
		if update.AutoRedirectMode != nil {
			sites[i].AutoRedirectMode = *update.AutoRedirectMode
		}
		updated = sites[i]
		return sites, nil
	})
	return updated, err
}

func (c *ConfigService) RemoveSite(ctx context.Context, id string) error {
	return c.mutateSites(ctx, func(sites []models.BlockedSite) ([]models.BlockedSite, error) {
		i := slices.IndexFunc(sites, func(s models.BlockedSite) bool { return s.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: site %s", errs.ErrNotFound, id)
		}
		return slices.Delete(sites, i, i+1), nil
	})
}

// IncrementBlockCount bumps the counter of the first site covering domain.
// Unknown domains are ignored.
func (c *ConfigService) IncrementBlockCount(ctx context.Context, domain string) error {
	return c.mutateSites(ctx, func(sites []models.BlockedSite) ([]models.BlockedSite, error) {
		i := models.FindSiteForDomain(sites, domain)
		if i < 0 {
			return nil, nil
		}
		sites[i].BlockCount++
		return sites, nil
	})
}

func (c *ConfigService) IncrementAutoRedirectCount(ctx context.Context, siteID string) error {
	return c.mutateSites(ctx, func(sites []models.BlockedSite) ([]models.BlockedSite, error) {
		i := slices.IndexFunc(sites, func(s models.BlockedSite) bool { return s.ID == siteID })
		if i < 0 {
			return nil, nil
		}
		sites[i].AutoRedirectCount++
		return sites, nil
	})
}

func (c *ConfigService) GetPassphraseHash(ctx context.Context) (string, error) {
	var hash string
	if _, err := storage.GetJSON(ctx, c.local, storage.KeyPassphraseHash, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *ConfigService) SetPassphraseHash(ctx context.Context, hash string) error {
	return storage.SetJSON(ctx, c.local, storage.KeyPassphraseHash, hash)
}

func (c *ConfigService) ClearPassphraseHash(ctx context.Context) error {
	return storage.RemoveKey(ctx, c.local, storage.KeyPassphraseHash)
}
