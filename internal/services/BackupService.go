package services

import (
	"antislack/internal/backup"
	"antislack/internal/errs"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type ImportResult struct {
	Sites    int  `json:"sites"`
	Settings bool `json:"settings"`
	Stats    bool `json:"stats"`
}

type BackupServiceInterface interface {
	Export(ctx context.Context, full bool) models.ExportData
	Import(ctx context.Context, data []byte, full bool) (ImportResult, error)
	Upload(ctx context.Context) (string, error)
	Restore(ctx context.Context, name string) (ImportResult, error)
}

type BackupService struct {
	config ConfigServiceInterface
	stats  StatsServiceInterface
	rules  rules.SynchronizerInterface
	sink   backup.SinkInterface
	logger providers.Logger
	now    func() time.Time
}

func NewBackupService(
	config ConfigServiceInterface,
	stats StatsServiceInterface,
	sync rules.SynchronizerInterface,
	sink backup.SinkInterface,
	logger providers.Logger,
) *BackupService {
	return &BackupService{
		config: config,
		stats:  stats,
		rules:  sync,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Export snapshots the block list, plus settings and stats when full is set.
// Nuclear mode is never exported.
func (b *BackupService) Export(ctx context.Context, full bool) models.ExportData {
	data := models.ExportData{
		Version:      models.ExportVersion,
		ExportedAt:   b.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		BlockedSites: b.config.GetSites(ctx),
	}
	if full {
		settings := b.config.GetSettings(ctx)
		stats := b.stats.GetStats(ctx)
		data.Settings = &settings
		data.Stats = &stats
	}
	return data
}

type importPlan struct {
	sites    []models.BlockedSite
	settings *models.Settings
	stats    *models.UsageStats
}

func invalidImport(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrImportValidation, fmt.Sprintf(format, args...))
}

// parseImport validates the whole payload and builds everything that will
// be written, so a rejected import leaves storage untouched.
func (b *BackupService) parseImport(data []byte, full bool) (importPlan, error) {
	var plan importPlan
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return plan, invalidImport("invalid JSON format")
	}

	version, ok := raw["version"].(float64)
	if !ok || version != float64(models.ExportVersion) {
		return plan, invalidImport("unsupported export version")
	}
	list, ok := raw["blockedSites"].([]any)
	if !ok {
		return plan, invalidImport("blockedSites must be a list")
	}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return plan, invalidImport("site %d is not an object", i)
		}
		if pattern, ok := entry["pattern"].(string); !ok || models.CleanPattern(pattern) == "" {
			return plan, invalidImport("site %d has no pattern", i)
		}
	}
	plan.sites = models.NormalizeBlockedSites(list, b.now().UnixMilli())
	if !full && len(plan.sites) == 0 {
		return plan, invalidImport("no valid sites found in import data")
	}
	if !full {
		return plan, nil
	}

	if v, present := raw["settings"]; present && v != nil {
		obj, ok := v.(map[string]any)
		if !ok {
			return plan, invalidImport("settings must be an object")
		}
		if d, present := obj["mathDifficulty"]; present {
			if s, ok := d.(string); !ok || !models.MathDifficulty(s).Valid() {
				return plan, invalidImport("invalid math difficulty")
			}
		}
		settings := models.MigrateSettings(obj)
		if err := validateSettings(settings); err != nil {
			return plan, fmt.Errorf("%w: %w", errs.ErrImportValidation, err)
		}
		plan.settings = &settings
	}

	if v, present := raw["stats"]; present && v != nil {
		if _, ok := v.(map[string]any); !ok {
			return plan, invalidImport("stats must be an object")
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return plan, invalidImport("stats: %v", err)
		}
		stats, err := models.DecodeUsageStats(encoded)
		if err != nil {
			return plan, invalidImport("stats: %v", err)
		}
		plan.stats = &stats
	}
	return plan, nil
}

// Import replaces the block list and, when full is set, settings and stats.
func (b *BackupService) Import(ctx context.Context, data []byte, full bool) (ImportResult, error) {
	plan, err := b.parseImport(data, full)
	if err != nil {
		b.logger.Warnf(providers.TypeApp, "Import rejected: %v", err)
		return ImportResult{}, err
	}

	var res ImportResult
	if len(plan.sites) > 0 {
		if err := b.config.SaveSites(ctx, plan.sites); err != nil {
			return res, err
		}
		res.Sites = len(plan.sites)
	}
	if plan.settings != nil {
		if err := b.config.SaveSettings(ctx, *plan.settings); err != nil {
			return res, err
		}
		res.Settings = true
	}
	if plan.stats != nil {
		if err := b.stats.SaveStats(ctx, *plan.stats); err != nil {
			return res, err
		}
		res.Stats = true
	}

	if err := b.rules.UpdateBlockingRules(ctx); err != nil {
		b.logger.Errorf(providers.TypeRules, "Resync after import: %v", err)
	}
	b.logger.Infof(providers.TypeApp, "Imported %d sites (settings=%t stats=%t)", res.Sites, res.Settings, res.Stats)
	return res, nil
}

// Upload writes a full export to the configured sink.
func (b *BackupService) Upload(ctx context.Context) (string, error) {
	data, err := json.MarshalIndent(b.Export(ctx, true), "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("antislack-backup-%s.json", b.now().UTC().Format("20060102-150405"))
	location, err := b.sink.Put(ctx, name, data)
	if err != nil {
		return "", err
	}
	b.logger.Infof(providers.TypeApp, "Backup stored at %s", location)
	return location, nil
}

// Restore runs a full import of a backup previously stored in the sink.
func (b *BackupService) Restore(ctx context.Context, name string) (ImportResult, error) {
	data, err := b.sink.Get(ctx, name)
	if err != nil {
		return ImportResult{}, err
	}
	return b.Import(ctx, data, true)
}
