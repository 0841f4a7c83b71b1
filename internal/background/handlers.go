package background

import (
	"antislack/internal/host"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"antislack/internal/services"
	"antislack/internal/storage"
	"context"
	"slices"
	"strings"
)

// Handlers reacts to lifecycle, alarm and storage events. Every handler is
// idempotent, so a replayed or duplicated event is harmless.
type Handlers struct {
	config  services.ConfigServiceInterface
	bypass  services.BypassServiceInterface
	nuclear services.NuclearServiceInterface
	stats   services.StatsServiceInterface
	sync    rules.SynchronizerInterface
	logger  providers.Logger
}

func NewHandlers(
	config services.ConfigServiceInterface,
	bypass services.BypassServiceInterface,
	nuclear services.NuclearServiceInterface,
	stats services.StatsServiceInterface,
	synchronizer rules.SynchronizerInterface,
	logger providers.Logger,
) *Handlers {
	return &Handlers{
		config:  config,
		bypass:  bypass,
		nuclear: nuclear,
		stats:   stats,
		sync:    synchronizer,
		logger:  logger,
	}
}

// Register subscribes every handler on bus.
func (h *Handlers) Register(bus *host.Bus) {
	bus.Subscribe(host.EventInstalled, h.OnInstalled)
	bus.Subscribe(host.EventUpdated, h.OnUpdated)
	bus.Subscribe(host.EventStartup, h.OnStartup)
	bus.Subscribe(host.EventAlarm, h.OnAlarm)
	bus.Subscribe(host.EventStorageChanged, h.OnStorageChanged)
}

// OnInstalled seeds defaults on first run.
func (h *Handlers) OnInstalled(ctx context.Context, _ host.Event) {
	if err := h.config.Initialize(ctx); err != nil {
		h.logger.Errorf(providers.TypeApp, "Installation error: %s", err)
		return
	}
	h.logger.Infof(providers.TypeApp, "Storage initialized")
	h.OnUpdated(ctx, host.Event{Type: host.EventUpdated})
}

func (h *Handlers) OnUpdated(ctx context.Context, _ host.Event) {
	if err := h.stats.Migrate(ctx); err != nil {
		h.logger.Errorf(providers.TypeStats, "Stats migration failed: %s", err)
	}
	h.resync(ctx)
}

// OnStartup reconciles state that may have changed while the daemon was
// down and re-arms the alarms lost with the previous process.
func (h *Handlers) OnStartup(ctx context.Context, _ host.Event) {
	if removed, err := h.bypass.CleanExpired(ctx); err != nil {
		h.logger.Errorf(providers.TypeBypass, "Startup cleanup failed: %s", err)
	} else if removed > 0 {
		h.logger.Infof(providers.TypeBypass, "Removed %d bypass sessions expired while stopped", removed)
	}

	if err := h.stats.Migrate(ctx); err != nil {
		h.logger.Errorf(providers.TypeStats, "Stats migration failed: %s", err)
	}

	if err := h.nuclear.HandleExpiry(ctx); err != nil {
		h.logger.Warnf(providers.TypeNuclear, "Could not verify nuclear mode on startup: %s", err)
	}

	if n := h.bypass.RearmAlarms(ctx); n > 0 {
		h.logger.Infof(providers.TypeBypass, "Re-armed %d bypass alarms", n)
	}

	h.resync(ctx)
}

func (h *Handlers) OnAlarm(ctx context.Context, ev host.Event) {
	if ev.AlarmName == services.NuclearAlarmName {
		if err := h.nuclear.HandleExpiry(ctx); err != nil {
			h.logger.Errorf(providers.TypeNuclear, "Alarm handler error: %s", err)
		}
		h.resync(ctx)
		return
	}

	domain, ok := services.BypassDomainFromAlarm(ev.AlarmName)
	if !ok {
		h.logger.Debugf(providers.TypeApp, "Ignoring unknown alarm %s", ev.AlarmName)
		return
	}
	if err := h.bypass.Remove(ctx, domain); err != nil {
		h.logger.Errorf(providers.TypeBypass, "Alarm handler error: %s", err)
		return
	}
	h.logger.Infof(providers.TypeBypass, "Bypass expired for %s", domain)
	h.resync(ctx)
}

// OnStorageChanged resyncs the rules when an input of the rule set changed.
func (h *Handlers) OnStorageChanged(ctx context.Context, ev host.Event) {
	if !affectsRules(ev) {
		return
	}
	h.logger.Debugf(providers.TypeRules, "Storage changed in %s: %s", ev.Partition, strings.Join(ev.Keys, ","))
	h.resync(ctx)
}

func affectsRules(ev host.Event) bool {
	switch ev.Partition {
	case storage.PartitionSync:
		return slices.Contains(ev.Keys, storage.KeySettings) || slices.Contains(ev.Keys, storage.KeyBlockedSites)
	case storage.PartitionLocal:
		return slices.Contains(ev.Keys, storage.KeyBypassSessions) || slices.Contains(ev.Keys, storage.KeyNuclearMode)
	}
	return false
}

func (h *Handlers) resync(ctx context.Context) {
	if err := h.sync.UpdateBlockingRules(ctx); err != nil {
		h.logger.Errorf(providers.TypeRules, "Error while updating rules: %s", err)
	}
}
