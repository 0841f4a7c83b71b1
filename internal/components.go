package internal

import (
	"antislack/internal/background"
	"antislack/internal/host"
	"antislack/internal/maintenance"
	"antislack/internal/maintenance/interfaces"
	"antislack/internal/persistence"
	compressors "antislack/internal/persistence/interfaces"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"antislack/internal/services"
	"antislack/internal/storage"
	"antislack/internal/structures"
	"path/filepath"
)

const eventQueueSize = 256

func NewEventBus(logger providers.Logger) *host.Bus {
	return host.NewBus(eventQueueSize, logger)
}

// NewAlarms routes fired alarms onto bus.
func NewAlarms(bus *host.Bus) *host.TimerAlarms {
	return host.NewTimerAlarms(func(name string) {
		bus.Publish(host.Event{Type: host.EventAlarm, AlarmName: name})
	})
}

func NewRuleEngine(conf *structures.Config) *host.MemoryRuleEngine {
	return host.NewMemoryRuleEngine(conf.Rules.MaxRules)
}

// NewStorage opens both partitions and reports every write on bus.
func NewStorage(
	conf *structures.Config,
	store storage.FileStoreInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
	bus *host.Bus,
) (*storage.Partitions, func(), error) {
	parts, cleanup, err := storage.NewPartitions(conf, store, metrics, logger)
	if err != nil {
		return nil, nil, err
	}
	parts.Observe(func(partition string, keys []string) {
		bus.Publish(host.Event{Type: host.EventStorageChanged, Partition: partition, Keys: keys})
	})
	return parts, cleanup, nil
}

// NewStatsArchive places the cold file next to the local partition unless
// maintenance.archiveDir is set.
func NewStatsArchive(conf *structures.Config, compressor compressors.CompressorInterface, logger providers.Logger) *persistence.StatsArchive {
	dir := conf.Maintenance.ArchiveDir
	if dir == "" {
		dir = filepath.Dir(conf.Storage.LocalPath)
	}
	archive := persistence.NewStatsArchive(dir, compressor, logger)
	if err := archive.RestoreIndex(); err != nil {
		logger.Errorf(providers.TypeStats, "Restore archive index error: %s", err)
	}
	return archive
}

func NewSynchronizer(
	conf *structures.Config,
	config rules.ConfigReaderInterface,
	bypass rules.BypassReaderInterface,
	lockdown rules.LockdownReaderInterface,
	engine host.RuleEngineInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) *rules.Synchronizer {
	return rules.NewSynchronizer(config, bypass, lockdown, engine, conf.Rules.BlockPagePath, metrics, logger)
}

// NewScheduler polls the synced partition only when it lives in a database
// other devices can write to.
func NewScheduler(
	conf *structures.Config,
	logger providers.Logger,
	bypass services.BypassServiceInterface,
	nuclear services.NuclearServiceInterface,
	stats services.StatsServiceInterface,
	synchronizer rules.SynchronizerInterface,
	parts *storage.Partitions,
	bus *host.Bus,
) interfaces.SchedulerInterface {
	var poller maintenance.ChangePollerInterface
	if sqlPart, ok := parts.Sync.(*storage.SQLPartition); ok {
		poller = sqlPart
	}
	return maintenance.NewScheduler(conf, logger, bypass, nuclear, stats, synchronizer, poller, bus.Publish)
}

func NewHandlers(
	config services.ConfigServiceInterface,
	bypass services.BypassServiceInterface,
	nuclear services.NuclearServiceInterface,
	stats services.StatsServiceInterface,
	synchronizer rules.SynchronizerInterface,
	logger providers.Logger,
	bus *host.Bus,
) *background.Handlers {
	handlers := background.NewHandlers(config, bypass, nuclear, stats, synchronizer, logger)
	handlers.Register(bus)
	return handlers
}
