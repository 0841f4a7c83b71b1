//go:build wireinject
// +build wireinject

package di

import (
	"antislack/internal"
	"antislack/internal/backup"
	"antislack/internal/controllers"
	"antislack/internal/host"
	"antislack/internal/persistence"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"antislack/internal/services"
	"antislack/internal/storage"
	"antislack/internal/structures"

	wire "github.com/google/wire"
)

var storageSet = wire.NewSet(
	providers.NewConfigProvider,
	providers.NewLogProvider,
	providers.NewMetricsProvider,

	persistence.NewZstdCompressor,
	persistence.NewFileManager,
	wire.Bind(new(storage.FileStoreInterface), new(*persistence.FileManager)),
	internal.NewEventBus,
	internal.NewStorage,
	internal.NewStatsArchive,
	wire.Bind(new(services.StatsArchiveInterface), new(*persistence.StatsArchive)),
)

var serviceSet = wire.NewSet(
	internal.NewAlarms,
	wire.Bind(new(host.AlarmSchedulerInterface), new(*host.TimerAlarms)),
	internal.NewRuleEngine,
	wire.Bind(new(host.RuleEngineInterface), new(*host.MemoryRuleEngine)),

	services.NewConfigService,
	wire.Bind(new(services.ConfigServiceInterface), new(*services.ConfigService)),
	wire.Bind(new(rules.ConfigReaderInterface), new(*services.ConfigService)),
	services.NewBypassService,
	wire.Bind(new(services.BypassServiceInterface), new(*services.BypassService)),
	wire.Bind(new(rules.BypassReaderInterface), new(*services.BypassService)),
	services.NewStatsService,
	wire.Bind(new(services.StatsServiceInterface), new(*services.StatsService)),
	wire.Bind(new(services.CompletionRecorderInterface), new(*services.StatsService)),
	services.NewNuclearService,
	wire.Bind(new(services.NuclearServiceInterface), new(*services.NuclearService)),
	wire.Bind(new(rules.LockdownReaderInterface), new(*services.NuclearService)),
	internal.NewSynchronizer,
	wire.Bind(new(rules.SynchronizerInterface), new(*rules.Synchronizer)),
	backup.NewSink,
	services.NewBackupService,
	wire.Bind(new(services.BackupServiceInterface), new(*services.BackupService)),
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		storageSet,
		serviceSet,
		providers.NewInstrumentedCacheProvider,
		services.NewGuardService,
		wire.Bind(new(services.GuardServiceInterface), new(*services.GuardService)),
		wire.Bind(new(controllers.RuleMatcherInterface), new(*host.MemoryRuleEngine)),
		wire.Bind(new(controllers.RuleCounterInterface), new(*host.MemoryRuleEngine)),

		controllers.NewApiController,
		controllers.NewLockController,
		controllers.NewStatsController,
		controllers.NewBackupController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewScheduler,
		internal.NewHandlers,
		internal.NewApp,
	)

	return nil, nil, nil
}

// InitBackup builds the export/import path without the HTTP server.
func InitBackup(cfg *structures.CliFlags) (services.BackupServiceInterface, func(), error) {

	wire.Build(
		storageSet,
		serviceSet,
	)

	return nil, nil, nil
}
