package maintenance

import (
	"antislack/internal/host"
	"antislack/internal/maintenance/interfaces"
	"antislack/internal/providers"
	"antislack/internal/rules"
	"antislack/internal/storage"
	"antislack/internal/structures"
	"context"
	"sync"

	"github.com/roylee0704/gron"
)

type BypassCleanerInterface interface {
	CleanExpired(ctx context.Context) (int, error)
}

type NuclearExpiryInterface interface {
	HandleExpiry(ctx context.Context) error
}

type StreakKeeperInterface interface {
	UpdateStreak(ctx context.Context) error
	FlushArchive() error
}

// ChangePollerInterface is implemented by partitions shared between devices.
type ChangePollerInterface interface {
	ChangedSince(ctx context.Context, sinceMs int64) ([]string, int64, error)
}

// Scheduler runs the periodic housekeeping jobs. Jobs never overlap.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	bypass  BypassCleanerInterface
	nuclear NuclearExpiryInterface
	stats   StreakKeeperInterface
	sync    rules.SynchronizerInterface
	poller  ChangePollerInterface
	publish func(host.Event)
	cron    *gron.Cron
	opsMu   sync.Mutex
	// lastPoll is the newest modification time seen by the poller.
	lastPoll int64
	primed   bool
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Maintenance.Interval), func() {
		s.RunOnce(context.Background())
	})

	s.cron.Start()
	s.logger.Infof(providers.TypeApp, "Maintenance scheduled every %s", s.config.Maintenance.Interval)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) RunOnce(ctx context.Context) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.cleanBypasses(ctx)

	if err := s.nuclear.HandleExpiry(ctx); err != nil {
		s.logger.Errorf(providers.TypeNuclear, "Error while checking nuclear expiry: %s", err)
	}
	if err := s.stats.UpdateStreak(ctx); err != nil {
		s.logger.Errorf(providers.TypeStats, "Error while updating streak: %s", err)
	}
	if err := s.stats.FlushArchive(); err != nil {
		s.logger.Errorf(providers.TypeStats, "Error while flushing stats archive: %s", err)
	}

	s.pollChanges(ctx)
}

func (s *Scheduler) cleanBypasses(ctx context.Context) {
	removed, err := s.bypass.CleanExpired(ctx)
	if err != nil {
		s.logger.Errorf(providers.TypeBypass, "Error while cleaning bypass sessions: %s", err)
		return
	}
	if removed == 0 {
		return
	}
	s.logger.Infof(providers.TypeBypass, "Removed %d expired bypass sessions", removed)
	if err := s.sync.UpdateBlockingRules(ctx); err != nil {
		s.logger.Errorf(providers.TypeRules, "Error while updating rules: %s", err)
	}
}

func (s *Scheduler) pollChanges(ctx context.Context) {
	if s.poller == nil {
		return
	}
	keys, latest, err := s.poller.ChangedSince(ctx, s.lastPoll)
	if err != nil {
		s.logger.Errorf(providers.TypeStorage, "Error while polling synced partition: %s", err)
		return
	}
	s.lastPoll = latest
	// The first poll only records the watermark.
	if !s.primed {
		s.primed = true
		return
	}
	if len(keys) == 0 {
		return
	}
	s.logger.Debugf(providers.TypeStorage, "Synced partition changed remotely: %v", keys)
	s.publish(host.Event{Type: host.EventStorageChanged, Partition: storage.PartitionSync, Keys: keys})
}

// Persist flushes buffered archive days. Called on shutdown.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting stats archive...")
	err := s.stats.FlushArchive()
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return nil
}

// NewScheduler builds the scheduler. poller may be nil when the synced
// partition is not shared.
func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	bypass BypassCleanerInterface,
	nuclear NuclearExpiryInterface,
	stats StreakKeeperInterface,
	synchronizer rules.SynchronizerInterface,
	poller ChangePollerInterface,
	publish func(host.Event),
) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		bypass:  bypass,
		nuclear: nuclear,
		stats:   stats,
		sync:    synchronizer,
		poller:  poller,
		publish: publish,
	}
}
