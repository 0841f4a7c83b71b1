package storage

import (
	"antislack/internal/providers"
	"antislack/internal/structures"
	"fmt"
)

// NewPartitions opens the local file partition and the synced partition
// selected by storage.syncDriver. The returned func releases the database.
func NewPartitions(conf *structures.Config, store FileStoreInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) (*Partitions, func(), error) {
	local, err := NewFilePartition(PartitionLocal, conf.Storage.LocalPath, store, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("open local partition: %w", err)
	}

	if conf.Storage.SyncDriver == "memory" {
		logger.Warnf(providers.TypeStorage, "Synced partition kept in memory, settings will not survive a restart")
		return &Partitions{Sync: NewMemoryPartition(PartitionSync), Local: local}, func() {}, nil
	}

	db, err := OpenDatabase(conf.Storage.SyncDriver, conf.Storage.SyncDsn, conf.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("open synced partition: %w", err)
	}
	sync := NewSQLPartition(PartitionSync, db)
	logger.Infof(providers.TypeStorage, "Synced partition on %s", conf.Storage.SyncDriver)

	cleanup := func() {
		if err := sync.Close(); err != nil {
			logger.Errorf(providers.TypeStorage, "Failed to close database: %s", err)
		}
	}
	return &Partitions{Sync: sync, Local: local}, cleanup, nil
}
