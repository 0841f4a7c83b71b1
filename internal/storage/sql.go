package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one row of the key/value table.
type Entry struct {
	Scope      string `gorm:"primaryKey;size:32"`
	EntryKey   string `gorm:"primaryKey;size:64"`
	Payload    []byte
	ModifiedMs int64 `gorm:"column:modified_ms;index"`
}

func (Entry) TableName() string {
	return "antislack_entries"
}

// OpenDatabase initializes a GORM connection for driver and dsn.
func OpenDatabase(driver, dsn string, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite3", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	gormCfg := &gorm.Config{}
	if !debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate entries table: %w", err)
	}
	return db, nil
}

// SQLPartition stores documents as rows of a shared table. Several devices
// pointing at the same database see each other's writes, which is how the
// synced partition propagates.
type SQLPartition struct {
	name     string
	db       *gorm.DB
	now      func() time.Time
	onChange ChangeFunc
}

func NewSQLPartition(name string, db *gorm.DB) *SQLPartition {
	return &SQLPartition{name: name, db: db, now: time.Now}
}

func (s *SQLPartition) Name() string {
	return s.name
}

func (s *SQLPartition) OnChange(fn ChangeFunc) {
	s.onChange = fn
}

func (s *SQLPartition) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("scope = ? AND entry_key = ?", s.name, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Payload, true, nil
}

func (s *SQLPartition) Set(ctx context.Context, key string, value []byte) error {
	entry := Entry{
		Scope:      s.name,
		EntryKey:   key,
		Payload:    value,
		ModifiedMs: s.now().UnixMilli(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "modified_ms"}),
	}).Create(&entry).Error
	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

func (s *SQLPartition) Remove(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).
		Where("scope = ? AND entry_key = ?", s.name, key).
		Delete(&Entry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.notify(key)
	}
	return nil
}

// ChangedSince lists keys written after sinceMs by any writer sharing the table.
func (s *SQLPartition) ChangedSince(ctx context.Context, sinceMs int64) ([]string, int64, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Select("entry_key", "modified_ms").
		Where("scope = ? AND modified_ms > ?", s.name, sinceMs).
		Find(&entries).Error
	if err != nil {
		return nil, sinceMs, err
	}
	latest := sinceMs
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.EntryKey)
		latest = max(latest, e.ModifiedMs)
	}
	return keys, latest, nil
}

func (s *SQLPartition) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLPartition) notify(key string) {
	if s.onChange != nil {
		s.onChange(s.name, []string{key})
	}
}
