package storage

import (
	"antislack/internal/errs"
	"context"
	"fmt"

	json "github.com/goccy/go-json"
)

const (
	PartitionSync  = "sync"
	PartitionLocal = "local"
)

// Keys of the synced partition.
const (
	KeySettings     = "settings"
	KeyBlockedSites = "blockedSites"
)

// Keys of the local partition.
const (
	KeyBypassSessions = "bypassSessions"
	KeyNuclearMode    = "nuclearMode"
	KeyUsageStats     = "usageStats"
	KeyPassphraseHash = "passphraseHash"
)

// PartitionInterface is a key/value store holding JSON documents.
type PartitionInterface interface {
	Name() string
	// Get returns the raw document and whether key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ChangeFunc receives the partition name and the keys written.
type ChangeFunc func(partition string, keys []string)

// Partitions groups the two stores the daemon works with.
type Partitions struct {
	Sync  PartitionInterface
	Local PartitionInterface
}

// GetJSON decodes key into v and reports whether it existed. Any failure is
// wrapped in errs.ErrStorageRead.
func GetJSON(ctx context.Context, p PartitionInterface, key string, v any) (bool, error) {
	data, ok, err := p.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageRead, p.Name(), key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageRead, p.Name(), key, err)
	}
	return true, nil
}

// SetJSON encodes v under key. Any failure is wrapped in errs.ErrStorageWrite.
func SetJSON(ctx context.Context, p PartitionInterface, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageWrite, p.Name(), key, err)
	}
	if err := p.Set(ctx, key, data); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageWrite, p.Name(), key, err)
	}
	return nil
}

// RemoveKey deletes key, wrapping failures in errs.ErrStorageWrite.
func RemoveKey(ctx context.Context, p PartitionInterface, key string) error {
	if err := p.Remove(ctx, key); err != nil {
		return fmt.Errorf("%w: %s/%s: %w", errs.ErrStorageWrite, p.Name(), key, err)
	}
	return nil
}

// Observable is implemented by partitions that report their own writes.
type Observable interface {
	OnChange(fn ChangeFunc)
}

// Observe registers fn on every partition that supports it.
func (p *Partitions) Observe(fn ChangeFunc) {
	for _, part := range []PartitionInterface{p.Sync, p.Local} {
		if o, ok := part.(Observable); ok {
			o.OnChange(fn)
		}
	}
}
