package storage

import (
	"antislack/internal/providers"
	"context"
	"maps"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// FileStoreInterface is satisfied by persistence.FileManager.
type FileStoreInterface interface {
	SaveToFile(fileName string, v any) error
	LoadFromFile(fileName string, v any) (bool, error)
}

// FilePartition holds all documents of one partition in a single compressed
// file that is rewritten on every mutation.
type FilePartition struct {
	mu       sync.RWMutex
	name     string
	path     string
	data     map[string]json.RawMessage
	store    FileStoreInterface
	metrics  providers.MetricsProviderInterface
	onChange ChangeFunc
}

// NewFilePartition loads path if it exists.
func NewFilePartition(name, path string, store FileStoreInterface, metrics providers.MetricsProviderInterface) (*FilePartition, error) {
	data := make(map[string]json.RawMessage)
	if _, err := store.LoadFromFile(path, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]json.RawMessage)
	}
	return &FilePartition{
		name:    name,
		path:    path,
		data:    data,
		store:   store,
		metrics: metrics,
	}, nil
}

func (f *FilePartition) Name() string {
	return f.name
}

func (f *FilePartition) OnChange(fn ChangeFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

func (f *FilePartition) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FilePartition) Set(ctx context.Context, key string, value []byte) error {
	return f.mutate(ctx, key, func(next map[string]json.RawMessage) bool {
		next[key] = append(json.RawMessage(nil), value...)
		return true
	})
}

func (f *FilePartition) Remove(ctx context.Context, key string) error {
	return f.mutate(ctx, key, func(next map[string]json.RawMessage) bool {
		if _, ok := next[key]; !ok {
			return false
		}
		delete(next, key)
		return true
	})
}

// mutate applies fn to a copy and swaps it in only after the file write succeeded.
func (f *FilePartition) mutate(ctx context.Context, key string, fn func(map[string]json.RawMessage) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	next := maps.Clone(f.data)
	if !fn(next) {
		f.mu.Unlock()
		return nil
	}
	start := time.Now()
	if err := f.store.SaveToFile(f.path, next); err != nil {
		f.mu.Unlock()
		return err
	}
	f.metrics.ObservePersistenceDuration(time.Since(start))
	f.data = next
	cb := f.onChange
	f.mu.Unlock()

	if cb != nil {
		cb(f.name, []string{key})
	}
	return nil
}
