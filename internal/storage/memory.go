package storage

import (
	"context"
	"sync"
)

// MemoryPartition keeps documents in process memory.
type MemoryPartition struct {
	mu       sync.RWMutex
	name     string
	data     map[string][]byte
	onChange ChangeFunc
}

func NewMemoryPartition(name string) *MemoryPartition {
	return &MemoryPartition{name: name, data: make(map[string][]byte)}
}

func (m *MemoryPartition) Name() string {
	return m.name
}

func (m *MemoryPartition) OnChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

func (m *MemoryPartition) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryPartition) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(m.name, []string{key})
	}
	return nil
}

func (m *MemoryPartition) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	fn := m.onChange
	m.mu.Unlock()
	if existed && fn != nil {
		fn(m.name, []string{key})
	}
	return nil
}
