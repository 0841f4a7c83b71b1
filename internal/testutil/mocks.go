package testutil

import (
	"antislack/internal/providers"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any formatted message contains substr.
func (m *MockLogger) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Logs {
		if strings.Contains(fmt.Sprintf(l.Format, l.Args...), substr) {
			return true
		}
	}
	return false
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	// PlainInput makes IsFrame report false, as for a legacy JSON file.
	PlainInput bool
	Closed     bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) IsFrame([]byte) bool {
	return !m.PlainInput
}

func (m *MockCompressor) Close() {
	m.Closed = true
}

// MockPartition implements storage.PartitionInterface over a map with
// injectable read and write failures.
type MockPartition struct {
	mu        sync.Mutex
	PartName  string
	Data      map[string][]byte
	GetErr    error
	SetErr    error
	SetCalls  int
	OnChanged func(keys []string)
}

func NewMockPartition(name string) *MockPartition {
	return &MockPartition{PartName: name, Data: map[string][]byte{}}
}

func (m *MockPartition) Name() string {
	return m.PartName
}

func (m *MockPartition) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

func (m *MockPartition) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.SetCalls++
	if m.SetErr != nil {
		m.mu.Unlock()
		return m.SetErr
	}
	if m.Data == nil {
		m.Data = map[string][]byte{}
	}
	m.Data[key] = append([]byte(nil), value...)
	cb := m.OnChanged
	m.mu.Unlock()
	if cb != nil {
		cb([]string{key})
	}
	return nil
}

func (m *MockPartition) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	if m.SetErr != nil {
		m.mu.Unlock()
		return m.SetErr
	}
	delete(m.Data, key)
	cb := m.OnChanged
	m.mu.Unlock()
	if cb != nil {
		cb([]string{key})
	}
	return nil
}

// MockCache implements providers.CacheProviderInterface without expiry;
// tests call Expire to simulate a TTL running out.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
	TTLs map[string]time.Duration
}

func NewMockCache() *MockCache {
	return &MockCache{Data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Data[key]
	return v, ok
}

func (m *MockCache) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
	m.TTLs[key] = ttl
}

func (m *MockCache) SetIfAbsent(key string, value []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Data[key]; ok {
		return false
	}
	m.Data[key] = value
	m.TTLs[key] = ttl
	return true
}

func (m *MockCache) Del(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Data[key]
	delete(m.Data, key)
	delete(m.TTLs, key)
	return ok
}

func (m *MockCache) Expire(key string) {
	m.Del(key)
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu                 sync.Mutex
	Blocks             int
	AutoRedirects      int
	BypassAttempts     map[string]int
	NuclearCompletions int
	RuleSyncs          map[string]int
	InstalledRules     int
	NuclearActive      bool
	CacheLookups       map[string]int
	Requests           int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{BypassAttempts: map[string]int{}, RuleSyncs: map[string]int{}, CacheLookups: map[string]int{}}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

// ObserveCacheLookup counts under "<kind>/hit" or "<kind>/miss".
func (m *MockMetrics) ObserveCacheLookup(kind string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups[kind+"/"+result]++
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {}
func (m *MockMetrics) IncBlocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Blocks++
}
func (m *MockMetrics) IncAutoRedirects() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AutoRedirects++
}
func (m *MockMetrics) IncBypassAttempts(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BypassAttempts[outcome]++
}
func (m *MockMetrics) IncNuclearCompletions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NuclearCompletions++
}
func (m *MockMetrics) IncRuleSyncs(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RuleSyncs[result]++
}
func (m *MockMetrics) SetInstalledRules(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InstalledRules = count
}
func (m *MockMetrics) SetNuclearActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NuclearActive = active
}
func (m *MockMetrics) Handler() http.Handler { return http.NotFoundHandler() }

// MockAlarms records named alarms without firing them; tests call Fire.
type MockAlarms struct {
	mu      sync.Mutex
	Alarms  map[string]time.Time
	Cleared []string
}

func NewMockAlarms() *MockAlarms {
	return &MockAlarms{Alarms: map[string]time.Time{}}
}

func (m *MockAlarms) Create(name string, when time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alarms[name] = when
}

func (m *MockAlarms) Clear(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = append(m.Cleared, name)
	_, ok := m.Alarms[name]
	delete(m.Alarms, name)
	return ok
}

func (m *MockAlarms) Get(name string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	when, ok := m.Alarms[name]
	return when, ok
}

// Has reports whether name is pending.
func (m *MockAlarms) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}
