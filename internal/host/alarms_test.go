package host

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type firedRecorder struct {
	mu    sync.Mutex
	names []string
	ch    chan string
}

func newFiredRecorder() *firedRecorder {
	return &firedRecorder{ch: make(chan string, 10)}
}

func (r *firedRecorder) fire(name string) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	r.ch <- name
}

func TestTimerAlarms_Fires(t *testing.T) {
	rec := newFiredRecorder()
	a := NewTimerAlarms(rec.fire)

	a.Create("bypass-expire-x.com", time.Now().Add(20*time.Millisecond))
	_, ok := a.Get("bypass-expire-x.com")
	assert.True(t, ok)

	select {
	case name := <-rec.ch:
		assert.Equal(t, "bypass-expire-x.com", name)
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
	}
	_, ok = a.Get("bypass-expire-x.com")
	assert.False(t, ok)
}

func TestTimerAlarms_ClearPreventsFire(t *testing.T) {
	rec := newFiredRecorder()
	a := NewTimerAlarms(rec.fire)

	a.Create("nuclear-mode-expiration", time.Now().Add(30*time.Millisecond))
	assert.True(t, a.Clear("nuclear-mode-expiration"))
	assert.False(t, a.Clear("nuclear-mode-expiration"))

	time.Sleep(80 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.names)
}

func TestTimerAlarms_CreateReplaces(t *testing.T) {
	rec := newFiredRecorder()
	a := NewTimerAlarms(rec.fire)

	a.Create("a", time.Now().Add(20*time.Millisecond))
	later := time.Now().Add(time.Hour)
	a.Create("a", later)

	time.Sleep(80 * time.Millisecond)
	when, ok := a.Get("a")
	require.True(t, ok)
	assert.True(t, when.Equal(later))
	a.StopAll()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.names)
}

func TestTimerAlarms_PastTimeFiresImmediately(t *testing.T) {
	rec := newFiredRecorder()
	a := NewTimerAlarms(rec.fire)
	a.Create("late", time.Now().Add(-time.Minute))

	select {
	case name := <-rec.ch:
		assert.Equal(t, "late", name)
	case <-time.After(2 * time.Second):
		t.Fatal("alarm did not fire")
	}
}
