package host

import (
	"sync"
	"time"
)

// AlarmSchedulerInterface creates one-shot named triggers. Creating a name
// that already exists replaces it.
type AlarmSchedulerInterface interface {
	Create(name string, when time.Time)
	Clear(name string) bool
	Get(name string) (time.Time, bool)
}

type alarm struct {
	when  time.Time
	timer *time.Timer
}

// TimerAlarms fires alarms with time.AfterFunc. Alarms do not survive a
// restart; owners re-create them at startup.
type TimerAlarms struct {
	mu     sync.Mutex
	alarms map[string]*alarm
	fire   func(name string)
}

// NewTimerAlarms calls fire on its own goroutine when an alarm is due.
func NewTimerAlarms(fire func(name string)) *TimerAlarms {
	return &TimerAlarms{
		alarms: make(map[string]*alarm),
		fire:   fire,
	}
}

func (t *TimerAlarms) Create(name string, when time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.alarms[name]; ok {
		prev.timer.Stop()
	}
	a := &alarm{when: when}
	a.timer = time.AfterFunc(time.Until(when), func() {
		t.mu.Lock()
		current, ok := t.alarms[name]
		if !ok || current != a {
			t.mu.Unlock()
			return
		}
		delete(t.alarms, name)
		t.mu.Unlock()
		t.fire(name)
	})
	t.alarms[name] = a
}

func (t *TimerAlarms) Clear(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.alarms[name]
	if !ok {
		return false
	}
	a.timer.Stop()
	delete(t.alarms, name)
	return true
}

func (t *TimerAlarms) Get(name string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.alarms[name]
	if !ok {
		return time.Time{}, false
	}
	return a.when, true
}

// StopAll cancels every pending alarm.
func (t *TimerAlarms) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, a := range t.alarms {
		a.timer.Stop()
		delete(t.alarms, name)
	}
}
