package host

import (
	"antislack/internal/providers"
	"context"
	"sync"
)

type EventType string

const (
	EventInstalled      EventType = "installed"
	EventUpdated        EventType = "updated"
	EventStartup        EventType = "startup"
	EventAlarm          EventType = "alarm"
	EventStorageChanged EventType = "storageChanged"
)

type Event struct {
	Type      EventType
	AlarmName string
	Partition string
	Keys      []string
}

type Handler func(ctx context.Context, ev Event)

// Bus delivers events to subscribed handlers from a single dispatch
// goroutine, so handlers never run concurrently with each other.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	queue    chan Event
	logger   providers.Logger
}

func NewBus(buffer int, logger providers.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		queue:    make(chan Event, buffer),
		logger:   logger,
	}
}

func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish queues ev without blocking. When the queue is full the event is
// dropped and logged; every handler is idempotent and the maintenance loop
// reconciles state on its next tick.
func (b *Bus) Publish(ev Event) {
	select {
	case b.queue <- ev:
	default:
		b.logger.Warnf(providers.TypeApp, "Event queue full, dropping %s event", ev.Type)
	}
}

// Dispatch runs the handlers for ev on the calling goroutine.
func (b *Bus) Dispatch(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Type]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// Run dispatches queued events until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			b.Dispatch(ctx, ev)
		}
	}
}
