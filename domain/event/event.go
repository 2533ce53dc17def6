package event

import (
	"sync"
	"time"
)

type Type string

// Event is a technical event flowing on the telemetry channel.
// Payload is one of the structs declared in technical_event.go.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}
}

// Emit pushes an event without ever blocking the caller.
// A full or nil channel drops the event, telemetry is sampled anyway.
func Emit(ch chan<- Event, e Event) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- e:
		return true
	default:
		return false
	}
}

// Counter counts occurrences per event type.
type Counter struct {
	mu     sync.RWMutex
	counts map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[t]
}
