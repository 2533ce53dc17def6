package runtime

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/contract"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// UUIDGenerator is the default contract.IDGenerator.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Record is what the registry knows about one live connection.
// An empty DisplayName means the client never joined.
type Record struct {
	ID          string
	Channel     contract.Channel
	DisplayName string
}

// Registry maps connection ids to their channel and session data.
// Each hub owns its own registry.
type Registry struct {
	mu      sync.RWMutex
	log     *slog.Logger
	ids     contract.IDGenerator
	records map[string]*Record
	order   []string
}

func NewRegistry(log *slog.Logger, ids contract.IDGenerator) *Registry {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	return &Registry{
		log:     log,
		ids:     ids,
		records: make(map[string]*Record),
	}
}

// Register stores a new connection and returns its fresh id.
func (r *Registry) Register(ch contract.Channel) string {
	id := r.ids.NewID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &Record{ID: id, Channel: ch}
	r.order = append(r.order, id)
	return id
}

// Attach sets the display name of a connection.
// It reports false when the connection is gone.
func (r *Registry) Attach(id, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return false
	}
	record.DisplayName = name
	return true
}

// Detach clears the display name and returns the previous one.
func (r *Registry) Detach(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return ""
	}
	previous := record.DisplayName
	record.DisplayName = ""
	return previous
}

// Holds reports whether a connection other than excludeID carries name.
func (r *Registry) Holds(name, excludeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, record := range r.records {
		if id != excludeID && record.DisplayName == name {
			return true
		}
	}
	return false
}

// Unregister removes a connection and returns the last state it had.
func (r *Registry) Unregister(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	delete(r.records, id)
	r.order = lo.Without(r.order, id)
	return *record, true
}

func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// IDs returns connection ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Broadcast encodes the envelope once and pushes it to every writable
// connection but excludeID. It returns how many channels accepted it.
// Delivery is best effort: a failing channel never stops the others.
func (r *Registry) Broadcast(ctx context.Context, event string, payload any, excludeID string) (int, error) {
	message, err := codec.Encode(event, payload)
	if err != nil {
		return 0, err
	}
	// Channels are collected under the lock and written outside of it
	// so a slow client cannot hold the registry.
	r.mu.RLock()
	targets := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		if id == excludeID {
			continue
		}
		targets = append(targets, r.records[id])
	}
	r.mu.RUnlock()

	sent := 0
	for _, record := range targets {
		if r.deliver(ctx, record.ID, record.Channel, event, message) {
			sent++
		}
	}
	return sent, nil
}

// SendTo pushes an envelope to one connection. A vanished connection is a no-op.
func (r *Registry) SendTo(ctx context.Context, id, event string, payload any) error {
	r.mu.RLock()
	record, ok := r.records[id]
	var ch contract.Channel
	if ok {
		ch = record.Channel
	}
	r.mu.RUnlock()
	if !ok {
		r.log.Debug("Connection gone, message dropped", "conn_id", id, "event", event)
		return nil
	}
	message, err := codec.Encode(event, payload)
	if err != nil {
		return err
	}
	r.deliver(ctx, id, ch, event, message)
	return nil
}

func (r *Registry) deliver(ctx context.Context, id string, ch contract.Channel, event string, message []byte) bool {
	if ch == nil || !ch.Writable() {
		return false
	}
	if err := ch.Send(ctx, message); err != nil {
		r.log.Debug("Unable to send message", "conn_id", id, "event", event, "error", err)
		return false
	}
	return true
}
