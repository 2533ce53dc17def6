package runtime

import (
	"context"
	"dispatch-lab/contract"
	"dispatch-lab/domain/event"
	"dispatch-lab/errors"
	"dispatch-lab/observability"
	"log/slog"
	"time"
)

// Service is one instantiation of the dispatch core, e.g. dashboard or chat.
type Service interface {
	Name() string
	Routes() []Route
	// OnConnect runs on the loop right after the connection is registered.
	OnConnect(ctx context.Context, connID string)
	// OnDisconnect runs on the loop once the record is gone from the registry.
	OnDisconnect(ctx context.Context, record Record)
}

// Hub binds a service to its registry and router and funnels every
// transport callback through the shared loop.
type Hub struct {
	log        *slog.Logger
	name       string
	loop       *Loop
	registry   *Registry
	router     *Router
	service    Service
	monitoring *observability.MonitoringManager
	telemetry  chan<- event.Event
}

func NewHub(log *slog.Logger, loop *Loop, registry *Registry, service Service,
	monitoring *observability.MonitoringManager, telemetry chan<- event.Event) (*Hub, error) {
	router, err := NewRouter(log, service.Name(), registry, service.Routes())
	if err != nil {
		return nil, err
	}
	return &Hub{
		log:        log.With("hub", service.Name()),
		name:       service.Name(),
		loop:       loop,
		registry:   registry,
		router:     router,
		service:    service,
		monitoring: monitoring,
		telemetry:  telemetry,
	}, nil
}

func (h *Hub) Name() string {
	return h.name
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers ch and returns its id once the service greeted it.
func (h *Hub) Connect(ctx context.Context, ch contract.Channel) (string, error) {
	result := make(chan string, 1)
	err := h.loop.Submit(ctx, func(loopCtx context.Context) {
		id := h.registry.Register(ch)
		h.monitoring.ConnectionOpened()
		h.log.Debug("Connection registered", "conn_id", id)
		h.service.OnConnect(loopCtx, id)
		result <- id
	})
	if err != nil {
		return "", err
	}
	select {
	case id := <-result:
		return id, nil
	case <-ctx.Done():
		// The task may still run, the record must not outlive the caller.
		go h.release(result)
		return "", ctx.Err()
	case <-h.loop.Done():
		return "", errors.ErrLoopStopped
	}
}

func (h *Hub) release(result <-chan string) {
	select {
	case id := <-result:
		_ = h.Disconnect(context.Background(), id)
	case <-h.loop.Done():
	}
}

// Receive queues one inbound text message of connID.
func (h *Hub) Receive(ctx context.Context, connID string, raw []byte) error {
	receivedAt := time.Now().UTC()
	return h.loop.Submit(ctx, func(loopCtx context.Context) {
		name, err := h.router.Dispatch(loopCtx, connID, raw)
		h.monitoring.IncrCommands()
		if err != nil {
			h.monitoring.IncrErrorCount()
			h.log.Debug("Dispatch failed", "conn_id", connID, "event", name, "error", err)
		}
		event.Emit(h.telemetry, event.New(event.CommandHandledType, event.CommandHandled{
			Hub:        h.name,
			Event:      name,
			ConnID:     connID,
			ReceivedAt: receivedAt,
			Failed:     err != nil,
		}))
	})
}

// Disconnect queues the removal of connID. Unknown ids are ignored.
func (h *Hub) Disconnect(ctx context.Context, connID string) error {
	return h.loop.Submit(ctx, func(loopCtx context.Context) {
		record, ok := h.registry.Unregister(connID)
		if !ok {
			return
		}
		h.monitoring.ConnectionClosed()
		h.log.Debug("Connection unregistered", "conn_id", connID)
		h.service.OnDisconnect(loopCtx, record)
	})
}
