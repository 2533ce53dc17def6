package services

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/domain/event"
	"dispatch-lab/errors"
	"dispatch-lab/observability"
	"dispatch-lab/runtime"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const processingDelay = 20 * time.Millisecond

type client struct {
	mu       sync.Mutex
	closed   bool
	messages []codec.Envelope
}

func (c *client) Send(_ context.Context, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrChannelClosed
	}
	env, err := codec.Decode(message)
	if err != nil {
		return err
	}
	c.messages = append(c.messages, env)
	return nil
}

func (c *client) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *client) received() []codec.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

func (c *client) events() []string {
	var events []string
	for _, m := range c.received() {
		events = append(events, m.Event)
	}
	return events
}

// waitFor blocks until the client got the n-th envelope of the given event
// and returns it.
func (c *client) waitFor(t *testing.T, event string, n int) codec.Envelope {
	t.Helper()
	var found codec.Envelope
	require.Eventually(t, func() bool {
		count := 0
		for _, m := range c.received() {
			if m.Event == event {
				count++
				if count == n {
					found = m
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "waiting for %s #%d, got %v", event, n, c.events())
	return found
}

type sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (s *sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.prefix + strconv.Itoa(s.next)
}

type harness struct {
	loop      *runtime.Loop
	scheduler *runtime.Scheduler
	registry  *runtime.Registry
	telemetry chan event.Event
	hub       *runtime.Hub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	loop := runtime.NewLoop(log, 64)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	scheduler := runtime.NewScheduler(log, loop)
	t.Cleanup(func() {
		scheduler.Stop()
		cancel()
		loop.Close()
	})
	return &harness{
		loop:      loop,
		scheduler: scheduler,
		registry:  runtime.NewRegistry(log, &sequence{prefix: "c"}),
		telemetry: make(chan event.Event, 64),
	}
}

func (h *harness) bind(t *testing.T, service runtime.Service) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	monitoring := observability.NewMonitoringManager(log, time.Second)
	hub, err := runtime.NewHub(log, h.loop, h.registry, service, monitoring, h.telemetry)
	require.NoError(t, err)
	h.hub = hub
}

func (h *harness) connect(t *testing.T) (string, *client) {
	t.Helper()
	c := &client{}
	id, err := h.hub.Connect(context.Background(), c)
	require.NoError(t, err)
	return id, c
}

func (h *harness) send(t *testing.T, connID, raw string) {
	t.Helper()
	require.NoError(t, h.hub.Receive(context.Background(), connID, []byte(raw)))
}

// settle waits until every task queued so far ran on the loop.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, h.loop.Submit(context.Background(), func(context.Context) { close(done) }))
	<-done
}
