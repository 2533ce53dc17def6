package runtime

import (
	"context"
	"dispatch-lab/domain/event"
	"dispatch-lab/errors"
	"dispatch-lab/observability"
	"dispatch-lab/runtime/workers"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestOrchestrator() (*Orchestrator, *observability.MonitoringManager) {
	telemetry := make(chan event.Event, 64)
	supervisor := workers.NewSupervisor(discardLogger(), 10*time.Millisecond, telemetry)
	monitoring := observability.NewMonitoringManager(discardLogger(), 10*time.Millisecond)
	o := NewOrchestrator(discardLogger(), supervisor, monitoring, telemetry,
		&sequence{ids: []string{"c1", "c2"}}, OrchestratorConfig{
			LoopBufferSize:       16,
			MetricInterval:       10 * time.Millisecond,
			HeartbeatInterval:    50 * time.Millisecond,
			LowCapacityThreshold: 2,
			LatencyThreshold:     time.Second,
		})
	return o, monitoring
}

func TestOrchestrator_Runs_Bound_Hubs_Until_Stop(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given an orchestrator with one bound hub
	o, monitoring := newTestOrchestrator()
	registry := o.NewRegistry()
	hub, err := o.Bind(registry, &echoService{registry: registry})
	req.NoError(err)

	done := make(chan error, 1)
	go func() { done <- o.Start(ctx) }()

	// When a client connects and talks
	ch := &recordingChannel{}
	id, err := hub.Connect(ctx, ch)
	req.NoError(err)
	req.NoError(hub.Receive(ctx, id, []byte(`{"event":"Chat","payload":"hi"}`)))

	// Then the hub answers through the supervised loop
	req.Eventually(func() bool { return len(ch.Events()) == 2 }, time.Second, 5*time.Millisecond)
	req.Eventually(func() bool {
		stats := monitoring.GetLatest()
		return stats.Gauges["echo_connections"] == 1 && stats.Commands == 1
	}, time.Second, 5*time.Millisecond)

	// And Stop ends every worker and closes the loop
	o.Stop()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("orchestrator did not stop")
	}
	req.ErrorIs(o.Loop().Submit(ctx, func(context.Context) {}), errors.ErrLoopStopped)
}

func TestOrchestrator_Bind_Rejects_Duplicate_Routes(t *testing.T) {
	req := require.New(t)
	o, _ := newTestOrchestrator()
	registry := o.NewRegistry()
	service := &echoService{registry: registry}

	_, err := o.Bind(registry, duplicateRoutes{service})

	req.ErrorIs(err, errors.ErrDuplicateRoute)
}

func TestOrchestrator_PrepareModeration_Uses_Embedded_Dictionaries(t *testing.T) {
	req := require.New(t)
	o, _ := newTestOrchestrator()

	moderator, err := o.PrepareModeration('*')
	req.NoError(err)

	censored, hits := moderator.Censor("a badger and a serpent")
	req.Equal("a ****** and a *******", censored)
	req.ElementsMatch([]string{"badger", "serpent"}, hits)
}

type duplicateRoutes struct {
	*echoService
}

func (d duplicateRoutes) Routes() []Route {
	routes := d.echoService.Routes()
	return append(routes, routes...)
}
