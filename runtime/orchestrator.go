// Package runtime handles the dispatch loop, its timers, the connection
// registries and the supervised background workers.
// It orchestrates the hubs without containing business logic or domain rules.
package runtime

import (
	"context"
	"dispatch-lab/contract"
	"dispatch-lab/domain/event"
	"dispatch-lab/moderation"
	"dispatch-lab/observability"
	"dispatch-lab/runtime/workers"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	LoopBufferSize       int
	MetricInterval       time.Duration
	HeartbeatInterval    time.Duration
	LowCapacityThreshold int
	LatencyThreshold     time.Duration
	// ReportInterval enables the stats log line when positive.
	ReportInterval time.Duration
}

type Orchestrator struct {
	mu              sync.Mutex
	log             *slog.Logger
	cfg             OrchestratorConfig
	supervisor      contract.ISupervisor
	loop            *Loop
	scheduler       *Scheduler
	monitoring      *observability.MonitoringManager
	ids             contract.IDGenerator
	telemetryEvents chan event.Event
	counter         *event.Counter
	handlers        []event.Handler
	hubs            []*Hub
	cancel          context.CancelFunc
}

// NewOrchestrator builds the loop and the scheduler. telemetryEvents must be
// the channel the supervisor reports to.
func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	monitoring *observability.MonitoringManager, telemetryEvents chan event.Event,
	ids contract.IDGenerator, cfg OrchestratorConfig) *Orchestrator {
	loop := NewLoop(log, cfg.LoopBufferSize)
	return &Orchestrator{
		log:             log,
		cfg:             cfg,
		supervisor:      supervisor,
		loop:            loop,
		scheduler:       NewScheduler(log, loop),
		monitoring:      monitoring,
		ids:             ids,
		telemetryEvents: telemetryEvents,
		counter:         event.NewCounter(),
	}
}

func (o *Orchestrator) Loop() *Loop {
	return o.loop
}

func (o *Orchestrator) Scheduler() *Scheduler {
	return o.scheduler
}

// NewRegistry returns an empty registry sharing the orchestrator id generator.
func (o *Orchestrator) NewRegistry() *Registry {
	return NewRegistry(o.log, o.ids)
}

// Bind turns a service into a hub running on the shared loop.
func (o *Orchestrator) Bind(registry *Registry, service Service) (*Hub, error) {
	hub, err := NewHub(o.log, o.loop, registry, service, o.monitoring, o.telemetryEvents)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", service.Name(), err)
	}
	o.monitoring.RegisterGauge(service.Name()+"_connections", registry.Count)

	o.mu.Lock()
	o.hubs = append(o.hubs, hub)
	o.mu.Unlock()
	return hub, nil
}

// AddHandlers plugs more telemetry handlers, it must be called before Start.
func (o *Orchestrator) AddHandlers(handlers ...event.Handler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, handlers...)
}

// PrepareModeration loads the embedded dictionaries and builds the Aho-Corasick automaton.
func (o *Orchestrator) PrepareModeration(charReplacement rune) (*moderation.Moderator, error) {
	data, err := NewCensoredLoader(CensoredFolder).LoadAll("censored")
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))
	return moderation.NewModerator(data.Words, charReplacement, o.log)
}

// Start registers the loop and every background worker to the supervisor
// and blocks until Stop is called or ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	// Preparation is done without the lock.
	handlers := append([]event.Handler{
		event.NewWorkerRestartedAfterPanicHandler(o.log, o.counter),
		event.NewChannelCapacityHandler(o.log, o.cfg.LowCapacityThreshold),
		event.NewProcessTrackerHandler(o.log),
		event.NewLatencyHandler(o.log, o.cfg.LatencyThreshold),
		event.NewMessageSentHandler(o.log, o.counter),
	}, o.registeredHandlers()...)

	capacityWorker := workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
		{Name: "loop", Channel: o.loop.Queue()},
		{Name: "telemetry", Channel: o.telemetryEvents},
	}, o.telemetryEvents, o.cfg.MetricInterval)

	o.monitoring.RegisterGauge("loop_queue", o.loop.Len)
	o.monitoring.RegisterGauge("pending_timers", o.scheduler.Pending)

	supervisedCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.supervisor.Add(
		o.loop,
		workers.NewTelemetryWorker(o.log, o.telemetryEvents, handlers),
		capacityWorker,
		workers.NewHeartbeatWorker(o.log, o.cfg.HeartbeatInterval, o.monitoring, o.telemetryEvents),
		o.monitoring,
	)
	if o.cfg.ReportInterval > 0 {
		o.supervisor.Add(workers.NewReporterWorker(o.log, o.monitoring, o.cfg.ReportInterval))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "hubs", o.hubNames())
	o.supervisor.Run(supervisedCtx)
	return nil
}

func (o *Orchestrator) registeredHandlers() []event.Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]event.Handler(nil), o.handlers...)
}

func (o *Orchestrator) hubNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.hubs))
	for _, h := range o.hubs {
		names = append(names, h.Name())
	}
	return names
}

// Stop cancels pending timers, then the workers, and refuses new tasks.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.scheduler.Stop()

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()

	o.loop.Close()
	o.log.Debug("Dispatch loop closed")
}
