package services

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/contract"
	"dispatch-lab/domain"
	"dispatch-lab/errors"
	"dispatch-lab/runtime"
	"log/slog"
	"time"
)

const DashboardHub = "dashboard"

// DashboardService drives managed resources through their lifecycle.
// Every command is acknowledged at once and completed after the processing
// delay. Replies only ever go to the issuing connection.
type DashboardService struct {
	log       *slog.Logger
	registry  *runtime.Registry
	scheduler *runtime.Scheduler
	resources contract.Collection[domain.ManagedResource]
	ids       contract.IDGenerator
	delay     time.Duration
}

func NewDashboardService(log *slog.Logger, registry *runtime.Registry, scheduler *runtime.Scheduler,
	resources contract.Collection[domain.ManagedResource], ids contract.IDGenerator, delay time.Duration) *DashboardService {
	if ids == nil {
		ids = runtime.UUIDGenerator{}
	}
	return &DashboardService{
		log:       log.With("hub", DashboardHub),
		registry:  registry,
		scheduler: scheduler,
		resources: resources,
		ids:       ids,
		delay:     delay,
	}
}

func (s *DashboardService) Name() string {
	return DashboardHub
}

func (s *DashboardService) Routes() []runtime.Route {
	return []runtime.Route{
		{Kind: domain.KindCreate, Handle: s.create},
		{Kind: domain.KindStart, Handle: func(ctx context.Context, connID string, env codec.Envelope) {
			s.transition(ctx, connID, env, domain.KindStart, domain.StatusStarted)
		}},
		{Kind: domain.KindStop, Handle: func(ctx context.Context, connID string, env codec.Envelope) {
			s.transition(ctx, connID, env, domain.KindStop, domain.StatusStopped)
		}},
		{Kind: domain.KindRemove, Handle: s.remove},
	}
}

// OnConnect sends the current snapshot to the new connection only.
func (s *DashboardService) OnConnect(ctx context.Context, connID string) {
	instances := s.resources.Snapshot()
	if instances == nil {
		instances = []domain.ManagedResource{}
	}
	s.reply(ctx, connID, domain.EventInstances, instances)
}

// OnDisconnect has nothing to clean up, pending timers still fire
// and their replies are dropped by the registry.
func (s *DashboardService) OnDisconnect(context.Context, runtime.Record) {}

func (s *DashboardService) create(ctx context.Context, connID string, _ codec.Envelope) {
	id := s.ids.NewID()
	s.reply(ctx, connID, domain.EventProcessing, domain.Notice{ID: id, Info: domain.ProcessingInfo(domain.KindCreate)})

	s.scheduler.Schedule(s.delay, func(ctx context.Context) {
		if err := s.resources.Append(domain.NewManagedResource(id)); err != nil {
			s.log.Error("Unable to store resource", "id", id, "error", err)
			return
		}
		s.log.Debug("Resource created", "id", id, "conn_id", connID)
		s.reply(ctx, connID, domain.EventCreated, domain.Notice{ID: id, Info: domain.InfoCreated})
	})
}

func (s *DashboardService) transition(ctx context.Context, connID string, env codec.Envelope, kind domain.Kind, to domain.Status) {
	var cmd domain.TargetCommand
	if err := env.Bind(&cmd); err != nil {
		s.log.Debug("Rejected command", "event", kind, "conn_id", connID, "error", err)
		s.reply(ctx, connID, domain.EventError, domain.Notice{Info: domain.InfoInvalidPayload})
		return
	}
	id := cmd.ID
	s.reply(ctx, connID, domain.EventProcessing, domain.Notice{ID: id, Info: domain.ProcessingInfo(kind)})

	s.scheduler.Schedule(s.delay, func(ctx context.Context) {
		err := s.resources.Update(domain.ResourceByID, id, func(r *domain.ManagedResource) error {
			return r.Transition(to)
		})
		switch {
		case err == nil:
			event, info := completion(to)
			s.reply(ctx, connID, event, domain.Notice{ID: id, Info: info})
		case errors.Is(err, errors.ErrNotFound):
			s.reply(ctx, connID, domain.EventError, domain.Notice{ID: id, Info: domain.InfoNotFound})
		case errors.Is(err, errors.ErrInvalidTransition):
			s.reply(ctx, connID, domain.EventError, domain.Notice{ID: id, Info: alreadyInfo(to)})
		default:
			s.log.Error("Unable to update resource", "id", id, "error", err)
		}
	})
}

func (s *DashboardService) remove(ctx context.Context, connID string, env codec.Envelope) {
	var cmd domain.TargetCommand
	if err := env.Bind(&cmd); err != nil {
		s.log.Debug("Rejected command", "event", domain.KindRemove, "conn_id", connID, "error", err)
		s.reply(ctx, connID, domain.EventError, domain.Notice{Info: domain.InfoInvalidPayload})
		return
	}
	id := cmd.ID
	s.reply(ctx, connID, domain.EventProcessing, domain.Notice{ID: id, Info: domain.ProcessingInfo(domain.KindRemove)})

	s.scheduler.Schedule(s.delay, func(ctx context.Context) {
		if !s.resources.Delete(domain.ResourceByID, id) {
			s.reply(ctx, connID, domain.EventError, domain.Notice{ID: id, Info: domain.InfoNotFound})
			return
		}
		s.reply(ctx, connID, domain.EventRemoved, domain.Notice{ID: id, Info: domain.InfoRemoved})
	})
}

func (s *DashboardService) reply(ctx context.Context, connID, event string, payload any) {
	if err := s.registry.SendTo(ctx, connID, event, payload); err != nil {
		s.log.Error("Unable to encode reply", "event", event, "conn_id", connID, "error", err)
	}
}

func completion(to domain.Status) (string, string) {
	if to == domain.StatusStarted {
		return domain.EventStarted, domain.InfoStarted
	}
	return domain.EventStopped, domain.InfoStopped
}

func alreadyInfo(to domain.Status) string {
	if to == domain.StatusStarted {
		return domain.InfoAlreadyStarted
	}
	return domain.InfoAlreadyStopped
}
