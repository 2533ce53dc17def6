package runtime

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/domain"
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
)

// Handler processes one decoded envelope for the issuing connection.
type Handler func(ctx context.Context, connID string, env codec.Envelope)

type Route struct {
	Kind   domain.Kind
	Handle Handler
}

// Router resolves inbound events to handlers.
// The table is fixed at construction, there is no dynamic registration.
type Router struct {
	log      *slog.Logger
	name     string
	registry *Registry
	routes   map[domain.Kind]Handler
}

func NewRouter(log *slog.Logger, name string, registry *Registry, routes []Route) (*Router, error) {
	table := make(map[domain.Kind]Handler, len(routes))
	for _, route := range routes {
		if _, ok := table[route.Kind]; ok {
			return nil, fmt.Errorf("%w: %s on %s", errors.ErrDuplicateRoute, route.Kind, name)
		}
		table[route.Kind] = route.Handle
	}
	return &Router{log: log, name: name, registry: registry, routes: table}, nil
}

// Dispatch decodes raw and invokes the matching handler.
// It returns the event name it decoded, empty when the envelope is malformed.
func (r *Router) Dispatch(ctx context.Context, connID string, raw []byte) (string, error) {
	if _, ok := r.registry.Get(connID); !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrConnectionNotFound, connID)
	}
	env, err := codec.Decode(raw)
	if err != nil {
		r.log.Debug("Malformed envelope", "hub", r.name, "conn_id", connID, "error", err)
		if sendErr := r.registry.SendTo(ctx, connID, domain.EventError, domain.Notice{Info: domain.InfoMalformedEnvelope}); sendErr != nil {
			r.log.Debug("Unable to report malformed envelope", "conn_id", connID, "error", sendErr)
		}
		return "", err
	}
	handle, ok := r.routes[domain.Kind(env.Event)]
	if !ok {
		r.log.Warn("Unknown event", "hub", r.name, "conn_id", connID, "event", env.Event)
		return env.Event, fmt.Errorf("%w: %s", errors.ErrUnknownEvent, env.Event)
	}
	handle(ctx, connID, env)
	return env.Event, nil
}
