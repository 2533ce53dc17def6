package event

import (
	"log/slog"
	"time"
)

// LatencyHandler measures the time between a message reaching the hub
// and the end of its dispatch, queueing time included.
type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e Event) {
	if payload, ok := e.Payload.(CommandHandled); ok {
		leadTime := e.CreatedAt.Sub(payload.ReceivedAt)

		h.log.Debug("telemetry: processing latency",
			"hub", payload.Hub,
			"event", payload.Event,
			"conn_id", payload.ConnID,
			"lead_time_ms", leadTime.Milliseconds(),
			"lead_time_ns", leadTime.Nanoseconds(),
		)

		if h.latencyThreshold > 0 && leadTime > h.latencyThreshold {
			h.log.Warn("high latency detected", "event", payload.Event, "lead_time", leadTime)
		}
	}
}
