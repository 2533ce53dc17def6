package event

import (
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
	"sync"
)

// ChannelCapacityHandler watches the fill level of internal queues.
// The last sample per queue is kept so the monitoring endpoint can show it.
type ChannelCapacityHandler struct {
	log                  *slog.Logger
	lowCapacityThreshold int
	mu                   sync.RWMutex
	latest               map[string]ChannelCapacity
}

func NewChannelCapacityHandler(log *slog.Logger, lowCapacityThreshold int) *ChannelCapacityHandler {
	return &ChannelCapacityHandler{
		log:                  log,
		lowCapacityThreshold: lowCapacityThreshold,
		latest:               make(map[string]ChannelCapacity),
	}
}

func (h *ChannelCapacityHandler) Handle(event Event) {
	switch event.Type {
	case ChannelCapacityType:
		payload, ok := event.Payload.(ChannelCapacity)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		h.latest[payload.ChannelName] = payload
		h.mu.Unlock()

		h.log.Debug(fmt.Sprintf("Queue %s usage: %d / %d", payload.ChannelName, payload.Length, payload.Capacity))
		if payload.Capacity <= 0 {
			// unbuffered
			return
		}
		capacityLeft := payload.Capacity - payload.Length
		if capacityLeft <= h.lowCapacityThreshold {
			h.log.Warn("Queue almost full", "name", payload.ChannelName, "capacity_left", capacityLeft)
		}
	}
}

// Latest returns the last sample received for a queue.
func (h *ChannelCapacityHandler) Latest(name string) (ChannelCapacity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.latest[name]
	return c, ok
}
