package event

import (
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
)

type ProcessTrackerHandler struct {
	log *slog.Logger
}

func NewProcessTrackerHandler(log *slog.Logger) *ProcessTrackerHandler {
	return &ProcessTrackerHandler{log: log}
}

func (h ProcessTrackerHandler) Handle(event Event) {
	switch event.Type {
	case PIDTrackerType:
		payload, ok := event.Payload.(ProcessTracker)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf("[HEARTBEAT] | PID %d | CPU %.2f%% | RAM %d MB | THREADS %d",
			payload.PID, payload.Cpu, payload.Ram/1024/1024, payload.Threads))
	}
}
