package event

import (
	"dispatch-lab/errors"
	"log/slog"
	"sync"
)

// WorkerRestartedAfterPanicHandler counts restarts triggered by the supervisor,
// globally and per worker.
type WorkerRestartedAfterPanicHandler struct {
	log      *slog.Logger
	mu       sync.Mutex
	counter  *Counter
	byWorker map[string]uint64
}

func NewWorkerRestartedAfterPanicHandler(log *slog.Logger, counter *Counter) *WorkerRestartedAfterPanicHandler {
	return &WorkerRestartedAfterPanicHandler{
		log:      log,
		counter:  counter,
		byWorker: make(map[string]uint64),
	}
}

func (h *WorkerRestartedAfterPanicHandler) Handle(event Event) {
	switch event.Type {
	case RestartedAfterPanicType:
		payload, ok := event.Payload.(WorkerRestartedAfterPanic)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		h.counter.Increment(RestartedAfterPanicType)
		h.byWorker[payload.WorkerName]++
		h.log.Warn("Worker restarted after panic",
			"name", payload.WorkerName,
			"restarts", h.byWorker[payload.WorkerName],
			"total", h.counter.Get(RestartedAfterPanicType))
	}
}

func (h *WorkerRestartedAfterPanicHandler) Restarts(workerName string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byWorker[workerName]
}
