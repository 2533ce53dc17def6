package event

import (
	"dispatch-lab/errors"
	"log/slog"
	"sync"
)

// CensoredHandler keeps a tally of the forbidden words hit by chat messages.
type CensoredHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	hit     map[string]uint64
}

func NewCensoredHandler(log *slog.Logger) *CensoredHandler {
	return &CensoredHandler{
		log:     log,
		counter: 0,
		hit:     make(map[string]uint64),
	}
}

func (h *CensoredHandler) Handle(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch event.Type {
	case CensorshipHit:
		payload, ok := event.Payload.(Censored)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter++
		h.hit[payload.Word]++
	}
}

// Hits returns how many times a word was censored.
func (h *CensoredHandler) Hits(word string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hit[word]
}

func (h *CensoredHandler) Total() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}
