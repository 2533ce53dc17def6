package event

import (
	"dispatch-lab/errors"
	"fmt"
	"log/slog"
	"sync"
)

// MessageSentHandler handles events when a chat message is fanned out.
// Useful for updating observability metrics, logging, or telemetry.
type MessageSentHandler struct {
	log     *slog.Logger
	mu      sync.Mutex
	counter *Counter
}

func NewMessageSentHandler(log *slog.Logger, counter *Counter) *MessageSentHandler {
	return &MessageSentHandler{log: log, counter: counter}
}

func (p *MessageSentHandler) Handle(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case MessageSentType:
		payload, ok := event.Payload.(MessageSent)
		if !ok {
			p.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		p.counter.Increment(MessageSentType)
		p.log.Debug(fmt.Sprintf("Message sent on %s to %d recipients", payload.Hub, payload.Recipients))
	}
}
