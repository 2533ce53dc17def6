package runtime

import (
	"context"
	"dispatch-lab/codec"
	"dispatch-lab/errors"
	"sync"
)

// recordingChannel keeps every envelope it was asked to send.
type recordingChannel struct {
	mu       sync.Mutex
	closed   bool
	messages []codec.Envelope
}

func (c *recordingChannel) Send(_ context.Context, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrChannelClosed
	}
	env, err := codec.Decode(message)
	if err != nil {
		return err
	}
	c.messages = append(c.messages, env)
	return nil
}

func (c *recordingChannel) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *recordingChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingChannel) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		events = append(events, m.Event)
	}
	return events
}

func (c *recordingChannel) Last() codec.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return codec.Envelope{}
	}
	return c.messages[len(c.messages)-1]
}

// sequence hands out predictable connection ids.
type sequence struct {
	mu   sync.Mutex
	ids  []string
	next int
}

func (s *sequence) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[s.next]
	s.next++
	return id
}
