// Package codec turns {event, payload} envelopes into transport text messages and back.
package codec

import (
	"bytes"
	"dispatch-lab/errors"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Envelope is the wire unit exchanged over a channel.
// Payload is kept raw so each handler binds it to its own command type.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes an envelope as a UTF-8 JSON text message.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// Decode parses a text message.
// It fails with ErrMalformedEnvelope when the text is not JSON or has no event.
// A missing payload is left nil.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	if strings.TrimSpace(env.Event) == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", errors.ErrMalformedEnvelope)
	}
	if bytes.Equal(bytes.TrimSpace(env.Payload), []byte("null")) {
		env.Payload = nil
	}
	return env, nil
}

// HasPayload reports whether the envelope carried a non-null payload.
func (e Envelope) HasPayload() bool {
	return len(e.Payload) > 0
}

// Bind unmarshals the payload into v and validates its struct tags.
func (e Envelope) Bind(v any) error {
	if !e.HasPayload() {
		return fmt.Errorf("%w: %s has no payload", errors.ErrInvalidPayload, e.Event)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return Validate(v)
}

// Validate checks the struct tags of an already bound command.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

// BindText accepts either a bare JSON string or an object, in which case
// the string is read from the given field. Some clients send `"alice"`,
// others `{"name":"alice"}`.
func (e Envelope) BindText(field string) (string, error) {
	if !e.HasPayload() {
		return "", fmt.Errorf("%w: %s has no payload", errors.ErrInvalidPayload, e.Event)
	}
	var text string
	if err := json.Unmarshal(e.Payload, &text); err == nil {
		return text, nil
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(e.Payload, &object); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	raw, ok := object[field]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", errors.ErrInvalidPayload, field)
	}
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: %q is not a string", errors.ErrInvalidPayload, field)
	}
	return text, nil
}
