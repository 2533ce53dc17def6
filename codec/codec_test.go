package codec

import (
	"dispatch-lab/domain"
	"dispatch-lab/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode_Envelope(t *testing.T) {
	req := require.New(t)

	data, err := Encode(domain.EventProcessing, domain.Notice{ID: "42", Info: `Received "CREATE command"`})
	req.NoError(err)
	req.JSONEq(`{"event":"Processing","payload":{"id":"42","INFO":"Received \"CREATE command\""}}`, string(data))
}

func TestEncode_NilPayload(t *testing.T) {
	req := require.New(t)

	data, err := Encode(domain.EventUsersList, nil)
	req.NoError(err)
	req.JSONEq(`{"event":"UsersList","payload":null}`, string(data))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		event       string
		hasPayload  bool
		expectedErr error
	}{
		{name: "event with payload", input: `{"event":"START","payload":{"id":"1"}}`, event: "START", hasPayload: true},
		{name: "missing payload defaults to absent", input: `{"event":"CREATE"}`, event: "CREATE"},
		{name: "null payload is absent", input: `{"event":"CREATE","payload":null}`, event: "CREATE"},
		{name: "not json", input: `hello`, expectedErr: errors.ErrMalformedEnvelope},
		{name: "missing event", input: `{"payload":{}}`, expectedErr: errors.ErrMalformedEnvelope},
		{name: "blank event", input: `{"event":"  "}`, expectedErr: errors.ErrMalformedEnvelope},
		{name: "event is not a string", input: `{"event":12}`, expectedErr: errors.ErrMalformedEnvelope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Decode([]byte(tt.input))
			if tt.expectedErr != nil {
				req.ErrorIs(err, tt.expectedErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.event, env.Event)
			req.Equal(tt.hasPayload, env.HasPayload())
		})
	}
}

func TestEnvelope_Bind(t *testing.T) {
	req := require.New(t)

	// Given a START envelope with an id
	env, err := Decode([]byte(`{"event":"START","payload":{"id":"abc"}}`))
	req.NoError(err)

	// When the payload is bound
	var cmd domain.TargetCommand
	req.NoError(env.Bind(&cmd))

	// Then the id is read
	req.Equal("abc", cmd.ID)

	// And an empty id is rejected by validation
	env, err = Decode([]byte(`{"event":"START","payload":{"id":""}}`))
	req.NoError(err)
	req.ErrorIs(env.Bind(&cmd), errors.ErrInvalidPayload)

	// And a missing payload is rejected
	env, err = Decode([]byte(`{"event":"START"}`))
	req.NoError(err)
	req.ErrorIs(env.Bind(&cmd), errors.ErrInvalidPayload)
}

func TestEnvelope_BindText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectedErr error
	}{
		{name: "bare string", input: `{"event":"UserJoin","payload":"alice"}`, expected: "alice"},
		{name: "object", input: `{"event":"UserJoin","payload":{"name":"bob"}}`, expected: "bob"},
		{name: "missing field", input: `{"event":"UserJoin","payload":{"nick":"bob"}}`, expectedErr: errors.ErrInvalidPayload},
		{name: "field is not a string", input: `{"event":"UserJoin","payload":{"name":3}}`, expectedErr: errors.ErrInvalidPayload},
		{name: "array", input: `{"event":"UserJoin","payload":[1]}`, expectedErr: errors.ErrInvalidPayload},
		{name: "absent", input: `{"event":"UserJoin"}`, expectedErr: errors.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			env, err := Decode([]byte(tt.input))
			req.NoError(err)
			text, err := env.BindText("name")
			if tt.expectedErr != nil {
				req.ErrorIs(err, tt.expectedErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, text)
		})
	}
}
