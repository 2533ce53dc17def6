package runtime

import (
	"context"
	"dispatch-lab/domain"
	"dispatch-lab/errors"
	"dispatch-lab/mocks"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRegistry_Register_Assigns_Unique_IDs(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), nil)

	// When two connections are registered
	id1 := registry.Register(&recordingChannel{})
	id2 := registry.Register(&recordingChannel{})

	// Then they get distinct ids kept in registration order
	req.NotEqual(id1, id2)
	req.Equal([]string{id1, id2}, registry.IDs())
	req.Equal(2, registry.Count())
}

func TestRegistry_Attach_Detach(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1"}})
	registry.Register(&recordingChannel{})

	// When a display name is attached
	req.True(registry.Attach("c1", "alice"))
	record, ok := registry.Get("c1")
	req.True(ok)
	req.Equal("alice", record.DisplayName)

	// When it is detached
	req.Equal("alice", registry.Detach("c1"))
	record, _ = registry.Get("c1")
	req.Empty(record.DisplayName)

	// Unknown connections are reported
	req.False(registry.Attach("ghost", "bob"))
	req.Empty(registry.Detach("ghost"))
}

func TestRegistry_Holds(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1", "c2"}})
	registry.Register(&recordingChannel{})
	registry.Register(&recordingChannel{})
	registry.Attach("c1", "alice")

	req.True(registry.Holds("alice", "c2"))
	req.False(registry.Holds("alice", "c1"))
	req.False(registry.Holds("bob", ""))

	// When the second connection takes the same name
	registry.Attach("c2", "alice")

	// Then it is held outside the first one
	req.True(registry.Holds("alice", "c1"))
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1", "c2"}})
	registry.Register(&recordingChannel{})
	registry.Register(&recordingChannel{})
	registry.Attach("c1", "alice")

	// When the first connection leaves
	record, ok := registry.Unregister("c1")

	// Then its last state is returned
	req.True(ok)
	req.Equal("alice", record.DisplayName)
	req.Equal([]string{"c2"}, registry.IDs())

	// And a second removal is a no-op
	_, ok = registry.Unregister("c1")
	req.False(ok)
}

func TestRegistry_Broadcast_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1", "c2", "c3"}})
	ch1, ch2, ch3 := &recordingChannel{}, &recordingChannel{}, &recordingChannel{}
	registry.Register(ch1)
	registry.Register(ch2)
	registry.Register(ch3)

	// When c1 broadcasts
	sent, err := registry.Broadcast(context.Background(), domain.EventMessage, "hi", "c1")

	// Then everybody but c1 received it
	req.NoError(err)
	req.Equal(2, sent)
	req.Empty(ch1.Events())
	req.Equal([]string{domain.EventMessage}, ch2.Events())
	req.Equal([]string{domain.EventMessage}, ch3.Events())
}

func TestRegistry_Broadcast_Without_Exclusion(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), nil)
	ch1, ch2 := &recordingChannel{}, &recordingChannel{}
	registry.Register(ch1)
	registry.Register(ch2)

	sent, err := registry.Broadcast(context.Background(), domain.EventUsersList, []string{"alice"}, "")

	req.NoError(err)
	req.Equal(2, sent)
	req.JSONEq(`["alice"]`, string(ch1.Last().Payload))
}

func TestRegistry_Broadcast_Skips_Closed_And_Failing_Channels(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1", "c2", "c3"}})

	// Given a closed channel, a failing channel and a healthy one
	closed := mocks.NewMockChannel(ctrl)
	closed.EXPECT().Writable().Return(false)
	failing := mocks.NewMockChannel(ctrl)
	failing.EXPECT().Writable().Return(true)
	failing.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.ErrChannelClosed)
	healthy := &recordingChannel{}
	registry.Register(closed)
	registry.Register(failing)
	registry.Register(healthy)

	// When a message is broadcast
	sent, err := registry.Broadcast(context.Background(), domain.EventMessage, "hi", "")

	// Then the failure is swallowed and the healthy channel still got it
	req.NoError(err)
	req.Equal(1, sent)
	req.Equal([]string{domain.EventMessage}, healthy.Events())
}

func TestRegistry_SendTo_Missing_Connection_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), nil)

	err := registry.SendTo(context.Background(), "ghost", domain.EventCreated, domain.Notice{ID: "r1"})

	req.NoError(err)
}

func TestRegistry_SendTo(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(discardLogger(), &sequence{ids: []string{"c1", "c2"}})
	ch1, ch2 := &recordingChannel{}, &recordingChannel{}
	registry.Register(ch1)
	registry.Register(ch2)

	err := registry.SendTo(context.Background(), "c2", domain.EventCreated, domain.Notice{ID: "r1", Info: domain.InfoCreated})

	req.NoError(err)
	req.Empty(ch1.Events())
	req.JSONEq(`{"id":"r1","INFO":"Created"}`, string(ch2.Last().Payload))
}
