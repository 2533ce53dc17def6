package store

import (
	"bytes"
	"dispatch-lab/contract"
	"dispatch-lab/domain"
	"dispatch-lab/errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]contract.Collection[domain.ManagedResource] {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]contract.Collection[domain.ManagedResource]{
		"memory": NewMemory[domain.ManagedResource](),
		"badger": NewBadger[domain.ManagedResource](db, slog.New(slog.DiscardHandler), "resource"),
	}
}

func TestCollection_Append_Keeps_Insertion_Order(t *testing.T) {
	for name, collection := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			// Given three resources appended one after the other
			for _, id := range []string{"c", "a", "b"} {
				req.NoError(collection.Append(domain.NewManagedResource(id)))
			}

			// Then the snapshot returns them in the same order
			ids := make([]string, 0, 3)
			for _, r := range collection.Snapshot() {
				ids = append(ids, r.ID)
			}
			req.Equal([]string{"c", "a", "b"}, ids)
			req.Equal(3, collection.Len())
		})
	}
}

func TestCollection_Find(t *testing.T) {
	for name, collection := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			req.NoError(collection.Append(domain.NewManagedResource("r1")))

			found, ok := collection.Find(domain.ResourceByID, "r1")
			req.True(ok)
			req.Equal(domain.StatusStopped, found.Status)

			_, ok = collection.Find(domain.ResourceByID, "missing")
			req.False(ok)
		})
	}
}

func TestCollection_Delete(t *testing.T) {
	for name, collection := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)

			// Given two resources
			req.NoError(collection.Append(domain.NewManagedResource("r1")))
			req.NoError(collection.Append(domain.NewManagedResource("r2")))

			// When the first one is deleted
			req.True(collection.Delete(domain.ResourceByID, "r1"))

			// Then only the second one is left
			req.Equal(1, collection.Len())
			_, ok := collection.Find(domain.ResourceByID, "r1")
			req.False(ok)

			// And deleting it again is a no-op
			req.False(collection.Delete(domain.ResourceByID, "r1"))
			req.Equal(1, collection.Len())
		})
	}
}

func TestCollection_Update(t *testing.T) {
	for name, collection := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			req.NoError(collection.Append(domain.NewManagedResource("r1")))

			// When the resource is started
			err := collection.Update(domain.ResourceByID, "r1", func(r *domain.ManagedResource) error {
				return r.Transition(domain.StatusStarted)
			})
			req.NoError(err)

			// Then the change is visible
			found, _ := collection.Find(domain.ResourceByID, "r1")
			req.Equal(domain.StatusStarted, found.Status)

			// When it is started twice
			err = collection.Update(domain.ResourceByID, "r1", func(r *domain.ManagedResource) error {
				return r.Transition(domain.StatusStarted)
			})

			// Then the transition is rejected and nothing changes
			req.True(errors.Is(err, errors.ErrInvalidTransition))
			found, _ = collection.Find(domain.ResourceByID, "r1")
			req.Equal(domain.StatusStarted, found.Status)
		})
	}
}

func TestCollection_Update_Missing(t *testing.T) {
	for name, collection := range backends(t) {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			called := false
			err := collection.Update(domain.ResourceByID, "missing", func(r *domain.ManagedResource) error {
				called = true
				return nil
			})
			req.True(errors.Is(err, errors.ErrNotFound))
			req.False(called)
		})
	}
}

func TestCollection_Snapshot_Is_A_Copy(t *testing.T) {
	req := require.New(t)
	collection := NewMemory(domain.NewManagedResource("r1"))

	snapshot := collection.Snapshot()
	snapshot[0].Status = domain.StatusStarted

	found, _ := collection.Find(domain.ResourceByID, "r1")
	req.Equal(domain.StatusStopped, found.Status)
}

func TestNew(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	collection, err := New[domain.ChatMessage](MemoryBackend, nil, log, "chat")
	req.NoError(err)
	req.IsType(&Memory[domain.ChatMessage]{}, collection)

	_, err = New[domain.ChatMessage](BadgerBackend, nil, log, "chat")
	req.True(errors.Is(err, errors.ErrUnsupportedBackend))

	_, err = New[domain.ChatMessage]("redis", nil, log, "chat")
	req.True(errors.Is(err, errors.ErrUnsupportedBackend))
}

func TestBadger_Len_Logs_Closed_Database(t *testing.T) {
	req := require.New(t)
	var logs bytes.Buffer
	db, err := OpenInMemory()
	req.NoError(err)
	collection := NewBadger[domain.ChatMessage](db, slog.New(slog.NewTextHandler(&logs, nil)), "chat")
	req.NoError(collection.Append(domain.ChatMessage{Username: "alice", Text: "hi"}))
	req.Equal(1, collection.Len())

	// When the database is gone
	req.NoError(db.Close())

	// Then the count falls back to zero and the failure is logged
	req.Zero(collection.Len())
	req.Contains(logs.String(), "Unable to count items")
}
