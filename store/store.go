// Package store holds the ordered collections backing resources and chat logs.
package store

import (
	"dispatch-lab/contract"
	"dispatch-lab/errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

type Backend string

const (
	MemoryBackend Backend = "memory"
	BadgerBackend Backend = "badger"
)

// New builds a collection for the requested backend.
// db is only read for the badger backend and may be nil otherwise.
func New[T any](backend Backend, db *badger.DB, log *slog.Logger, prefix string) (contract.Collection[T], error) {
	switch backend {
	case MemoryBackend, "":
		return NewMemory[T](), nil
	case BadgerBackend:
		if db == nil {
			return nil, fmt.Errorf("%w: badger backend needs a database", errors.ErrUnsupportedBackend)
		}
		return NewBadger[T](db, log, prefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedBackend, backend)
	}
}
