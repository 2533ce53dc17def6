//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Channel is one live bidirectional connection as seen by the core.
// The transport owns framing; the core only pushes encoded text.
type Channel interface {
	Send(ctx context.Context, message []byte) error
	Writable() bool
	Close() error
}

// IDGenerator returns globally unique identifiers.
type IDGenerator interface {
	NewID() string
}

// Field extracts the value a collection is searched by.
type Field[T any] func(item T) string

// Collection is an ordered, concurrency-safe set of items.
// Deleting a value that is absent is a no-op.
type Collection[T any] interface {
	Append(item T) error
	Delete(field Field[T], value string) bool
	Find(field Field[T], value string) (T, bool)
	Update(field Field[T], value string, fn func(item *T) error) error
	Snapshot() []T
	Len() int
}

// Censor rewrites forbidden words in a text and returns the words it hit.
type Censor interface {
	Censor(text string) (string, []string)
}
