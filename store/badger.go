package store

import (
	"dispatch-lab/contract"
	"dispatch-lab/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// OpenInMemory opens a badger instance that never touches the disk.
// Everything it holds is gone once the process exits.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
}

// Badger stores JSON encoded items under "{prefix}:{seq}" keys.
// The sequence is zero padded on 19 digits so a prefix scan returns
// items in insertion order.
// The mutex serializes writers so that find-then-mutate stays atomic.
type Badger[T any] struct {
	mu     sync.Mutex
	db     *badger.DB
	log    *slog.Logger
	prefix string
	seq    uint64
}

type entry[T any] struct {
	key  []byte
	item T
}

func NewBadger[T any](db *badger.DB, log *slog.Logger, prefix string) *Badger[T] {
	return &Badger[T]{db: db, log: log, prefix: prefix}
}

func (b *Badger[T]) Append(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bytes, err := json.Marshal(item)
	if err != nil {
		return err
	}
	b.seq++
	key := fmt.Sprintf("%s:%019d", b.prefix, b.seq)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

func (b *Badger[T]) Delete(field contract.Field[T], value string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	found, ok := b.lookup(field, value)
	if !ok {
		return false
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(found.key)
	})
	if err != nil {
		b.log.Error("Unable to delete item", "key", string(found.key), "error", err)
		return false
	}
	return true
}

func (b *Badger[T]) Find(field contract.Field[T], value string) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	found, ok := b.lookup(field, value)
	return found.item, ok
}

func (b *Badger[T]) Update(field contract.Field[T], value string, fn func(item *T) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	found, ok := b.lookup(field, value)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, value)
	}
	if err := fn(&found.item); err != nil {
		return err
	}
	bytes, err := json.Marshal(found.item)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(found.key, bytes)
	})
}

func (b *Badger[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries, err := b.scan()
	if err != nil {
		b.log.Error("Unable to scan items", "prefix", b.prefix, "error", err)
		return nil
	}
	items := make([]T, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.item)
	}
	return items
}

// Len counts keys only, values are never fetched.
func (b *Badger[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	err := b.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		prefix := []byte(b.prefix + ":")
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		b.log.Error("Unable to count items", "prefix", b.prefix, "error", err)
		return 0
	}
	return count
}

func (b *Badger[T]) lookup(field contract.Field[T], value string) (entry[T], bool) {
	entries, err := b.scan()
	if err != nil {
		b.log.Error("Unable to scan items", "prefix", b.prefix, "error", err)
		return entry[T]{}, false
	}
	for _, e := range entries {
		if field(e.item) == value {
			return e, true
		}
	}
	return entry[T]{}, false
}

func (b *Badger[T]) scan() ([]entry[T], error) {
	var entries []entry[T]
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(b.prefix + ":")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var decoded T
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &decoded)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry[T]{key: item.KeyCopy(nil), item: decoded})
		}
		return nil
	})
	return entries, err
}
