package store

import (
	"dispatch-lab/contract"
	"dispatch-lab/errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Memory keeps items in insertion order in a plain slice.
type Memory[T any] struct {
	mu    sync.RWMutex
	items []T
}

func NewMemory[T any](items ...T) *Memory[T] {
	return &Memory[T]{items: slices.Clone(items)}
}

func (m *Memory[T]) Append(item T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

// Delete removes the first item whose field equals value.
func (m *Memory[T]) Delete(field contract.Field[T], value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(m.items, matching(field, value))
	if !ok {
		return false
	}
	m.items = slices.Delete(m.items, idx, idx+1)
	return true
}

func (m *Memory[T]) Find(field contract.Field[T], value string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, _, ok := lo.FindIndexOf(m.items, matching(field, value))
	return item, ok
}

// Update applies fn to a copy of the matching item and stores the copy
// only when fn succeeds, so a rejected mutation leaves the item untouched.
func (m *Memory[T]) Update(field contract.Field[T], value string, fn func(item *T) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, idx, ok := lo.FindIndexOf(m.items, matching(field, value))
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrNotFound, value)
	}
	if err := fn(&item); err != nil {
		return err
	}
	m.items[idx] = item
	return nil
}

func (m *Memory[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func matching[T any](field contract.Field[T], value string) func(item T) bool {
	return func(item T) bool {
		return field(item) == value
	}
}
