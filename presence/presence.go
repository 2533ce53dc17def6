// Package presence tracks which display names are currently in the chat.
package presence

import (
	"sync"

	"github.com/samber/lo"
)

// Set has set semantics over names but remembers join order,
// so listings are stable for clients.
type Set struct {
	mu    sync.RWMutex
	index map[string]struct{}
	order []string
}

func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add reports whether the name was newly added.
func (s *Set) Add(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

// Remove reports whether the name was present. Removing an absent name is a no-op.
func (s *Set) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; !ok {
		return false
	}
	delete(s.index, name)
	s.order = lo.Without(s.order, name)
	return true
}

func (s *Set) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// All returns the names in join order.
func (s *Set) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]string, len(s.order))
	copy(all, s.order)
	return all
}

func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string]struct{})
	s.order = nil
}
