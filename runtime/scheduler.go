package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay on the dispatch loop.
// Timers never block each other nor the loop while they wait.
type Scheduler struct {
	log     *slog.Logger
	loop    *Loop
	mu      sync.Mutex
	timers  map[uint64]*Timer
	next    uint64
	stopped bool
}

// Timer is the handle of one scheduled callback.
type Timer struct {
	id        uint64
	scheduler *Scheduler
	timer     *time.Timer
}

func NewScheduler(log *slog.Logger, loop *Loop) *Scheduler {
	return &Scheduler{log: log, loop: loop, timers: make(map[uint64]*Timer)}
}

// Schedule runs task exactly once after delay, unless the timer is stopped first.
func (s *Scheduler) Schedule(delay time.Duration, task Task) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	t := &Timer{id: s.next, scheduler: s}
	if s.stopped {
		return t
	}
	s.timers[t.id] = t
	// The callback takes s.mu first, so t.timer is always set when it runs.
	t.timer = time.AfterFunc(delay, func() { s.fire(t, task) })
	return t
}

func (s *Scheduler) fire(t *Timer, task Task) {
	s.mu.Lock()
	if _, ok := s.timers[t.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.timers, t.id)
	s.mu.Unlock()

	if err := s.loop.Submit(context.Background(), task); err != nil {
		s.log.Debug("Timer fired after shutdown", "error", err)
	}
}

// Stop cancels the timer. It reports false when the callback already fired.
func (t *Timer) Stop() bool {
	s := t.scheduler
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[t.id]; !ok {
		return false
	}
	delete(s.timers, t.id)
	t.timer.Stop()
	return true
}

// Pending is the number of timers not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every outstanding timer; later Schedule calls never fire.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
}
