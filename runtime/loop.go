package runtime

import (
	"context"
	"dispatch-lab/errors"
	"log/slog"
	"sync"
)

// Task is one unit of work executed on the dispatch loop.
type Task func(ctx context.Context)

// Loop is the single logical event loop.
// Inbound messages, connection bookkeeping and timer callbacks are all
// queued here and run one at a time, in submission order.
// It is a contract.Worker: a panic in a task ends Run and the supervisor
// starts it again, the queue survives the restart.
type Loop struct {
	log       *slog.Logger
	queue     chan Task
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoop(log *slog.Logger, bufferSize int) *Loop {
	return &Loop{
		log:   log,
		queue: make(chan Task, bufferSize),
		done:  make(chan struct{}),
	}
}

// Submit enqueues a task. It blocks while the queue is full,
// until ctx is done or the loop is closed.
func (l *Loop) Submit(ctx context.Context, task Task) error {
	select {
	case <-l.done:
		return errors.ErrLoopStopped
	default:
	}
	select {
	case l.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return errors.ErrLoopStopped
	}
}

func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Context done, stopping dispatch loop", "pending", len(l.queue))
			return nil
		case <-l.done:
			return nil
		case task := <-l.queue:
			task(ctx)
		}
	}
}

// Close rejects every later Submit. Tasks still queued are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

// Queue exposes the underlying channel for capacity sampling only.
func (l *Loop) Queue() any {
	return l.queue
}

func (l *Loop) Len() int {
	return len(l.queue)
}

// Done is closed once the loop no longer accepts tasks.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
