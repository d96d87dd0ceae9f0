// Package queue serializes configuration and topology mutations onto a
// single goroutine so device re-resolution and lifecycle changes never race
// each other. Block processing stays outside: the audio thread never touches
// the queue.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Op is a single mutation. It should be quick and non-blocking; any heavy
// work should be prepared in advance. It receives a context that is canceled
// on shutdown. Idempotent no-ops should return nil.
type Op interface {
	Apply(ctx context.Context) error
}

// Func adapts a function into an Op.
type Func func(ctx context.Context) error

func (f Func) Apply(ctx context.Context) error { return f(ctx) }

// Queue runs submitted ops in order on one worker goroutine, with graceful
// shutdown and a bounded best-effort drain.
type Queue struct {
	ch      chan Op
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	// optional observer for op failures
	onError func(error)
}

// New creates a queue with a fixed buffer.
func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{ch: make(chan Op, buffer), ctx: ctx, cancel: cancel}
}

// OnError sets a callback for op failures. Must be called before Start.
func (q *Queue) OnError(fn func(error)) {
	q.onError = fn
}

// Start begins the worker goroutine. Safe to call multiple times.
func (q *Queue) Start() {
	if q.started {
		return
	}
	q.started = true
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.ctx.Done():
				// drain outstanding ops best-effort with short deadline
				deadline := time.After(10 * time.Millisecond)
				for {
					select {
					case op := <-q.ch:
						q.run(op)
					case <-deadline:
						return
					default:
						return
					}
				}
			case op := <-q.ch:
				q.run(op)
			}
		}
	}()
}

func (q *Queue) run(op Op) {
	if op == nil {
		return
	}
	if err := op.Apply(q.ctx); err != nil && q.onError != nil {
		q.onError(err)
	}
}

// Enqueue adds an operation to the queue.
func (q *Queue) Enqueue(op Op) error {
	if q == nil || q.ch == nil {
		return errors.New("queue not initialized")
	}
	select {
	case q.ch <- op:
		return nil
	case <-q.ctx.Done():
		return errors.New("queue closed")
	}
}

// Close stops the worker and waits for it to finish.
func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.cancel()
	q.wg.Wait()
}
