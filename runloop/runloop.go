// Package runloop provides the single-goroutine event loop that plays the
// role of the main thread for an incremental load.
//
// Work is posted with [RunLoop.Dispatch] from any goroutine and executed in
// FIFO order by whichever goroutine is running the loop, either [RunLoop.Run]
// for a long-lived loop or [RunLoop.RunPending] for callers (tests, embedded
// hosts) that pump the queue themselves.
package runloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ErrStopped is returned when work is posted to, or waited on from, a loop
// that has been stopped.
var ErrStopped = errors.New("run loop stopped")

// RunLoop is a FIFO task queue drained by one goroutine at a time.
type RunLoop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake  chan struct{}
	done  chan struct{}
	owner atomic.Int64 // goroutine id currently draining, 0 when idle
}

// New creates an idle RunLoop.
func New() *RunLoop {
	return &RunLoop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch queues fn. It reports false, dropping fn, once the loop is stopped.
func (r *RunLoop) Dispatch(fn func()) bool {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, fn)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// DispatchAndWait runs fn on the loop and waits for it to finish. Called from
// the loop goroutine itself it runs fn inline. It must never be used by code
// the loop might be waiting on.
func (r *RunLoop) DispatchAndWait(fn func()) error {
	if r.IsCurrent() {
		fn()
		return nil
	}

	ran := make(chan struct{})
	if !r.Dispatch(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}

	select {
	case <-ran:
		return nil
	case <-r.done:
		// Stop drains accepted work, so fn may still have run.
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	}
}

// IsCurrent reports whether the calling goroutine is the one draining the loop.
func (r *RunLoop) IsCurrent() bool {
	owner := r.owner.Load()
	return owner != 0 && owner == goid.Get()
}

// Done is closed once the loop has stopped and drained its queue.
func (r *RunLoop) Done() <-chan struct{} {
	return r.done
}

// Stop refuses further work. Tasks already queued still run before Run returns.
func (r *RunLoop) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until Stop is called or ctx is cancelled. It returns
// ErrStopped after Stop and ctx.Err() on cancellation.
func (r *RunLoop) Run(ctx context.Context) error {
	for {
		r.RunPending()

		r.mu.Lock()
		stopped := r.stopped && len(r.queue) == 0
		r.mu.Unlock()
		if stopped {
			r.finish()
			return ErrStopped
		}

		select {
		case <-ctx.Done():
			r.Stop()
			r.RunPending()
			r.finish()
			return ctx.Err()
		case <-r.wake:
		}
	}
}

func (r *RunLoop) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// RunPending executes queued tasks, including tasks they queue, until the
// queue is empty. It returns the number of tasks run.
func (r *RunLoop) RunPending() int {
	prev := r.owner.Swap(goid.Get())
	defer r.owner.Store(prev)

	ran := 0
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Pending returns the number of queued tasks.
func (r *RunLoop) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}
