package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Task is a cancellable periodic job started by Schedule.
type Task struct {
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}

	mu      sync.Mutex
	runs    int
	lastErr error
}

// Schedule runs fn once immediately and then every interval until ctx ends
// or Stop is called. A non-positive interval runs fn only at start and on
// Trigger. Runs never overlap.
func Schedule(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel:  cancel,
		done:    make(chan struct{}),
		trigger: make(chan struct{}, 1),
	}
	go t.loop(ctx, clock, interval, fn)
	return t
}

func (t *Task) loop(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(context.Context) error) {
	defer close(t.done)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := clock.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	t.run(ctx, fn)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			t.run(ctx, fn)
		case <-t.trigger:
			t.run(ctx, fn)
		}
	}
}

func (t *Task) run(ctx context.Context, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	err := fn(ctx)
	t.mu.Lock()
	t.runs++
	t.lastErr = err
	t.mu.Unlock()
}

// Trigger requests an extra run as soon as the current one finishes.
// Requests made while one is already pending are coalesced.
func (t *Task) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the task and waits for it to exit.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the task has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Runs returns how many times fn has run.
func (t *Task) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

// LastError returns the error from the most recent run.
func (t *Task) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}
