package pipecheck

import (
	"fmt"
	"sync"
	"time"
)

// task is the background execution unit backing producers and consumers: one
// goroutine, a stop signal, and a deferred error surfaced at join. The
// owning actor writes, everyone else only reads.
type task struct {
	name     string
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	started  bool
	err      error
}

func newTask(name string) *task {
	return &task{
		name: name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// start launches fn in the background. fn must return once stop is closed.
func (t *task) start(fn func(stop <-chan struct{}) error) {
	t.started = true
	go func() {
		t.err = fn(t.stop)
		close(t.done)
	}()
}

// requestStop signals fn to wind down. Safe to call more than once.
func (t *task) requestStop() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// join blocks until the background goroutine terminates and returns its
// deferred error. A task that was never started joins immediately. The
// timeout bounds join so a wedged actor cannot leak across runs.
func (t *task) join(timeout time.Duration) error {
	if !t.started {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	case <-time.After(timeout):
		return fmt.Errorf("%s: %w", t.name, ErrJoinTimeout)
	}
}
