package fdtest

import (
	"context"
	"time"

	"go.uber.org/atomic"
)

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Transport and Scheduler only touch their state
// from callbacks delivered by their Clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop runs posted tasks one at a time on the goroutine that calls Run.
// Its timers deliver their callbacks as tasks, so the transport watchdog and
// the display tick never interleave.
type Loop struct {
	tasks chan func()
	quit  chan struct{}
	done  *atomic.Bool
}

func NewLoop(size int) *Loop {
	return &Loop{
		tasks: make(chan func(), size),
		quit:  make(chan struct{}),
		done:  atomic.NewBool(false),
	}
}

// Post queues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	if l.done.Load() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.quit:
		return false
	}
}

// Run executes tasks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if l.done.CompareAndSwap(false, true) {
			close(l.quit)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc arms a timer whose callback runs on the loop. A callback that
// fires after Stop is dropped.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{stopped: atomic.NewBool(false)}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.stopped.Load() {
				return
			}
			lt.stopped.Store(true)
			fn()
		})
	})
	return lt
}

type loopTimer struct {
	t       *time.Timer
	stopped *atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	wasActive := !lt.stopped.Swap(true)
	lt.t.Stop()
	return wasActive
}
