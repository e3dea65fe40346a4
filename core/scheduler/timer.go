// File: core/scheduler/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import (
	"sync"
	"time"

	"github.com/momentics/flowcore/api"
	"github.com/momentics/flowcore/core/errs"
)

// timerHandle implements api.Cancelable for one scheduled callback.
type timerHandle struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

func (h *timerHandle) fire(fn func()) {
	fn()
	h.once.Do(func() { close(h.done) })
}

// Cancel stops the timer if it hasn't fired yet. Cancel on an already-fired
// or already-canceled timer is a no-op.
func (h *timerHandle) Cancel() error {
	if h.timer.Stop() {
		h.mu.Lock()
		h.err = errs.New(errs.KindCancelled, "timer cancelled before firing")
		h.mu.Unlock()
		h.once.Do(func() { close(h.done) })
	}
	return nil
}

func (h *timerHandle) Done() <-chan struct{} { return h.done }

func (h *timerHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// TimerScheduler implements api.Scheduler with a plain time.AfterFunc per
// callback. It backs the scheduler's cooperative yield mode (§5): rather
// than spin-polling a yielded block's deadline on every round-robin pass,
// a timer flags the block's actor the instant its timeout elapses.
type TimerScheduler struct{}

// NewTimerScheduler returns a TimerScheduler.
func NewTimerScheduler() TimerScheduler { return TimerScheduler{} }

// Schedule runs fn once after delayNanos.
func (TimerScheduler) Schedule(delayNanos int64, fn func()) (api.Cancelable, error) {
	if delayNanos < 0 {
		return nil, errs.New(errs.KindInvalidArgument, "negative delay")
	}
	h := &timerHandle{done: make(chan struct{})}
	h.timer = time.AfterFunc(time.Duration(delayNanos), func() { h.fire(fn) })
	return h, nil
}

// Cancel aborts a previously scheduled callback.
func (TimerScheduler) Cancel(c api.Cancelable) error { return c.Cancel() }

// Now returns monotonic wall-clock time in nanoseconds.
func (TimerScheduler) Now() int64 { return time.Now().UnixNano() }

var _ api.Scheduler = TimerScheduler{}
