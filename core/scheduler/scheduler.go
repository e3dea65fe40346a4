// File: core/scheduler/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package scheduler implements the Scheduler component (C5, §4.5): a
// thread pool polling a set of blocks round-robin through their
// WorkerActor, running work() when the runnable predicate holds, and
// performing end-of-work propagation (§4.3) afterward.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/internal/concurrency"
)

// YieldMode selects how a worker thread behaves when it finds nothing
// runnable (§4.5's configuration field).
type YieldMode int

const (
	// YieldSpin busy-polls the next actor with no backoff.
	YieldSpin YieldMode = iota
	// YieldHybrid escalates to wait-enabled acquires after a threshold of
	// unsuccessful polls.
	YieldHybrid
	// YieldCooperative additionally schedules an explicit wake-up timer
	// for a block that yielded with a timeout, instead of relying on the
	// next round-robin pass to notice the deadline has passed.
	YieldCooperative
)

// defaultPollThreshold is how many consecutive unproductive polls of one
// actor escalate a hybrid/cooperative-mode poll to wait-enabled.
const defaultPollThreshold = 16

// defaultMaxTimeoutNs is the WorkInfo.MaxTimeoutNs handed to work() when the
// caller doesn't configure one explicitly.
const defaultMaxTimeoutNs = uint64(10 * time.Millisecond)

// Config configures a Scheduler (§4.5: "{num_threads, affinity_mask?,
// yield_mode, priority?}").
type Config struct {
	NumThreads int

	// AffinityMask lists CPU core indices, one per worker thread
	// (wrapping if shorter than NumThreads). Empty means no pinning.
	AffinityMask []int
	// NUMANode is passed alongside each AffinityMask entry; -1 means
	// unspecified (the platform backend picks a default).
	NUMANode int

	YieldMode     YieldMode
	PollThreshold int
	Priority      int

	DefaultTimeoutNs uint64

	// Logger receives WARN-level block work errors (§7, §10.1). Nil falls
	// back to zap.NewNop().
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.NumThreads <= 0 {
		c.NumThreads = 1
	}
	if c.PollThreshold <= 0 {
		c.PollThreshold = defaultPollThreshold
	}
	if c.DefaultTimeoutNs == 0 {
		c.DefaultTimeoutNs = defaultMaxTimeoutNs
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// blockState is the scheduler's per-block bookkeeping: poll-failure streak
// (drives wait_enabled escalation) and a pending yield deadline (§5).
type blockState struct {
	blk         *block.Block
	failedPolls atomic.Int32
	yieldUntil  atomic.Int64
}

// Scheduler owns a thread pool and a set of WorkerActors (§4.5).
type Scheduler struct {
	cfg    Config
	logger *zap.Logger
	timers TimerScheduler

	mu     sync.Mutex
	states []*blockState
	cursor int

	pool   *concurrency.ThreadPool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

// New returns a Scheduler that is not yet started; register blocks with Add
// before calling Start.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{cfg: cfg, logger: cfg.Logger, timers: NewTimerScheduler()}
}

// Add registers a block for round-robin polling. Safe to call before or
// after Start (the topology adds blocks as edges are committed, §4.6).
func (s *Scheduler) Add(b *block.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, &blockState{blk: b})
}

// Remove unregisters a block; subsequent polls skip it.
func (s *Scheduler) Remove(b *block.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, st := range s.states {
		if st.blk == b {
			s.states = append(s.states[:i], s.states[i+1:]...)
			return
		}
	}
}

// Start launches the configured worker thread pool. Each thread runs an
// independent round-robin poll loop over the currently registered blocks.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pool = concurrency.NewThreadPool(s.cfg.NumThreads, s.cfg.NUMANode)

	for i := 0; i < s.cfg.NumThreads; i++ {
		threadIdx := i
		s.wg.Add(1)
		_ = s.pool.Submit(func() { s.workerLoop(threadIdx) })
	}
}

// Shutdown cancels every worker loop (§4.5's "deactivate sets a
// cancellation flag on the scheduler"), wakes any actor blocked in a
// wait-enabled acquire so pending external calls observe cancellation
// rather than waiting out their timeout, and waits for all worker threads
// to exit or ctx to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	for _, st := range s.states {
		st.blk.Actor().WakeNoChange()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.pool.Close()
	s.started.Store(false)
	return nil
}

func (s *Scheduler) workerLoop(threadIdx int) {
	defer s.wg.Done()

	if len(s.cfg.AffinityMask) > 0 {
		aff := concurrency.NewThreadAffinity()
		cpu := s.cfg.AffinityMask[threadIdx%len(s.cfg.AffinityMask)]
		if err := aff.Pin(cpu, s.cfg.NUMANode); err != nil {
			s.logger.Warn("worker affinity pin failed",
				zap.Int("thread", threadIdx), zap.Int("cpu", cpu), zap.Error(err))
		} else {
			defer aff.Unpin()
		}
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		st := s.next()
		if st == nil {
			// no blocks registered yet; avoid a hot spin.
			time.Sleep(time.Millisecond)
			continue
		}
		s.pollOnce(st)
	}
}

func (s *Scheduler) next() *blockState {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.states)
	if n == 0 {
		return nil
	}
	st := s.states[s.cursor%n]
	s.cursor++
	return st
}

func (s *Scheduler) shouldWait(st *blockState) bool {
	if s.cfg.YieldMode == YieldSpin {
		return false
	}
	if st.blk.Actor().ExternalCallPending() {
		return true
	}
	return int(st.failedPolls.Load()) >= s.cfg.PollThreshold
}

// pollOnce implements one iteration of §4.5's per-thread loop for a single
// actor: acquire, check runnable, work, release, propagate.
func (s *Scheduler) pollOnce(st *blockState) {
	a := st.blk.Actor()
	waitEnabled := s.shouldWait(st)

	a.FlagInternalChange()
	if !a.WorkerThreadAcquire(waitEnabled) {
		st.failedPolls.Add(1)
		return
	}

	ok, info := s.runnable(st)
	if !ok {
		a.WorkerThreadRelease()
		st.failedPolls.Add(1)
		return
	}
	st.failedPolls.Store(0)
	st.yieldUntil.Store(0)

	err := st.blk.Work(info)

	if ns, yielded := st.blk.TakeYield(); yielded {
		s.scheduleYield(st, ns)
	}

	// end-of-work propagation (§4.3) runs under the same exclusive
	// acquisition as Work() itself: it mutates the block's own port state.
	s.finalize(st.blk)

	// Deactivation on error must happen before the actor lock is released:
	// Deactivate() doesn't take the actor lock itself, so releasing first
	// would let another worker thread's WorkerThreadAcquire succeed and run
	// Work() concurrently with this block's teardown hook.
	if err != nil {
		st.blk.RecordWorkError()
		s.logger.Warn("block work failed, deactivating", zap.String("block", st.blk.ID()), zap.Error(err))
		s.Remove(st.blk)
		if dErr := st.blk.Deactivate(); dErr != nil {
			s.logger.Error("deactivate after work error failed",
				zap.String("block", st.blk.ID()), zap.Error(dErr))
		}
	}

	a.WorkerThreadRelease()
}

// scheduleYield records the yield deadline every mode checks in runnable,
// and in cooperative mode additionally arms a timer that flags the actor
// the instant the deadline elapses instead of waiting for the next
// round-robin pass to notice.
func (s *Scheduler) scheduleYield(st *blockState, timeoutNs uint64) {
	st.yieldUntil.Store(time.Now().Add(time.Duration(timeoutNs)).UnixNano())

	if s.cfg.YieldMode != YieldCooperative {
		return
	}
	_, _ = s.timers.Schedule(int64(timeoutNs), func() {
		st.blk.Actor().FlagInternalChange()
	})
}

// finalize performs the end-of-work propagation sequence (§4.3): drop and
// propagate each input port's newly consumed labels, then finalize every
// output port (inline substitution, label/buffer/message forwarding, fresh
// write buffer).
func (s *Scheduler) finalize(b *block.Block) {
	for _, in := range b.Inputs() {
		labels := in.DrainConsumedLabels()
		if len(labels) > 0 {
			b.PropagateLabels(in, labels)
		}
	}
	for _, out := range b.Outputs() {
		out.FinalizeWork()
	}
}
