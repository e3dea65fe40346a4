// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatching tasks through a mutex-guarded eapache/queue FIFO;
// the NUMA node argument is not used for placement.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

type TaskFunc func()

type Executor struct {
	// qmu guards queue: eapache/queue.Queue is explicitly not thread-safe,
	// and Submit/worker.run reach it from arbitrary goroutines.
	qmu   sync.Mutex
	queue *queue.Queue

	mu      sync.Mutex
	workers []worker
	stop    chan struct{}
}

// enqueue adds task to the task queue. Safe for concurrent use.
func (e *Executor) enqueue(task TaskFunc) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	e.queue.Add(task)
}

// dequeue removes and returns the oldest pending task, or ok=false if the
// queue is currently empty.
func (e *Executor) dequeue() (TaskFunc, bool) {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	if e.queue.Length() == 0 {
		return nil, false
	}
	return e.queue.Remove().(TaskFunc), true
}

// NumWorkers reports the current worker goroutine count.
func (e *Executor) NumWorkers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.workers)
}

// Resize grows the worker pool to newCount goroutines. Shrinking isn't
// supported: every worker shares one stop channel for pool-wide shutdown,
// so there is no per-worker signal to retire an individual goroutine.
func (e *Executor) Resize(newCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.workers) < newCount {
		w := worker{exec: e}
		go w.run()
		e.workers = append(e.workers, w)
	}
}

type worker struct {
	exec *Executor
}

func NewExecutor(numWorkers, numaNode int) *Executor {
	e := &Executor{
		queue: queue.New(),
		stop:  make(chan struct{}),
	}
	e.Resize(numWorkers)
	return e
}

func (e *Executor) Submit(task TaskFunc) error {
	select {
	case <-e.stop:
		return ErrExecutorClosed
	default:
		e.enqueue(task)
		return nil
	}
}

func (e *Executor) Close() {
	close(e.stop)
}

func (w *worker) run() {
	for {
		select {
		case <-w.exec.stop:
			return
		default:
			if task, ok := w.exec.dequeue(); ok {
				task()
			}
		}
	}
}
