// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool wraps Executor and its mutex-guarded task queue.

package concurrency

import "github.com/momentics/flowcore/api"

type ThreadPool struct {
	executor *Executor
}

func NewThreadPool(size, numaNode int) *ThreadPool {
	return &ThreadPool{
		executor: NewExecutor(size, numaNode),
	}
}

func (tp *ThreadPool) Submit(f func()) error {
	return tp.executor.Submit(f)
}

// NumWorkers reports the current worker goroutine count.
func (tp *ThreadPool) NumWorkers() int { return tp.executor.NumWorkers() }

// Resize grows the pool to newCount worker goroutines (see Executor.Resize
// for why shrinking isn't supported).
func (tp *ThreadPool) Resize(newCount int) { tp.executor.Resize(newCount) }

func (tp *ThreadPool) Close() {
	tp.executor.Close()
}

var _ api.Executor = (*ThreadPool)(nil)
