// File: internal/concurrency/lock_free_queue.go
// Package concurrency provides a lock-free queue for executors.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded MPMC ring buffer using per-slot sequence numbers (Dmitry Vyukov's
// pattern), same technique as RingBuffer in ring.go.

package concurrency

import "sync/atomic"

// lockFreeQueue is a bounded multi-producer/multi-consumer ring buffer.
type lockFreeQueue[T any] struct {
	head  uint64
	_     [64]byte
	tail  uint64
	_     [64]byte
	mask  uint64
	cells []lfqCell[T]
}

type lfqCell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// NewLockFreeQueue creates a new queue with capacity rounded to power of two.
func NewLockFreeQueue[T any](capacity int) *lockFreeQueue[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &lockFreeQueue[T]{
		mask:  uint64(size - 1),
		cells: make([]lfqCell[T], size),
	}
	for i := range q.cells {
		q.cells[i].sequence.Store(uint64(i))
	}
	return q
}

// Enqueue adds val; returns false if full.
func (q *lockFreeQueue[T]) Enqueue(val T) bool {
	for {
		tail := atomic.LoadUint64(&q.tail)
		c := &q.cells[tail&q.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(tail); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		case diff < 0:
			return false // full: this slot hasn't been freed by a consumer yet
		}
		// else: tail moved under us, retry
	}
}

// Dequeue removes and returns an item; ok false if empty.
func (q *lockFreeQueue[T]) Dequeue() (item T, ok bool) {
	for {
		head := atomic.LoadUint64(&q.head)
		c := &q.cells[head&q.mask]
		seq := c.sequence.Load()
		switch diff := int64(seq) - int64(head+1); {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				item = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + q.mask + 1)
				return item, true
			}
		case diff < 0:
			var zero T
			return zero, false // empty: this slot hasn't been filled by a producer yet
		}
		// else: head moved under us, retry
	}
}
