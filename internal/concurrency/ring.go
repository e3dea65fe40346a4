// File: internal/concurrency/ring.go
// Package concurrency implements lock-free ring buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer with atomic head/tail,
// padded to prevent false sharing.
// Implements api.Ring for cross-package consistency.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/flowcore/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*RingBuffer[any])(nil)

// cell is one slot of the ring: seq publishes whether it currently holds a
// value a consumer may take (seq == pos+1) or is free for a producer to
// fill (seq == pos), per Dmitry Vyukov's bounded MPMC queue design. This is
// what makes the queue safe for multiple concurrent producers/consumers:
// a reserved-but-not-yet-written slot is never visible to a dequeuer.
type cell[T any] struct {
	seq atomic.Uint64
	val T
}

// RingBuffer is a lock-free, bounded, multi-producer/multi-consumer ring
// buffer.
type RingBuffer[T any] struct {
	mask       uint64
	buf        []cell[T]
	enqueuePos atomic.Uint64
	_          [64]byte // Padding for hot/cold separation
	dequeuePos atomic.Uint64
	_          [64]byte // Padding to separate dequeuePos from other data
}

// NewRingBuffer allocates a ring buffer of power-of-two size.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	if size == 0 || size&(size-1) != 0 {
		panic("size must be power of two")
	}
	r := &RingBuffer[T]{
		mask: size - 1,
		buf:  make([]cell[T], size),
	}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// Enqueue adds item; returns false if full. Safe for any number of
// concurrent producers and consumers.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	pos := r.enqueuePos.Load()
	for {
		c := &r.buf[pos&r.mask]
		seq := c.seq.Load()
		switch diff := int64(seq) - int64(pos); {
		case diff == 0:
			if r.enqueuePos.CompareAndSwap(pos, pos+1) {
				c.val = item
				c.seq.Store(pos + 1)
				return true
			}
			pos = r.enqueuePos.Load()
		case diff < 0:
			return false // full: this slot hasn't been freed by a consumer yet
		default:
			pos = r.enqueuePos.Load()
		}
	}
}

// Dequeue removes and returns item; ok false if empty.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	pos := r.dequeuePos.Load()
	for {
		c := &r.buf[pos&r.mask]
		seq := c.seq.Load()
		switch diff := int64(seq) - int64(pos+1); {
		case diff == 0:
			if r.dequeuePos.CompareAndSwap(pos, pos+1) {
				item := c.val
				var zero T
				c.val = zero
				c.seq.Store(pos + r.mask + 1)
				return item, true
			}
			pos = r.dequeuePos.Load()
		case diff < 0:
			var zero T
			return zero, false // empty: this slot hasn't been filled by a producer yet
		default:
			pos = r.dequeuePos.Load()
		}
	}
}

// Len returns an approximate number of items currently in the buffer. Under
// concurrent access this is a point-in-time estimate, not an exact count.
func (r *RingBuffer[T]) Len() int {
	enq := r.enqueuePos.Load()
	deq := r.dequeuePos.Load()
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.buf)
}
