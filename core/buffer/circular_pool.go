// File: core/buffer/circular_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "sync"

// CircularPool is a BufferManager backed by a single slab followed by a
// mirror half of the same size (§4.1), so a write or read that straddles
// the end of the logical buffer sees contiguous bytes through the mirror
// with no modulo arithmetic. The mirror is a separate copy, not a second
// mapping of the same pages: Advance copies between the two halves after
// each write. The pool's single ManagedBuffer has Alias equal to its
// Length (the capacity).
//
// Unlike GenericPool, a circular manager has exactly one logical buffer in
// flight at a time: Front always describes the same underlying region,
// advancing only in its write cursor.
type CircularPool struct {
	mu       sync.Mutex
	arena    []byte // length == 2*capacity; [capacity:2*capacity] is a copy of [0:capacity] kept in step by Advance
	capacity uint64
	writeOff uint64 // next byte offset to hand out, mod capacity
	current  *ManagedBuffer
}

// NewCircularPool allocates a slab of the given capacity and reserves a
// mirror region twice its size. PothosCore's original maps one physical
// slab twice into consecutive virtual pages so the mirror is always
// coherent for free; that trick needs a platform-specific raw mmap(addr,
// MAP_FIXED) call with no portable Go equivalent across the targets this
// core builds for. Simplified implementation: keep one real backing slice
// and an explicit mirror half that Advance re-synchronizes on every wrap,
// which gives the same contiguous-read-across-the-wrap contract at the
// cost of a small copy at write-wrap time instead of at read time.
func NewCircularPool(capacity uint64) (*CircularPool, error) {
	arena := make([]byte, 2*capacity)
	cp := &CircularPool{arena: arena, capacity: capacity}
	return cp, nil
}

// Front returns the chunk currently available for writing: up to capacity
// bytes starting at the write cursor, viewed through the mirrored arena so
// it never needs to be split at the physical end.
func (cp *CircularPool) Front() Chunk {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.frontLocked()
}

func (cp *CircularPool) frontLocked() Chunk {
	off := cp.writeOff % cp.capacity
	mb := cp.bufferLocked()
	return Chunk{
		Managed: mb,
		Address: off,
		Length:  cp.capacity,
		Dtype:   0,
	}
}

// bufferLocked lazily creates the single ManagedBuffer wrapping this pool's
// arena, with Alias set so Chunk.Alias()/Contiguous() can detect wraps.
func (cp *CircularPool) bufferLocked() *ManagedBuffer {
	if cp.current == nil {
		sb := SharedBuffer{
			Mem:     cp.arena,
			Address: 0,
			Length:  cp.capacity,
			Alias:   cp.capacity,
		}
		cp.current = NewManagedBuffer(sb, cp, 0)
	}
	return cp.current
}

// Advance moves the write cursor forward by n bytes, wrapping modulo
// capacity, and re-synchronizes the mirror half so a read that spans the
// wrap still sees contiguous, up-to-date bytes.
func (cp *CircularPool) Advance(n uint64) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	// bytes of this write that landed past the physical end sit in the
	// mirror half; move them to the low half before refreshing the mirror
	start := cp.writeOff % cp.capacity
	end := start + n
	if end > 2*cp.capacity {
		end = 2 * cp.capacity
	}
	if end > cp.capacity {
		copy(cp.arena[:end-cp.capacity], cp.arena[cp.capacity:end])
	}
	cp.writeOff += n
	copy(cp.arena[cp.capacity:2*cp.capacity], cp.arena[:cp.capacity])
}

// Pop always returns the single wraparound buffer with ref count bumped;
// CircularPool has no discrete free-list of slabs since there is only ever
// one logical buffer.
func (cp *CircularPool) Pop() (*ManagedBuffer, bool) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	mb := cp.bufferLocked()
	mb.Incr()
	return mb, true
}

// Push is a no-op beyond releasing the caller's reference: the slab itself
// is never freed back to an OS-level list, only reused in place.
func (cp *CircularPool) Push(mb *ManagedBuffer) {}

// Empty is always false: a circular manager always has capacity bytes of
// logical space, by construction.
func (cp *CircularPool) Empty() bool { return false }

// Capacity reports the logical (single-mapping) size of this pool's slab.
func (cp *CircularPool) Capacity() uint64 { return cp.capacity }

var (
	_ BufferManager = (*CircularPool)(nil)
	_ Manager       = (*CircularPool)(nil)
)
