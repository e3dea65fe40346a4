// File: core/buffer/managed_buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "sync/atomic"

// Manager is the back-reference a ManagedBuffer holds to whatever
// BufferManager issued it, used only at the terminal refcount drop to
// return the buffer to its free list. The spec models this as a weak
// reference so a manager's teardown never blocks on outstanding buffers;
// in Go the GC already makes that safe, so this is a plain interface
// reference — if the manager has already been discarded, Push becomes a
// no-op by contract of whoever implements BufferManager (see generic_pool.go
// and circular_pool.go).
type Manager interface {
	Push(*ManagedBuffer)
}

// ManagedBuffer pairs a SharedBuffer with reference counting, a back link
// to its issuing manager, its slab index within that manager's arena, and
// an optional forward link used by the accumulator to walk a contiguous
// chain (I-A3) without re-deriving adjacency from raw addresses alone.
type ManagedBuffer struct {
	buffer     SharedBuffer
	manager    Manager
	slabIndex  int
	refCount   atomic.Int64
	next       atomic.Pointer[ManagedBuffer]
}

// NewManagedBuffer wraps buf, owned by mgr at the given slab index, with an
// initial reference count of one.
func NewManagedBuffer(buf SharedBuffer, mgr Manager, slabIndex int) *ManagedBuffer {
	mb := &ManagedBuffer{buffer: buf, manager: mgr, slabIndex: slabIndex}
	mb.refCount.Store(1)
	return mb
}

// Buffer returns the underlying SharedBuffer.
func (mb *ManagedBuffer) Buffer() SharedBuffer { return mb.buffer }

// SlabIndex returns this buffer's position within its manager's arena.
func (mb *ManagedBuffer) SlabIndex() int { return mb.slabIndex }

// Next returns the forward link to the next contiguous buffer in a chain,
// or nil. Installed with SetNext by whoever builds the chain; the
// accumulator only reads it.
func (mb *ManagedBuffer) Next() *ManagedBuffer { return mb.next.Load() }

// SetNext installs the forward chain link.
func (mb *ManagedBuffer) SetNext(n *ManagedBuffer) { mb.next.Store(n) }

// Incr adds one reference. Relaxed ordering: a new reference is always
// acquired from a context that already observed a live buffer (the caller
// holds one already, or holds the manager's lock), so no synchronization
// with a concurrent decrement to zero is required here.
func (mb *ManagedBuffer) Incr() {
	mb.refCount.Add(1)
}

// Decr releases one reference. Uses acquire-release semantics: this is an
// atomic add (acts as a release so writes made under this reference happen
// before any later reclaimer sees the drop to zero), and on the terminal
// drop the manager's Push call happens only after that release — the free
// list itself provides the matching acquire for whoever pops the buffer
// next, per the global invariant that a zero refcount implies no live
// holder (§3 invariant iii).
func (mb *ManagedBuffer) Decr() {
	if mb.refCount.Add(-1) == 0 {
		mb.cleanup()
	}
}

// RefCount reports the current reference count, for testing/introspection.
func (mb *ManagedBuffer) RefCount() int64 { return mb.refCount.Load() }

func (mb *ManagedBuffer) cleanup() {
	mb.next.Store(nil)
	if mb.manager != nil {
		mb.manager.Push(mb)
	}
}
