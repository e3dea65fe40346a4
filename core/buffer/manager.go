// File: core/buffer/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// BufferManager is the pool contract shared by GenericPool and
// CircularPool (§4.1). Push must be safe to call from any thread: the
// terminal reference drop that triggers it may happen on any goroutine
// holding the last reference, not just the one that called Pop.
type BufferManager interface {
	// Pop returns a free buffer, or ok=false if the manager is exhausted.
	Pop() (mb *ManagedBuffer, ok bool)
	// Push returns mb to the free list. Called automatically by
	// ManagedBuffer.Decr on the terminal reference drop.
	Push(mb *ManagedBuffer)
	// Front returns the chunk currently available for writing.
	Front() Chunk
	// Empty reports whether the manager has no free buffers left.
	Empty() bool
}
