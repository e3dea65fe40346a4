// File: core/buffer/shared_buffer.go
// Package buffer implements the reference-counted shared/managed buffer
// model (C1): SharedBuffer, ManagedBuffer, BufferChunk, and the two
// concrete BufferManager pools (generic slab, circular double-mapped).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// SharedBuffer is an owned contiguous memory region. Address is expressed
// as a byte offset into Mem rather than a raw pointer: Go slices already
// carry bounds-checked backing storage, so "address" here means "offset
// within the allocation this SharedBuffer was carved from", which is all
// the accumulator/chunk contiguity arithmetic actually needs.
//
// Alias is non-zero only for slabs served by CircularPool: it mirrors
// Address+Length into a second virtual mapping of the same physical pages,
// so a read spanning the end-of-buffer sees contiguous bytes with no copy.
type SharedBuffer struct {
	Mem     []byte
	Address uint64
	Length  uint64
	Alias   uint64 // 0 if this slab is not doubly-mapped
}

// Bytes returns the live view of this region: Mem[Address : Address+Length].
func (s SharedBuffer) Bytes() []byte {
	return s.Mem[s.Address : s.Address+s.Length]
}

// HasAlias reports whether this region was carved from a doubly-mapped
// circular slab.
func (s SharedBuffer) HasAlias() bool { return s.Alias != 0 }
