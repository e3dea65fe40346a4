// File: core/buffer/chunk.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

// Chunk is a value-like view into a ManagedBuffer: an address/length span
// plus the element size (Dtype) it should be interpreted at, and a count
// of forward-chained buffers this chunk has absorbed (NextBuffersCount),
// used by the accumulator to replay ManagedBuffer.Next() links when it
// restores chain entries after amalgamation (§4.2, I-A3).
type Chunk struct {
	Managed          *ManagedBuffer
	Address          uint64
	Length           uint64
	Dtype            uint64 // element size in bytes; 0 means byte-granular
	NextBuffersCount int
}

// Empty reports whether this chunk carries zero bytes. An empty chunk may
// still reference a ManagedBuffer (the spec permits this explicitly).
func (c Chunk) Empty() bool { return c.Length == 0 }

// End returns the address one past the last byte of this chunk.
func (c Chunk) End() uint64 { return c.Address + c.Length }

// Alias returns the address this chunk would wrap to if its ManagedBuffer's
// underlying SharedBuffer is doubly mapped, or 0 otherwise.
func (c Chunk) Alias() uint64 {
	if c.Managed == nil {
		return 0
	}
	sb := c.Managed.Buffer()
	if !sb.HasAlias() {
		return 0
	}
	return sb.Alias
}

// Bytes returns the live byte view this chunk addresses.
func (c Chunk) Bytes() []byte {
	if c.Managed == nil {
		return nil
	}
	sb := c.Managed.Buffer()
	return sb.Mem[c.Address : c.Address+c.Length]
}

// Contiguous reports whether chunk b immediately follows chunk f: either by
// plain address adjacency, or because f's buffer is doubly mapped and b
// begins at f's alias address (a circular-buffer wrap).
func Contiguous(f, b Chunk) bool {
	if b.Address == f.End() {
		return true
	}
	if alias := f.Alias(); alias != 0 && b.Address == alias {
		return true
	}
	return false
}

// SameManagedBuffer reports whether two chunks view the same underlying
// ManagedBuffer — used to decide whether a now-empty chunk adjacent to
// another view of the same buffer should be dropped outright (§4.2).
func SameManagedBuffer(a, b Chunk) bool {
	return a.Managed != nil && a.Managed == b.Managed
}
