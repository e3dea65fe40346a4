// File: core/accumulator/accumulator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package accumulator implements the BufferAccumulator component (§4.2): a
// queue of BufferChunks that amalgamates contiguous chunks on push, tracks
// total bytes available, and can synthesize a single contiguous front chunk
// on demand for callers that require a minimum run length.
package accumulator

import "github.com/momentics/flowcore/core/buffer"

// requirePoolMinAlloc is the smallest chunk Require will synthesize, so a
// string of small require() calls for slowly growing sizes doesn't force a
// fresh allocation on every call.
const requirePoolMinAlloc = 4096

// Accumulator amalgamates pushed BufferChunks into the largest possible
// contiguous front span and supports consuming bytes from that front.
//
// The backing queue is a plain slice used as a deque (push/pop at both
// ends). The original push/pop/require algorithm needs indexed read-and-
// mutate access into the middle of the queue (amalgamating chunk i into
// chunk i-1) as well as push-front and pop-back, none of which a FIFO-only
// ring buffer exposes — see DESIGN.md for why this rules out this core's
// usual queue dependency for this one component.
type Accumulator struct {
	q              []buffer.Chunk
	bytesAvailable uint64
	inPoolBuffer   bool
}

// New returns an Accumulator holding a single empty sentinel chunk, so the
// queue is never observably empty (I-A1).
func New() *Accumulator {
	a := &Accumulator{}
	a.q = append(a.q, buffer.Chunk{})
	return a
}

// Clear discards all queued chunks and resets byte accounting, releasing
// each chunk's ManagedBuffer reference (mirroring the original's queue
// destructor running over every still-queued BufferChunk).
func (a *Accumulator) Clear() {
	for _, c := range a.q {
		releaseChunk(c)
	}
	a.q = a.q[:0]
	a.bytesAvailable = 0
	a.inPoolBuffer = false
	a.q = append(a.q, buffer.Chunk{})
}

// releaseChunk drops this accumulator's reference to chunk's ManagedBuffer,
// if any. Every chunk held in a.q carries its own independent reference
// (acquired either by the original producer, for the chunk passed to Push,
// or by releaseChunk's counterpart Incr in Push's forward-chain bookkeeping
// below); this is the matching release for whichever acquired it, called
// only once a chunk is permanently removed from the queue.
func releaseChunk(c buffer.Chunk) {
	if c.Managed != nil {
		c.Managed.Decr()
	}
}

// BytesAvailable reports the total bytes currently held across all chunks.
func (a *Accumulator) BytesAvailable() uint64 { return a.bytesAvailable }

// Front returns the chunk at the head of the queue: the contiguous span an
// input port's elements()/buffer() accessors are defined against (§4.3).
func (a *Accumulator) Front() buffer.Chunk { return a.q[0] }

// Push appends chunk to the queue and amalgamates it as far as possible
// into the preceding contiguous run (I-A2), then replays any forward-chained
// ManagedBuffer links the chunk carried as zero-length queue entries (I-A3),
// so a later push extending one of those links can still amalgamate with it.
func (a *Accumulator) Push(chunk buffer.Chunk) {
	a.bytesAvailable += chunk.Length

	nexts := chunk.NextBuffersCount
	nextMB := chunk.Managed

	// remove a dummy empty sentinel from the front before appending
	if len(a.q) > 0 && a.q[0].Length == 0 {
		releaseChunk(a.q[0])
		a.q = a.q[1:]
	}

	a.q = append(a.q, chunk)
	backIndex := len(a.q) - 1

	if len(a.q) >= 2 {
		// walk backward, merging each chunk as far forward as it reaches
		for i := backIndex; i >= 1; i-- {
			b := &a.q[i]
			f := &a.q[i-1]
			fEnd := f.End()
			if b.Address == fEnd || b.Alias() == fEnd {
				f.Length += b.Length
				b.Address += b.Length
				b.Length = 0
			} else {
				break
			}
		}

		// a fully-absorbed back chunk of the same buffer as its
		// predecessor can be dropped outright rather than kept as a
		// zero-length entry
		b := a.q[backIndex]
		f := a.q[backIndex-1]
		if buffer.SameManagedBuffer(b, f) && b.Length == 0 {
			releaseChunk(b)
			a.q = a.q[:backIndex]
		}
	}

	for i := 0; i < nexts; i++ {
		if nextMB == nil {
			break
		}
		nextMB = nextMB.Next()
		if nextMB == nil {
			break
		}
		// This placeholder is a new, independent handle on nextMB distinct
		// from whatever reference the chain's original owner holds, so it
		// needs its own Incr to match the Decr releaseChunk will issue once
		// it is dropped from the queue.
		nextMB.Incr()
		a.q = append(a.q, buffer.Chunk{Managed: nextMB, Length: 0})
	}

	if len(a.q) == 0 {
		a.q = append(a.q, buffer.Chunk{})
	}
}

// Pop consumes numBytes from the front of the queue, dropping and merging
// chunks as their contents are fully consumed (I-A4). Callers must hold at
// least numBytes (BytesAvailable() >= numBytes) before calling.
func (a *Accumulator) Pop(numBytes uint64) {
	a.bytesAvailable -= numBytes

	a.q[0].Address += numBytes
	a.q[0].Length -= numBytes
	queueSize := len(a.q)

	switch {
	// the front buffer came from Require's synthesis pool and the
	// remainder fits entirely within the bytes already absorbed by
	// queue[1]: drop the synthesized front, extending queue[1] backward.
	case a.inPoolBuffer && len(a.q) > 1 &&
		a.q[0].Length <= (a.q[1].Address-bufferAddress(a.q[1])):
		releaseChunk(a.q[0])
		a.q[1].Address -= a.q[0].Length
		a.q[1].Length += a.q[0].Length
		a.q = a.q[1:]

	case a.q[0].Length == 0:
		releaseChunk(a.q[0])
		a.q = a.q[1:]

	case len(a.q) > 1:
		// the front chunk ran past the end of its underlying buffer and
		// is contiguous with the next chunk: fold it forward.
		f := a.q[0]
		b := &a.q[1]
		fOverBounds := f.Address >= bufferEnd(f)
		if fOverBounds && f.End() == b.Address {
			b.Address -= f.Length
			b.Length += f.Length
			a.q = a.q[1:]
			releaseChunk(f)
		}
	}

	if a.inPoolBuffer && queueSize != len(a.q) {
		a.inPoolBuffer = false
	}

	for len(a.q) > 0 && a.q[0].Length == 0 {
		releaseChunk(a.q[0])
		a.q = a.q[1:]
	}
	if len(a.q) == 0 {
		a.q = append(a.q, buffer.Chunk{})
	}
}

// Require ensures the front chunk holds at least numBytes contiguous bytes,
// synthesizing a fresh buffer and copying the front of the queue into it if
// necessary. No-op if the front chunk is already large enough, or if the
// accumulator holds fewer bytes than required but could eventually grow to
// satisfy it from a single future buffer the same size as the current one.
func (a *Accumulator) Require(numBytes uint64) {
	if a.q[0].Length >= numBytes {
		return
	}
	if a.bytesAvailable < numBytes && len(a.q) == 1 && numBytes <= bufferLength(a.q[0]) {
		return
	}

	newChunk := a.allocate(numBytes)
	newChunk.Dtype = a.q[0].Dtype
	newBuf := newChunk.Bytes()
	newBuffBytes := newChunk.Length
	newChunk.Length = 0

	for len(a.q) > 0 {
		f := &a.q[0]
		copyBytes := minU64(newBuffBytes, f.Length)
		copy(newBuf[newChunk.Length:newChunk.Length+copyBytes], f.Bytes()[:copyBytes])
		newBuffBytes -= copyBytes
		newChunk.Length += copyBytes

		if f.Length == copyBytes {
			releaseChunk(*f)
			a.q = a.q[1:]
		} else {
			f.Length -= copyBytes
			f.Address += copyBytes
			break
		}
	}

	a.inPoolBuffer = true
	a.q = append([]buffer.Chunk{newChunk}, a.q...)
}

// UniqueManagedBufferCount reports how many distinct ManagedBuffers back the
// chunks currently queued, for debug/introspection use.
func (a *Accumulator) UniqueManagedBufferCount() int {
	seen := make(map[*buffer.ManagedBuffer]struct{}, len(a.q))
	for _, c := range a.q {
		if c.Managed == nil {
			continue
		}
		seen[c.Managed] = struct{}{}
	}
	return len(seen)
}

func (a *Accumulator) allocate(minBytes uint64) buffer.Chunk {
	size := minBytes
	if size < requirePoolMinAlloc {
		size = requirePoolMinAlloc
	}
	sb := buffer.SharedBuffer{Mem: make([]byte, size), Address: 0, Length: size}
	mb := buffer.NewManagedBuffer(sb, nil, 0)
	return buffer.Chunk{Managed: mb, Address: 0, Length: size}
}

func bufferAddress(c buffer.Chunk) uint64 {
	if c.Managed == nil {
		return 0
	}
	return c.Managed.Buffer().Address
}

func bufferEnd(c buffer.Chunk) uint64 {
	if c.Managed == nil {
		return 0
	}
	sb := c.Managed.Buffer()
	return sb.Address + sb.Length
}

func bufferLength(c buffer.Chunk) uint64 {
	if c.Managed == nil {
		return 0
	}
	return c.Managed.Buffer().Length
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
