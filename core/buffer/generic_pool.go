// File: core/buffer/generic_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import (
	"github.com/momentics/flowcore/internal/concurrency"
	"github.com/momentics/flowcore/pool"
)

// GenericPool is a BufferManager backed by fixed-size slabs carved from a
// single shared arena (§4.1). The arena is allocated once, NUMA-local when
// the platform supports it (pool.NUMAPool), and sliced into slabCount
// equal-size, cache-line-aligned regions addressed by slab index.
//
// The free list is a lock-free MPMC queue: Push is called from whichever
// goroutine drops the last reference to a buffer, which may be any worker
// thread or external caller, never just the one that originally popped it.
type GenericPool struct {
	arena    []byte
	slabSize uint64
	free     *concurrency.RingBuffer[*ManagedBuffer]
	numa     int
}

const cacheLineSize = 64

// alignUp rounds size up to the next multiple of cacheLineSize so each
// slab starts on its own cache line.
func alignUp(size uint64) uint64 {
	if rem := size % cacheLineSize; rem != 0 {
		size += cacheLineSize - rem
	}
	return size
}

// NewGenericPool allocates slabCount slabs of slabSize bytes each on NUMA
// node numaNode (best-effort; platforms without NUMA support ignore it).
func NewGenericPool(slabSize uint64, slabCount int, numaNode int) *GenericPool {
	aligned := alignUp(slabSize)
	arenaBytes := aligned * uint64(slabCount)

	numaPool := pool.NewNUMAPool(numaNode, int(arenaBytes), numaNode >= 0)
	arena := numaPool.Get()
	if uint64(len(arena)) < arenaBytes {
		arena = make([]byte, arenaBytes)
	}

	gp := &GenericPool{
		arena:    arena,
		slabSize: aligned,
		free:     concurrency.NewRingBuffer[*ManagedBuffer](uint64(nextPow2(slabCount))),
		numa:     numaNode,
	}
	for i := 0; i < slabCount; i++ {
		start := uint64(i) * aligned
		sb := SharedBuffer{Mem: arena, Address: start, Length: slabSize}
		mb := NewManagedBuffer(sb, gp, i)
		mb.Decr() // drop the initial ref; cleanup() enqueues it onto the free list
	}
	return gp
}

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Pop returns a free slab, or ok=false if the arena is exhausted.
func (gp *GenericPool) Pop() (*ManagedBuffer, bool) {
	mb, ok := gp.free.Dequeue()
	if !ok {
		return nil, false
	}
	mb.Incr()
	return mb, true
}

// Push returns mb to the free list. Safe to call from any goroutine.
func (gp *GenericPool) Push(mb *ManagedBuffer) {
	gp.free.Enqueue(mb)
}

// Front returns an empty chunk describing the slab geometry; GenericPool
// has no single persistent "current write slab" the way CircularPool does,
// since output ports obtain a fresh slab via Pop for each write buffer.
func (gp *GenericPool) Front() Chunk {
	return Chunk{Length: 0, Dtype: 0}
}

// Empty reports whether no slabs are currently free.
func (gp *GenericPool) Empty() bool {
	return gp.free.Len() == 0
}

var (
	_ BufferManager = (*GenericPool)(nil)
	_ Manager       = (*GenericPool)(nil)
)
