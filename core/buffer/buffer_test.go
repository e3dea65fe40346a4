package buffer_test

import (
	"testing"

	"github.com/momentics/flowcore/core/buffer"
	"github.com/stretchr/testify/require"
)

func TestGenericPoolPopPushRoundTrip(t *testing.T) {
	gp := buffer.NewGenericPool(128, 4, -1)
	require.False(t, gp.Empty())

	var popped []*buffer.ManagedBuffer
	for i := 0; i < 4; i++ {
		mb, ok := gp.Pop()
		require.True(t, ok)
		popped = append(popped, mb)
	}
	_, ok := gp.Pop()
	require.False(t, ok, "pool should be exhausted after popping all slabs")

	for _, mb := range popped {
		mb.Decr()
	}
	mb, ok := gp.Pop()
	require.True(t, ok, "returned slabs must be poppable again")
	require.NotNil(t, mb)
}

func TestManagedBufferRefCountTerminalDropReturnsToPool(t *testing.T) {
	gp := buffer.NewGenericPool(64, 1, -1)
	mb, ok := gp.Pop()
	require.True(t, ok)
	require.Equal(t, int64(1), mb.RefCount())

	mb.Incr()
	require.Equal(t, int64(2), mb.RefCount())
	mb.Decr()
	require.True(t, gp.Empty(), "buffer with a remaining reference must not be back on the free list")

	mb.Decr()
	_, ok = gp.Pop()
	require.True(t, ok, "slab must be back on the free list after refcount hits zero")
}

func TestCircularPoolFrontWrapsAndStaysContiguous(t *testing.T) {
	cp, err := buffer.NewCircularPool(16)
	require.NoError(t, err)

	front := cp.Front()
	require.Equal(t, uint64(0), front.Address)
	require.Equal(t, uint64(16), front.Length)

	cp.Advance(10)
	front = cp.Front()
	require.Equal(t, uint64(10), front.Address)
	// A full-length front view starting near the end must still be
	// addressable contiguously through the mirror half.
	require.NotPanics(t, func() { _ = front.Bytes() })

	cp.Advance(10) // wraps past capacity (10+10=20 > 16)
	front = cp.Front()
	require.Equal(t, uint64(4), front.Address)
}

func TestChunkContiguousAcrossAlias(t *testing.T) {
	cp, err := buffer.NewCircularPool(8)
	require.NoError(t, err)
	front := cp.Front()

	wrapped := buffer.Chunk{Managed: front.Managed, Address: front.Alias(), Length: 2}
	require.True(t, buffer.Contiguous(front, wrapped))
}
