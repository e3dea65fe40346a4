package accumulator_test

import (
	"testing"

	"github.com/momentics/flowcore/core/accumulator"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/stretchr/testify/require"
)

func newBackedChunk(t *testing.T, data []byte) buffer.Chunk {
	t.Helper()
	sb := buffer.SharedBuffer{Mem: data, Address: 0, Length: uint64(len(data))}
	mb := buffer.NewManagedBuffer(sb, nil, 0)
	return buffer.Chunk{Managed: mb, Address: 0, Length: uint64(len(data))}
}

func TestNewHoldsSentinelAndReportsZeroBytes(t *testing.T) {
	a := accumulator.New()
	require.Equal(t, uint64(0), a.BytesAvailable())
	require.Equal(t, 0, a.UniqueManagedBufferCount())
}

func TestPushAmalgamatesContiguousChunks(t *testing.T) {
	a := accumulator.New()
	data := make([]byte, 32)
	sb := buffer.SharedBuffer{Mem: data, Address: 0, Length: 32}
	mb := buffer.NewManagedBuffer(sb, nil, 0)

	// two chunks viewing the same buffer, back to back: [0:16) then [16:32)
	first := buffer.Chunk{Managed: mb, Address: 0, Length: 16}
	second := buffer.Chunk{Managed: mb, Address: 16, Length: 16}

	a.Push(first)
	a.Push(second)

	require.Equal(t, uint64(32), a.BytesAvailable())
	require.Equal(t, 1, a.UniqueManagedBufferCount(),
		"contiguous chunks of the same buffer must amalgamate into one queue entry")
}

func TestPushOfDisjointBuffersKeepsBothEntries(t *testing.T) {
	a := accumulator.New()
	a.Push(newBackedChunk(t, make([]byte, 8)))
	a.Push(newBackedChunk(t, make([]byte, 8)))

	require.Equal(t, uint64(16), a.BytesAvailable())
	require.Equal(t, 2, a.UniqueManagedBufferCount())
}

func TestPopConsumesFromFrontAndTracksBytes(t *testing.T) {
	a := accumulator.New()
	a.Push(newBackedChunk(t, []byte("hello world")))

	a.Pop(6)
	require.Equal(t, uint64(5), a.BytesAvailable())

	a.Pop(5)
	require.Equal(t, uint64(0), a.BytesAvailable())
}

func TestRequireSynthesizesContiguousFrontAcrossTwoChunks(t *testing.T) {
	a := accumulator.New()
	a.Push(newBackedChunk(t, []byte("abcd")))
	a.Push(newBackedChunk(t, []byte("efgh")))

	a.Require(8)
	require.Equal(t, uint64(8), a.BytesAvailable())
}

func TestRequireIsNoopWhenFrontAlreadyLargeEnough(t *testing.T) {
	a := accumulator.New()
	a.Push(newBackedChunk(t, make([]byte, 64)))
	countBefore := a.UniqueManagedBufferCount()

	a.Require(16)
	require.Equal(t, countBefore, a.UniqueManagedBufferCount(),
		"require must not synthesize a new buffer when the front chunk already satisfies it")
}

func TestClearResetsToEmptySentinel(t *testing.T) {
	a := accumulator.New()
	a.Push(newBackedChunk(t, make([]byte, 4)))
	a.Clear()

	require.Equal(t, uint64(0), a.BytesAvailable())
	require.Equal(t, 0, a.UniqueManagedBufferCount())
}
