package port_test

import (
	"testing"

	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/port"
	"github.com/momentics/flowcore/core/value"
	"github.com/stretchr/testify/require"
)

func TestLabelRescaleFloorsDivision(t *testing.T) {
	l := port.Label{ID: "tag", Index: 7}
	r := l.Rescale(2, 3) // floor(7*2/3) = floor(14/3) = 4
	require.Equal(t, uint64(4), r.Index)
}

func TestLabelQueueOrdersByIndexAndConsumeBelowRebases(t *testing.T) {
	q := port.NewLabelQueue()
	q.Push(port.Label{ID: "b", Index: 5})
	q.Push(port.Label{ID: "a", Index: 2})
	q.Push(port.Label{ID: "c", Index: 9})

	within := q.Within(6)
	require.Len(t, within, 2)
	require.Equal(t, "a", within[0].ID)
	require.Equal(t, "b", within[1].ID)

	consumed := q.ConsumeBelow(6)
	require.Len(t, consumed, 2)
	require.Equal(t, 1, q.Len())

	idx, ok := q.FrontIndex()
	require.True(t, ok)
	require.Equal(t, uint64(3), idx, "remaining label's index must be rebased by the consumed amount")
}

func TestLabelQueueRemoveByHandle(t *testing.T) {
	q := port.NewLabelQueue()
	h := q.Push(port.Label{ID: "x", Index: 1})
	q.Push(port.Label{ID: "y", Index: 2})

	require.True(t, q.Remove(h))
	require.Equal(t, 1, q.Len())
	require.False(t, q.Remove(h), "removing the same handle twice must fail")
}

func TestMessageQueueFIFO(t *testing.T) {
	q := port.NewMessageQueue()
	q.Push(value.Int64(1))
	q.Push(value.Int64(2))

	v, ok := q.Pop()
	require.True(t, ok)
	n, ok := v.AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	v, ok = q.Pop()
	require.True(t, ok)
	n, ok = v.AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestInputPortConsumeAdvancesAccumulatorAndLabels(t *testing.T) {
	ip := port.NewInputPort("blk", "in0", 4) // dtype = 4 bytes (e.g. int32)

	data := make([]byte, 16)
	sb := buffer.SharedBuffer{Mem: data, Length: 16}
	mb := buffer.NewManagedBuffer(sb, nil, 0)
	chunk := buffer.Chunk{Managed: mb, Length: 16}

	ip.PushBuffer(chunk)
	require.Equal(t, uint64(4), ip.Elements())

	ip.PushLabel(port.Label{ID: "start", Index: 1})
	require.NoError(t, ip.Consume(2))

	labels := ip.Labels()
	require.Len(t, labels, 0, "label at index 1 should have been dropped and no remaining label sits before the new front")
	require.Equal(t, uint64(2), ip.Elements())
}

func TestInputPortConsumeRejectsOverdraw(t *testing.T) {
	ip := port.NewInputPort("blk", "in0", 4)
	err := ip.Consume(1)
	require.Error(t, err)
}

func TestOutputPortProduceAndFinalizeForwardsToSubscriber(t *testing.T) {
	pool := buffer.NewGenericPool(64, 2, -1)
	out := port.NewOutputPort("blk", "out0", 4, pool)
	in := port.NewInputPort("downstream", "in0", 4)
	out.Subscribe(in)

	buf := out.Buffer()
	require.Equal(t, uint64(16), buf.Length/4)

	out.PostLabel(port.Label{ID: "tag", Index: 0})
	require.NoError(t, out.Produce(3))
	out.FinalizeWork()

	require.Equal(t, uint64(3), in.Elements())
	require.Len(t, in.Labels(), 1)
}

func TestOutputPortOverCircularPoolAdvancesAndWrapsFront(t *testing.T) {
	cp, err := buffer.NewCircularPool(16)
	require.NoError(t, err)
	out := port.NewOutputPort("blk", "out0", 1, cp)
	in := port.NewInputPort("downstream", "in0", 1)
	out.Subscribe(in)

	// First cycle: produce 10 of 16 bytes, forwarding them downstream and
	// advancing the circular cursor past them.
	buf := out.Buffer()
	require.Equal(t, uint64(0), buf.Address)
	require.Equal(t, uint64(16), buf.Length)
	require.NoError(t, out.Produce(10))
	out.FinalizeWork()
	require.Equal(t, uint64(10), in.Elements())

	// Second cycle: the manager's write cursor must have advanced by the
	// first cycle's production, visible through Front() on the next Buffer()
	// call rather than this port reconstructing the chunk itself.
	buf = out.Buffer()
	require.Equal(t, uint64(10), buf.Address)
	require.NoError(t, out.Produce(10)) // 10+10=20 > capacity 16: wraps
	out.FinalizeWork()
	require.Equal(t, uint64(20), in.Elements())

	// Third cycle: writeOff has wrapped (20 mod 16 = 4), and the wrapped
	// region remains addressable contiguously through the alias mapping.
	buf = out.Buffer()
	require.Equal(t, uint64(4), buf.Address)
	require.NotPanics(t, func() { _ = buf.Bytes() })
}
