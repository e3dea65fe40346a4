package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/scheduler"
	"github.com/momentics/flowcore/core/value"
	"github.com/stretchr/testify/require"
)

func newSourceBlock(id string, data []byte) *block.Block {
	b := block.New(id)
	out := b.AddOutput("out0", 1, buffer.NewGenericPool(uint64(len(data)), 1, -1))

	var fired atomic.Bool
	b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
		if fired.Swap(true) {
			bl.Yield(uint64(5 * time.Millisecond))
			return nil
		}
		buf := out.Buffer()
		copy(buf.Bytes(), data)
		return out.Produce(uint64(len(data)))
	})
	return b
}

func newSinkBlock(id string) (*block.Block, *[]byte) {
	b := block.New(id)
	in := b.AddInput("in0", 1)
	in.SetReserve(1)

	collected := make([]byte, 0)
	b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
		n := in.Elements()
		if n == 0 {
			bl.Yield(uint64(5 * time.Millisecond))
			return nil
		}
		front := in.Buffer()
		collected = append(collected, front.Bytes()...)
		return in.Consume(n)
	})
	return b, &collected
}

func TestSchedulerRunsSourceAndSinkToCompletion(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	src := newSourceBlock("src", data)
	sink, collected := newSinkBlock("sink")

	srcOut, _ := src.Output("out0")
	sinkIn, _ := sink.Input("in0")
	srcOut.Subscribe(sinkIn)

	s := scheduler.New(scheduler.Config{NumThreads: 2, YieldMode: scheduler.YieldHybrid})
	s.Add(src)
	s.Add(sink)
	s.Start()

	require.Eventually(t, func() bool {
		return len(*collected) == len(data)
	}, time.Second, time.Millisecond, "sink must eventually collect everything the source produced")
	require.Equal(t, data, *collected)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestSchedulerRoundRobinsAcrossManyBlocks(t *testing.T) {
	const n = 8
	var ticks [n]atomic.Int32
	s := scheduler.New(scheduler.Config{NumThreads: 2, YieldMode: scheduler.YieldSpin})

	for i := 0; i < n; i++ {
		idx := i
		b := block.New("blk")
		b.Slot("trigger")
		b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
			ticks[idx].Add(1)
			bl.Yield(uint64(time.Millisecond))
			return nil
		})
		in, _ := b.Input("trigger")
		in.PushMessage(value.Int64(1)) // prime one message so it runs at least once
		s.Add(b)
	}
	s.Start()

	require.Eventually(t, func() bool {
		for i := 0; i < n; i++ {
			if ticks[i].Load() == 0 {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond, "every registered block must eventually be polled and run")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
