package topology_test

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/scheduler"
	"github.com/momentics/flowcore/core/topology"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCountingSource(id string, limit int) (*block.Block, *int) {
	b := block.New(id)
	out := b.AddOutput("out0", 1, buffer.NewGenericPool(8, 2, -1))
	produced := 0
	b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
		if produced >= limit {
			bl.Yield(uint64(5 * time.Millisecond))
			return nil
		}
		buf := out.Buffer()
		n := copy(buf.Bytes(), []byte{byte(produced)})
		produced++
		return out.Produce(uint64(n))
	})
	return b, &produced
}

func newCountingSink(id string) (*block.Block, *int) {
	b := block.New(id)
	in := b.AddInput("in0", 1)
	in.SetReserve(1)
	consumed := 0
	b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
		n := in.Elements()
		if n == 0 {
			bl.Yield(uint64(5 * time.Millisecond))
			return nil
		}
		consumed += int(n)
		return in.Consume(n)
	})
	return b, &consumed
}

func TestTopologyCommitActivatesAndSchedulesBlocks(t *testing.T) {
	sched := scheduler.New(scheduler.Config{NumThreads: 2, YieldMode: scheduler.YieldHybrid})
	topo := topology.New("t0", sched, zap.NewNop())

	src, produced := newCountingSource("src", 4)
	sink, consumed := newCountingSink("sink")
	topo.AddBlock("src", src)
	topo.AddBlock("sink", sink)
	topo.Connect("src", "out0", "sink", "in0")

	require.NoError(t, topo.Commit(context.Background()))
	sched.Start()

	require.Eventually(t, func() bool {
		return *consumed == 4
	}, time.Second, time.Millisecond)
	require.Equal(t, 4, *produced)

	require.NoError(t, topo.WaitInactive(time.Second))

	stats, err := topo.QueryJSONStats()
	require.NoError(t, err)
	require.Contains(t, string(stats), `"block_id": "src"`)

	dot, err := topo.ToDotMarkup()
	require.NoError(t, err)
	require.Contains(t, dot, `"src" -> "sink"`)

	require.NoError(t, topo.Shutdown())
}

func TestTopologyDisconnectRemovesFlowOnCommit(t *testing.T) {
	sched := scheduler.New(scheduler.Config{NumThreads: 1, YieldMode: scheduler.YieldSpin})
	topo := topology.New("t1", sched, zap.NewNop())

	src, _ := newCountingSource("src", 1000000)
	sink, _ := newCountingSink("sink")
	topo.AddBlock("src", src)
	topo.AddBlock("sink", sink)
	topo.Connect("src", "out0", "sink", "in0")
	require.NoError(t, topo.Commit(context.Background()))

	topo.Disconnect("src", "out0", "sink", "in0")
	require.NoError(t, topo.Commit(context.Background()))

	dot, err := topo.ToDotMarkup()
	require.NoError(t, err)
	require.NotContains(t, dot, "->")
}
