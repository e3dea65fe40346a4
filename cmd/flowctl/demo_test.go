package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/momentics/flowcore/core/scheduler"
)

func TestDemoRunProducesQueryableStats(t *testing.T) {
	run, err := startDemo(schedulerConfigFields{
		cfg: scheduler.Config{NumThreads: 1, YieldMode: scheduler.YieldSpin},
		set: true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer run.shutdown()

	time.Sleep(20 * time.Millisecond)

	stats, err := run.topo.QueryJSONStats()
	require.NoError(t, err)
	require.Contains(t, string(stats), `"block_id": "source"`)

	dot, err := run.topo.ToDotMarkup()
	require.NoError(t, err)
	require.Contains(t, dot, `"source" -> "relay"`)
	require.Contains(t, dot, `"relay" -> "sink"`)
}
