package config_test

import (
	"testing"

	"github.com/momentics/flowcore/core/config"
	"github.com/momentics/flowcore/core/scheduler"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
topology: render-pipeline
scheduler:
  num_threads: 4
  affinity_mask: [0, 1, 2, 3]
  numa_node: 0
  yield_mode: hybrid
  poll_threshold: 32
  default_timeout_ns: 5000000
`

func TestParseDeploymentBuildsSchedulerConfig(t *testing.T) {
	d, err := config.ParseDeployment([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "render-pipeline", d.Topology)

	cfg, err := d.SchedulerConfig()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.NumThreads)
	require.Equal(t, []int{0, 1, 2, 3}, cfg.AffinityMask)
	require.Equal(t, scheduler.YieldHybrid, cfg.YieldMode)
	require.Equal(t, 32, cfg.PollThreshold)
}

func TestParseDeploymentRejectsUnknownYieldMode(t *testing.T) {
	d, err := config.ParseDeployment([]byte("scheduler:\n  yield_mode: bogus\n"))
	require.NoError(t, err) // parsing succeeds; resolution fails below

	_, err = d.SchedulerConfig()
	require.Error(t, err)
}

func TestStoreSetDispatchesReloadListeners(t *testing.T) {
	s := config.NewStore()
	done := make(chan struct{})
	s.OnReload(func() { close(done) })

	s.Set(map[string]any{"threshold": 10})
	<-done

	v, ok := s.Get("threshold")
	require.True(t, ok)
	require.Equal(t, 10, v)
}
