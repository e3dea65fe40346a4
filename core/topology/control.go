// File: core/topology/control.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"context"
	"time"

	"github.com/momentics/flowcore/api"
	"github.com/momentics/flowcore/core/errs"
)

// defaultShutdownTimeout bounds how long Shutdown waits for the underlying
// scheduler's worker loops to return before giving up.
const defaultShutdownTimeout = 5 * time.Second

// GetConfig returns a snapshot of this topology's dynamic configuration
// (§6 named configuration operations, surfaced at the topology level).
func (t *Topology) GetConfig() map[string]any { return t.cfg.GetSnapshot() }

// SetConfig merges cfg into the dynamic configuration store and dispatches
// every registered reload hook.
func (t *Topology) SetConfig(cfg map[string]any) error {
	if cfg == nil {
		return errs.New(errs.KindInvalidArgument, "nil config")
	}
	t.cfg.SetConfig(cfg)
	return nil
}

// Stats returns the latest values recorded in this topology's metrics
// registry (committed-flow counts, activation counts; see Commit).
func (t *Topology) Stats() map[string]any { return t.metrics.GetSnapshot() }

// OnReload registers a hook invoked whenever SetConfig runs.
func (t *Topology) OnReload(fn func()) { t.cfg.OnReload(fn) }

// RegisterDebugProbe adds a named probe, included in DumpState.
func (t *Topology) RegisterDebugProbe(name string, fn func() any) {
	t.probes.RegisterProbe(name, fn)
}

// DumpState runs every registered debug probe and returns their results,
// including the "stats" probe registered by New.
func (t *Topology) DumpState() map[string]any { return t.probes.DumpState() }

// Shutdown stops the scheduler backing this topology, satisfying
// api.GracefulShutdown's bare, context-free contract with a bounded
// default timeout.
func (t *Topology) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	return t.sched.Shutdown(ctx)
}

var _ api.Control = (*Topology)(nil)
var _ api.Debug = (*Topology)(nil)
var _ api.GracefulShutdown = (*Topology)(nil)
