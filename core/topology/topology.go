// File: core/topology/topology.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package topology implements the Topology component (C6, §4.6): a
// declared graph of blocks and flows, which Commit resolves into concrete
// port subscriptions and activated, scheduled blocks.
package topology

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/flowcore/control"
	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/core/config"
	"github.com/momentics/flowcore/core/errs"
	"github.com/momentics/flowcore/core/scheduler"
)

// Topology owns a declared flow graph and the scheduler its committed
// blocks run under. It also implements api.Control (control.go): the
// dynamic config store, metrics registry, and debug probes adapted from
// the teacher's control package expose this topology's state to an
// operator the same way the teacher exposes any running component's.
type Topology struct {
	id string

	logger *zap.Logger
	sched  *scheduler.Scheduler

	cfg     *config.Store
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	mu            sync.Mutex
	blocks        map[string]*block.Block
	subTopologies map[string]*Topology
	flows         []Flow
	committed     map[Flow]bool
	active        map[string]*block.Block
}

// New returns an empty Topology identified by id, scheduling committed
// blocks on sched.
func New(id string, sched *scheduler.Scheduler, logger *zap.Logger) *Topology {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Topology{
		id:            id,
		logger:        logger,
		sched:         sched,
		cfg:           config.NewStore(),
		metrics:       control.NewMetricsRegistry(),
		probes:        control.NewDebugProbes(),
		blocks:        make(map[string]*block.Block),
		subTopologies: make(map[string]*Topology),
		committed:     make(map[Flow]bool),
		active:        make(map[string]*block.Block),
	}
	t.probes.RegisterProbe("stats", func() any { return t.StatsSnapshot() })
	control.RegisterPlatformProbes(t.probes)
	return t
}

// AddBlock registers a block under name, available as a Connect endpoint.
func (t *Topology) AddBlock(name string, b *block.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocks[name] = b
}

// AddSubTopology registers a nested topology under name, exposing its own
// boundary ports (those it has itself Connect-ed to "") as endpoints.
func (t *Topology) AddSubTopology(name string, sub *Topology) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subTopologies[name] = sub
}

// Connect declares a flow from srcNode/srcPort to dstNode/dstPort. An empty
// node name refers to one of this topology's own exposed boundary ports
// (§4.6). Declarations take effect only once Commit runs.
func (t *Topology) Connect(srcNode, srcPort, dstNode, dstPort string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows = append(t.flows, Flow{
		Src: PortRef{Node: srcNode, Port: srcPort},
		Dst: PortRef{Node: dstNode, Port: dstPort},
	})
}

// Disconnect removes a previously declared flow. A no-op if the exact flow
// wasn't declared.
func (t *Topology) Disconnect(srcNode, srcPort, dstNode, dstPort string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	target := Flow{
		Src: PortRef{Node: srcNode, Port: srcPort},
		Dst: PortRef{Node: dstNode, Port: dstPort},
	}
	for i, f := range t.flows {
		if f == target {
			t.flows = append(t.flows[:i], t.flows[i+1:]...)
			return
		}
	}
}

// DisconnectAll clears every declared flow in this topology.
func (t *Topology) DisconnectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows = nil
}

// Commit resolves the declared flows into concrete port subscriptions
// (§4.6): blocks newly appearing in the resolved flow set are activated and
// added to the scheduler (in parallel, rolling back via Deactivate on any
// failure); blocks that have dropped out are deactivated and removed;
// subscriptions are diffed against the previously committed set so an
// unchanged edge is left untouched.
func (t *Topology) Commit(ctx context.Context) error {
	t.mu.Lock()
	flows := append([]Flow(nil), t.flows...)
	t.mu.Unlock()

	resolved := t.squashFlows(flows)
	resolvedSet := make(map[Flow]bool, len(resolved))
	for _, f := range resolved {
		resolvedSet[f] = true
	}

	t.mu.Lock()
	toAdd := make(map[Flow]bool)
	toRemove := make(map[Flow]bool)
	for f := range resolvedSet {
		if !t.committed[f] {
			toAdd[f] = true
		}
	}
	for f := range t.committed {
		if !resolvedSet[f] {
			toRemove[f] = true
		}
	}
	t.mu.Unlock()

	participants := make(map[string]bool)
	for f := range resolvedSet {
		participants[f.Src.Node] = true
		participants[f.Dst.Node] = true
	}

	type named struct {
		name string
		blk  *block.Block
	}

	t.mu.Lock()
	var newlyActive []named
	for name := range participants {
		if t.active[name] != nil {
			continue
		}
		b, ok := t.blocks[name]
		if !ok {
			continue
		}
		newlyActive = append(newlyActive, named{name, b})
	}
	var toDeactivate []named
	for name, b := range t.active {
		if !participants[name] {
			toDeactivate = append(toDeactivate, named{name, b})
		}
	}
	t.mu.Unlock()

	activateBlocks := make([]*block.Block, len(newlyActive))
	for i, na := range newlyActive {
		activateBlocks[i] = na.blk
	}
	if err := t.activateAll(ctx, activateBlocks); err != nil {
		return err
	}

	for f := range toAdd {
		if err := t.applyFlow(f, true); err != nil {
			t.logger.Warn("commit: subscribe failed", zap.String("topology", t.id), zap.Error(err))
		}
	}
	for f := range toRemove {
		if err := t.applyFlow(f, false); err != nil {
			t.logger.Warn("commit: unsubscribe failed", zap.String("topology", t.id), zap.Error(err))
		}
	}

	for _, na := range toDeactivate {
		if t.sched != nil {
			t.sched.Remove(na.blk)
		}
		if err := na.blk.Deactivate(); err != nil {
			t.logger.Warn("commit: deactivate failed", zap.String("topology", t.id), zap.String("block", na.name), zap.Error(err))
		}
	}

	t.mu.Lock()
	t.committed = resolvedSet
	for _, na := range newlyActive {
		t.active[na.name] = na.blk
	}
	for _, na := range toDeactivate {
		delete(t.active, na.name)
	}
	activeCount := len(t.active)
	t.mu.Unlock()

	t.metrics.Set("flows", len(resolvedSet))
	t.metrics.Set("active_blocks", activeCount)

	t.logger.Info("topology committed",
		zap.String("topology", t.id),
		zap.Int("flows", len(resolvedSet)),
		zap.Int("activated", len(newlyActive)),
		zap.Int("deactivated", len(toDeactivate)))
	return nil
}

// activateAll activates newly-participating blocks concurrently, rolling
// back (deactivating) everything already activated if any one fails.
func (t *Topology) activateAll(ctx context.Context, blocks []*block.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	grp, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var activated []*block.Block

	for _, b := range blocks {
		b := b
		grp.Go(func() error {
			if err := b.Activate(); err != nil {
				return fmt.Errorf("activate %s: %w", b.ID(), err)
			}
			mu.Lock()
			activated = append(activated, b)
			mu.Unlock()
			if t.sched != nil {
				t.sched.Add(b)
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		for _, b := range activated {
			if t.sched != nil {
				t.sched.Remove(b)
			}
			if dErr := b.Deactivate(); dErr != nil {
				t.logger.Error("activation rollback: deactivate failed",
					zap.String("topology", t.id), zap.String("block", b.ID()), zap.Error(dErr))
			}
		}
		return err
	}
	return nil
}

func (t *Topology) applyFlow(f Flow, subscribe bool) error {
	t.mu.Lock()
	srcBlk, srcOK := t.blocks[f.Src.Node]
	dstBlk, dstOK := t.blocks[f.Dst.Node]
	t.mu.Unlock()
	if !srcOK || !dstOK {
		return errs.New(errs.KindPortNotFound, "flow endpoint not registered").
			WithContext("src", f.Src).WithContext("dst", f.Dst)
	}

	srcPort, ok := srcBlk.Output(f.Src.Port)
	if !ok {
		return errs.New(errs.KindPortNotFound, "output port not found").
			WithBlock(f.Src.Node).WithPort(f.Src.Port)
	}
	dstPort, ok := dstBlk.Input(f.Dst.Port)
	if !ok {
		return errs.New(errs.KindPortNotFound, "input port not found").
			WithBlock(f.Dst.Node).WithPort(f.Dst.Port)
	}

	if subscribe {
		srcPort.Subscribe(dstPort)
	} else {
		srcPort.Unsubscribe(dstPort)
	}
	return nil
}

// WaitInactive polls every committed block's input ports until all are
// quiescent (no buffered elements, no pending messages) or timeout elapses
// (§4.6).
func (t *Topology) WaitInactive(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if t.allQuiescent() {
			return nil
		}
		if time.Now().After(deadline) {
			return errs.New(errs.KindCancelled, "wait_inactive timed out").WithContext("topology", t.id)
		}
		time.Sleep(time.Millisecond)
	}
}

func (t *Topology) allQuiescent() bool {
	t.mu.Lock()
	blocks := make([]*block.Block, 0, len(t.active))
	for _, b := range t.active {
		blocks = append(blocks, b)
	}
	t.mu.Unlock()

	for _, b := range blocks {
		for _, in := range b.Inputs() {
			if in.Elements() > 0 || in.HasMessage() {
				return false
			}
		}
	}
	return true
}
