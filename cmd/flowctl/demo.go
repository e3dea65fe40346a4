// File: cmd/flowctl/demo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/scheduler"
	"github.com/momentics/flowcore/core/topology"
)

// schedulerConfigFields carries an optionally-loaded scheduler.Config; set
// is false when no --config flag was given, so startDemo falls back to a
// small built-in default.
type schedulerConfigFields struct {
	cfg scheduler.Config
	set bool
}

// demoRun is a running instance of flowctl's fixed three-block demo
// topology: a source block counting bytes into a relay block that copies
// them on to a sink block that drains them. Block authoring vocabulary is out of scope, so this pipeline is
// fixed in code rather than data-driven from YAML.
type demoRun struct {
	sched    *scheduler.Scheduler
	topo     *topology.Topology
	cancelFn context.CancelFunc
}

func startDemo(fields schedulerConfigFields, logger *zap.Logger) (*demoRun, error) {
	cfg := fields.cfg
	if !fields.set {
		cfg = scheduler.Config{NumThreads: 2, YieldMode: scheduler.YieldHybrid}
	}
	cfg.Logger = logger

	sched := scheduler.New(cfg)
	topo := topology.New("demo", sched, logger)

	source := block.New("source")
	out := source.AddOutput("out0", 1, buffer.NewGenericPool(64, 4, -1))
	var produced byte
	source.SetWork(func(b *block.Block, info block.WorkInfo) error {
		buf := out.Buffer()
		if buf.Length == 0 {
			b.Yield(uint64(time.Millisecond))
			return nil
		}
		n := copy(buf.Bytes(), []byte{produced})
		produced++
		return out.Produce(uint64(n))
	})

	// relay sits between source and sink on a CircularPool-backed output:
	// a single wraparound slab rather than a free-list of slabs, exercising
	// the manager's Front()-driven write cursor (and its wrap behavior) on
	// the hot path instead of only in a standalone buffer test.
	circ, err := buffer.NewCircularPool(64)
	if err != nil {
		return nil, err
	}
	relay := block.New("relay")
	relayIn := relay.AddInput("in0", 1)
	relayIn.SetReserve(1)
	relayOut := relay.AddOutput("out0", 1, circ)
	relay.SetWork(func(b *block.Block, info block.WorkInfo) error {
		n := relayIn.Elements()
		avail := relayOut.Elements()
		if n == 0 || avail == 0 {
			b.Yield(uint64(time.Millisecond))
			return nil
		}
		if n > avail {
			n = avail
		}
		src := relayIn.Buffer()
		dst := relayOut.Buffer()
		copy(dst.Bytes(), src.Bytes()[:n])
		if err := relayOut.Produce(n); err != nil {
			return err
		}
		return relayIn.Consume(n)
	})

	sink := block.New("sink")
	in := sink.AddInput("in0", 1)
	in.SetReserve(1)
	sink.SetWork(func(b *block.Block, info block.WorkInfo) error {
		n := in.Elements()
		if n == 0 {
			b.Yield(uint64(time.Millisecond))
			return nil
		}
		return in.Consume(n)
	})

	topo.AddBlock("source", source)
	topo.AddBlock("relay", relay)
	topo.AddBlock("sink", sink)
	topo.Connect("source", "out0", "relay", "in0")
	topo.Connect("relay", "out0", "sink", "in0")

	ctx, cancel := context.WithCancel(context.Background())
	if err := topo.Commit(ctx); err != nil {
		cancel()
		return nil, err
	}
	sched.Start()

	return &demoRun{sched: sched, topo: topo, cancelFn: cancel}, nil
}

func (r *demoRun) shutdown() {
	_ = r.topo.Shutdown()
	r.cancelFn()
}
