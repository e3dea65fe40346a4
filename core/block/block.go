// File: core/block/block.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package block implements the Block author contract (§3, §6): a named
// unit with ordered ports, a work function, lifecycle hooks, a label-
// propagation hook, and a registry of callable operations used for
// configuration and signal/slot wiring.
package block

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/flowcore/core/actor"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/errs"
	"github.com/momentics/flowcore/core/port"
	"github.com/momentics/flowcore/core/value"
)

// WorkInfo carries the two fields the scheduler derives at runnable-check
// time and passes into work() (§4.5).
type WorkInfo struct {
	MinElements  uint64
	MaxTimeoutNs uint64
}

// Callable is a named operation in a block's registry: a setter, getter,
// signal emitter, or slot handler (§6). Calls are always mediated through
// the block's WorkerActor, never run concurrently with work().
type Callable func(args []value.Value) (value.Value, error)

// WorkFunc is a block's per-iteration processing step.
type WorkFunc func(b *Block, info WorkInfo) error

// LifecycleFunc backs Activate/Deactivate.
type LifecycleFunc func(b *Block) error

// PropagateLabelsFunc overrides the default label-propagation rule for one
// input port's consumed labels (§4.3).
type PropagateLabelsFunc func(b *Block, in *port.InputPort, labels []port.Label)

// Block is a dataflow graph node (§3). The Topology owns a shared
// reference through activation; the WorkerActor owns exclusive mutation
// rights during Work().
type Block struct {
	id string

	actor *actor.WorkerActor

	mu          sync.Mutex
	inputs      map[string]*port.InputPort
	outputs     map[string]*port.OutputPort
	inputOrder  []string
	outputOrder []string

	callables map[string]Callable

	interp, decim uint64

	// yieldNs holds a pending yield(timeout_ns) request (§5): a block may
	// return early from work() and ask the scheduler to revisit it after
	// at most this many nanoseconds, without blocking the worker thread.
	yieldNs atomic.Uint64

	// workErrors counts Work() calls that returned a non-nil error (§7:
	// "a per-block error counter is surfaced via stats").
	workErrors atomic.Uint64

	work             WorkFunc
	activateFn       LifecycleFunc
	deactivateFn     LifecycleFunc
	propagateLabelFn PropagateLabelsFunc
}

// New returns an empty Block identified by id, with a 1:1 default label
// rescale ratio.
func New(id string) *Block {
	return &Block{
		id:        id,
		actor:     actor.New(),
		inputs:    make(map[string]*port.InputPort),
		outputs:   make(map[string]*port.OutputPort),
		callables: make(map[string]Callable),
		interp:    1,
		decim:     1,
	}
}

func (b *Block) ID() string               { return b.id }
func (b *Block) Actor() *actor.WorkerActor { return b.actor }

// SetLabelRatio sets the (interp, decim) ratio used by the default label
// propagation rule when no PropagateLabelsFunc is set.
func (b *Block) SetLabelRatio(interp, decim uint64) {
	if decim == 0 {
		decim = 1
	}
	b.interp, b.decim = interp, decim
}

// AddInput registers a new input port. dtype is the element size in bytes
// (0 means byte-granular). Pushes arriving on this port flag an external
// change, since they always originate outside this block's own worker
// thread (an upstream block's finalize step, or direct external traffic).
func (b *Block) AddInput(name string, dtype uint64) *port.InputPort {
	ip := port.NewInputPort(b.id, name, dtype)
	ip.SetOnChange(b.actor.FlagExternalChange)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inputs[name] = ip
	b.inputOrder = append(b.inputOrder, name)
	return ip
}

// AddOutput registers a new output port backed by manager.
func (b *Block) AddOutput(name string, dtype uint64, manager buffer.BufferManager) *port.OutputPort {
	op := port.NewOutputPort(b.id, name, dtype, manager)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs[name] = op
	b.outputOrder = append(b.outputOrder, name)
	return op
}

// Slot registers an input port used only for async call-tuple delivery
// (§6): a slot carries no streamed elements, only PushMessage traffic.
func (b *Block) Slot(name string) *port.InputPort {
	return b.AddInput(name, 1)
}

// Signal registers an output port used only to post call-tuples to
// subscribed slots (§6): a signal never allocates a write buffer.
func (b *Block) Signal(name string) *port.OutputPort {
	return b.AddOutput(name, 1, nil)
}

// Input looks up a registered input port by name.
func (b *Block) Input(name string) (*port.InputPort, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ip, ok := b.inputs[name]
	return ip, ok
}

// Output looks up a registered output port by name.
func (b *Block) Output(name string) (*port.OutputPort, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, ok := b.outputs[name]
	return op, ok
}

// Inputs returns every input port in declaration order.
func (b *Block) Inputs() []*port.InputPort {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*port.InputPort, len(b.inputOrder))
	for i, name := range b.inputOrder {
		out[i] = b.inputs[name]
	}
	return out
}

// Outputs returns every output port in declaration order.
func (b *Block) Outputs() []*port.OutputPort {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*port.OutputPort, len(b.outputOrder))
	for i, name := range b.outputOrder {
		out[i] = b.outputs[name]
	}
	return out
}

// SetWork installs the per-iteration work function.
func (b *Block) SetWork(fn WorkFunc) { b.work = fn }

// SetActivate installs the activation hook, run once before this block
// joins the running topology.
func (b *Block) SetActivate(fn LifecycleFunc) { b.activateFn = fn }

// SetDeactivate installs the deactivation hook.
func (b *Block) SetDeactivate(fn LifecycleFunc) { b.deactivateFn = fn }

// SetPropagateLabels overrides the default label-propagation rule.
func (b *Block) SetPropagateLabels(fn PropagateLabelsFunc) { b.propagateLabelFn = fn }

// Work invokes the installed work function, if any. Callers (the
// scheduler) are responsible for holding the actor's exclusive lock first.
func (b *Block) Work(info WorkInfo) error {
	if b.work == nil {
		return nil
	}
	return b.work(b, info)
}

// Yield asks the scheduler to revisit this block after at most timeoutNs
// nanoseconds, without blocking the calling worker thread (§5). Call from
// within a WorkFunc before returning early.
func (b *Block) Yield(timeoutNs uint64) {
	if timeoutNs == 0 {
		timeoutNs = 1
	}
	b.yieldNs.Store(timeoutNs)
}

// TakeYield returns and clears a pending Yield request, for the scheduler's
// post-work bookkeeping.
func (b *Block) TakeYield() (uint64, bool) {
	v := b.yieldNs.Swap(0)
	return v, v > 0
}

// RecordWorkError increments this block's work-error counter. Called by the
// scheduler when Work() returns a non-nil error, immediately before it
// deactivates and drops the offending block (§7).
func (b *Block) RecordWorkError() { b.workErrors.Add(1) }

// WorkErrorCount returns the number of Work() calls that have returned a
// non-nil error so far.
func (b *Block) WorkErrorCount() uint64 { return b.workErrors.Load() }

// Activate runs the activation hook.
func (b *Block) Activate() error {
	if b.activateFn == nil {
		return nil
	}
	return b.activateFn(b)
}

// Deactivate runs the deactivation hook.
func (b *Block) Deactivate() error {
	if b.deactivateFn == nil {
		return nil
	}
	return b.deactivateFn(b)
}

// PropagateLabels runs the block's override if set, otherwise the default
// rule: forward every label to every output, rescaled by (interp, decim)
// (§4.3's "Default label propagation").
func (b *Block) PropagateLabels(in *port.InputPort, labels []port.Label) {
	if b.propagateLabelFn != nil {
		b.propagateLabelFn(b, in, labels)
		return
	}
	for _, out := range b.Outputs() {
		for _, l := range labels {
			out.PostLabel(l.Rescale(b.interp, b.decim))
		}
	}
}

// RegisterCallable adds a named operation to the block's registry (§6):
// setters, getters, and slot handlers are all plain callables.
func (b *Block) RegisterCallable(name string, fn Callable) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callables[name] = fn
}

// Call invokes a registered callable under the actor's exclusive external-
// call lock, so it never races with a concurrently running Work().
func (b *Block) Call(name string, args []value.Value) (value.Value, error) {
	b.mu.Lock()
	fn, ok := b.callables[name]
	b.mu.Unlock()
	if !ok {
		return value.Value{}, errs.New(errs.KindContractViolation, "no such callable").
			WithBlock(b.id).WithContext("callable", name)
	}

	var result value.Value
	var err error
	b.actor.WithExternalCall(func() {
		result, err = fn(args)
	})
	return result, err
}
