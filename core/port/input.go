// File: core/port/input.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/flowcore/core/accumulator"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/errs"
	"github.com/momentics/flowcore/core/value"
)

// Endpoint names a block/port pair, used to record subscriber/subscribed-to
// relationships for stats and debug output (§4.6 query_json_stats).
type Endpoint struct {
	BlockID string
	Name    string
}

// InputPort is one input of a Block (§3, §4.3): a typed accumulator, an
// ordered label queue, an async-message queue, and the bookkeeping counters
// the scheduler's runnable predicate and the topology's stats dump read.
type InputPort struct {
	blockID string
	name    string
	dtype   uint64
	domain  string

	mu  sync.Mutex
	acc *accumulator.Accumulator

	labels *LabelQueue
	msgs   *MessageQueue

	reserve atomic.Uint64

	elementsConsumed atomic.Uint64
	buffersReceived  atomic.Uint64
	labelsConsumed   atomic.Uint64
	messagesPopped   atomic.Uint64

	labelMu        sync.Mutex
	consumedLabels []Label

	subMu       sync.Mutex
	subscribers []Endpoint

	// onChange flags an external change on the owning WorkerActor; wired
	// by core/block (AddInput) when a port is attached to a block.
	onChange func()
}

// NewInputPort constructs a port with the given element size in bytes.
// dtype of 0 means byte-granular (element size 1).
func NewInputPort(blockID, name string, dtype uint64) *InputPort {
	return &InputPort{
		blockID: blockID,
		name:    name,
		dtype:   dtypeOrOne(dtype),
		acc:     accumulator.New(),
		labels:  NewLabelQueue(),
		msgs:    NewMessageQueue(),
	}
}

func dtypeOrOne(d uint64) uint64 {
	if d == 0 {
		return 1
	}
	return d
}

func (p *InputPort) Name() string    { return p.name }
func (p *InputPort) BlockID() string { return p.blockID }
func (p *InputPort) Dtype() uint64   { return p.dtype }

// SetOnChange installs the actor-notification hook. Nil-safe: if unset,
// push operations simply don't notify anyone (used in standalone tests).
func (p *InputPort) SetOnChange(fn func()) { p.onChange = fn }

func (p *InputPort) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}

// Elements reports floor(accumulator.front.length / dtype.size) (§4.3).
func (p *InputPort) Elements() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acc.Front().Length / p.dtype
}

// Buffer returns the front chunk of the accumulator.
func (p *InputPort) Buffer() buffer.Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acc.Front()
}

// Labels returns every queued label whose index lies within Elements().
func (p *InputPort) Labels() []Label {
	return p.labels.Within(p.Elements())
}

// SetReserve sets the minimum front-element count the scheduler tries to
// satisfy before waking this port's block.
func (p *InputPort) SetReserve(n uint64) { p.reserve.Store(n) }

// Reserve reports the current reserve requirement.
func (p *InputPort) Reserve() uint64 { return p.reserve.Load() }

// Consume advances the accumulator by n elements, drops and rebases queued
// labels accordingly, and records the consumption (§4.3).
func (p *InputPort) Consume(n uint64) error {
	p.mu.Lock()
	avail := p.acc.Front().Length / p.dtype
	if n > avail {
		p.mu.Unlock()
		return errs.New(errs.KindInvalidArgument, "consume: n exceeds available elements").
			WithBlock(p.blockID).WithPort(p.name)
	}
	p.acc.Pop(n * p.dtype)
	p.mu.Unlock()

	consumed := p.labels.ConsumeBelow(n)
	p.labelsConsumed.Add(uint64(len(consumed)))
	p.elementsConsumed.Add(n)

	if len(consumed) > 0 {
		p.labelMu.Lock()
		p.consumedLabels = append(p.consumedLabels, consumed...)
		p.labelMu.Unlock()
	}
	return nil
}

// DrainConsumedLabels returns and clears the labels dropped by Consume since
// the last drain, for the scheduler's end-of-work propagation step (§4.3):
// "for each input port: drop consumed labels ... and invoke propagate_labels
// on the consumed region".
func (p *InputPort) DrainConsumedLabels() []Label {
	p.labelMu.Lock()
	defer p.labelMu.Unlock()
	if len(p.consumedLabels) == 0 {
		return nil
	}
	out := p.consumedLabels
	p.consumedLabels = nil
	return out
}

// PopMessage dequeues one async message, if any.
func (p *InputPort) PopMessage() (value.Value, bool) {
	v, ok := p.msgs.Pop()
	if ok {
		p.messagesPopped.Add(1)
	}
	return v, ok
}

// HasMessage reports whether an async message is queued, for the runnable
// predicate (§4.5).
func (p *InputPort) HasMessage() bool { return p.msgs.Len() > 0 }

// RemoveLabel removes a previously pushed label by its handle.
func (p *InputPort) RemoveLabel(h LabelHandle) bool { return p.labels.Remove(h) }

// LabelAtFrontIndexZero reports whether a label is queued at index 0, for
// the runnable predicate's "non-empty label queue at index 0" clause.
func (p *InputPort) LabelAtFrontIndexZero() bool {
	idx, ok := p.labels.FrontIndex()
	return ok && idx == 0
}

// PeekLabelIndex returns the index of the label at the head of the queue,
// regardless of whether it falls within Elements(), for debug/test use.
func (p *InputPort) PeekLabelIndex() (uint64, bool) {
	return p.labels.FrontIndex()
}

// PushBuffer amalgamates chunk into the accumulator and notifies the owning
// actor. Thread-safe; called from any upstream output port's finalize step.
func (p *InputPort) PushBuffer(chunk buffer.Chunk) {
	p.mu.Lock()
	p.acc.Push(chunk)
	p.mu.Unlock()
	p.buffersReceived.Add(1)
	p.notify()
}

// PushLabel enqueues a label, ordered by index. Per §4.3 this must be
// called only after any push_buffer that carries the label's target
// element; the caller (output port finalize) is responsible for that
// ordering.
func (p *InputPort) PushLabel(l Label) LabelHandle {
	return p.labels.Push(l)
}

// PushMessage enqueues an async message and notifies the owning actor.
func (p *InputPort) PushMessage(v value.Value) {
	p.msgs.Push(v)
	p.notify()
}

// Subscribe records that src now feeds this port, for stats/debug use.
func (p *InputPort) Subscribe(src Endpoint) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers = append(p.subscribers, src)
}

// Unsubscribe removes a previously recorded upstream endpoint.
func (p *InputPort) Unsubscribe(src Endpoint) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for i, s := range p.subscribers {
		if s == src {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

// Stats is a snapshot of this port's counters for query_json_stats (§4.6).
type Stats struct {
	BlockID          string   `json:"block_id"`
	Name             string   `json:"name"`
	Domain           string   `json:"domain,omitempty"`
	ElementsConsumed uint64   `json:"elements_consumed"`
	BuffersReceived  uint64   `json:"buffers_received"`
	LabelsConsumed   uint64   `json:"labels_consumed"`
	MessagesPopped   uint64   `json:"messages_popped"`
	Subscribers      []string `json:"subscribers,omitempty"`
}

// Stats returns a point-in-time snapshot of this port's counters.
func (p *InputPort) Stats() Stats {
	p.subMu.Lock()
	subs := make([]string, len(p.subscribers))
	for i, s := range p.subscribers {
		subs[i] = s.BlockID + "." + s.Name
	}
	p.subMu.Unlock()

	return Stats{
		BlockID:          p.blockID,
		Name:             p.name,
		Domain:           p.domain,
		ElementsConsumed: p.elementsConsumed.Load(),
		BuffersReceived:  p.buffersReceived.Load(),
		LabelsConsumed:   p.labelsConsumed.Load(),
		MessagesPopped:   p.messagesPopped.Load(),
		Subscribers:      subs,
	}
}
