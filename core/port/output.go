// File: core/port/output.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/errs"
	"github.com/momentics/flowcore/core/value"
)

type pendingLabel struct {
	label Label
}

// OutputPort is one output of a Block (§3, §4.3). It holds a write buffer
// obtained lazily from a BufferManager, accumulates pending production
// (labels, messages, produced bytes) during work(), and forwards it all to
// subscribers during the deferred end-of-work step (FinalizeWork).
type OutputPort struct {
	blockID string
	name    string
	dtype   uint64
	domain  string

	manager buffer.BufferManager

	mu         sync.Mutex
	write      buffer.Chunk
	haveWrite  bool
	produced   uint64 // elements produced so far this work cycle, pending forward
	extChunks  []buffer.Chunk
	pendLabels []pendingLabel
	pendMsgs   []value.Value

	readBeforeWrite *InputPort

	elementsProduced atomic.Uint64
	messagesPosted   atomic.Uint64

	subMu       sync.Mutex
	subscribers []*InputPort
}

// NewOutputPort constructs an output port backed by manager.
func NewOutputPort(blockID, name string, dtype uint64, manager buffer.BufferManager) *OutputPort {
	return &OutputPort{
		blockID: blockID,
		name:    name,
		dtype:   dtypeOrOne(dtype),
		manager: manager,
	}
}

func (p *OutputPort) Name() string    { return p.name }
func (p *OutputPort) BlockID() string { return p.blockID }
func (p *OutputPort) Dtype() uint64   { return p.dtype }

// ensureWriteLocked pops a fresh write buffer from the manager if none is
// currently held. Pop obtains (and ref-counts) the buffer; Front describes
// the write-available region within it, per the manager.Front() contract
// (§4.1) rather than this port reconstructing slab geometry itself. A
// manager with no single coherent write cursor (GenericPool, which hands
// out a different slab from Pop on every call) reports an empty Front, in
// which case this falls back to the just-popped buffer's own extent.
func (p *OutputPort) ensureWriteLocked() {
	if p.haveWrite || p.manager == nil {
		return
	}
	mb, ok := p.manager.Pop()
	if !ok {
		return
	}
	front := p.manager.Front()
	chunk := buffer.Chunk{Managed: mb, Address: front.Address, Length: front.Length, Dtype: p.dtype}
	if chunk.Length == 0 {
		chunk.Address = mb.Buffer().Address
		chunk.Length = mb.Buffer().Length
	}
	p.write = chunk
	p.haveWrite = true
}

// Buffer returns the front of this port's BufferManager, fetching a fresh
// write buffer if none is held. Empty if the manager is exhausted.
func (p *OutputPort) Buffer() buffer.Chunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWriteLocked()
	return p.write
}

// Elements reports floor(buffer.length / dtype.size) remaining for
// production this cycle.
func (p *OutputPort) Elements() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWriteLocked()
	total := p.write.Length / p.dtype
	if total < p.produced {
		return 0
	}
	return total - p.produced
}

// Produce records pending production of n elements.
func (p *OutputPort) Produce(n uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWriteLocked()
	total := p.write.Length / p.dtype
	if p.produced+n > total {
		return errs.New(errs.KindInvalidArgument, "produce: n exceeds remaining write buffer elements").
			WithBlock(p.blockID).WithPort(p.name)
	}
	p.produced += n
	return nil
}

// PopBuffer removes bytes from the output buffer without forwarding them to
// subscribers, for side-band use (§4.3).
func (p *OutputPort) PopBuffer(bytes uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensureWriteLocked()
	if bytes > p.write.Length {
		bytes = p.write.Length
	}
	p.write.Address += bytes
	p.write.Length -= bytes
}

// PostLabel enqueues a label at produced+label.Index, forwarded to every
// subscriber at FinalizeWork.
func (p *OutputPort) PostLabel(l Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.Index += p.produced
	p.pendLabels = append(p.pendLabels, pendingLabel{label: l})
}

// PostMessage enqueues an async message for subscribers, forwarded at
// FinalizeWork.
func (p *OutputPort) PostMessage(v value.Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendMsgs = append(p.pendMsgs, v)
}

// PostBuffer bypasses the managed write buffer and forwards chunk directly;
// its length determines the produced count contributed by this call.
func (p *OutputPort) PostBuffer(chunk buffer.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extChunks = append(p.extChunks, chunk)
}

// SetReadBeforeWrite declares that this output may reuse ip's front buffer
// in place when it is uniquely owned and dtypes match (inline substitution,
// §4.3 end-of-work step 1).
func (p *OutputPort) SetReadBeforeWrite(ip *InputPort) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBeforeWrite = ip
}

// Subscribe registers dst as a downstream consumer of this output.
func (p *OutputPort) Subscribe(dst *InputPort) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers = append(p.subscribers, dst)
	dst.Subscribe(Endpoint{BlockID: p.blockID, Name: p.name})
}

// Unsubscribe removes dst from this output's downstream set.
func (p *OutputPort) Unsubscribe(dst *InputPort) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for i, s := range p.subscribers {
		if s == dst {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			break
		}
	}
	dst.Unsubscribe(Endpoint{BlockID: p.blockID, Name: p.name})
}

func (p *OutputPort) subscriberSnapshot() []*InputPort {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	out := make([]*InputPort, len(p.subscribers))
	copy(out, p.subscribers)
	return out
}

// FinalizeWork performs the deferred end-of-work steps for this output
// port, in the order §4.3 specifies: (1) inline substitution when eligible,
// (2) forward pending labels, (3) forward the produced-bytes prefix as a
// chunk, (4) forward pending async messages, (5) request a fresh write
// buffer. Steps 3-4 also run for any chunks posted directly via PostBuffer.
func (p *OutputPort) FinalizeWork() {
	p.mu.Lock()

	// (1) inline substitution: rebind this output's write buffer to the
	// read-before-write input's front chunk when it is uniquely held and
	// the element sizes agree, letting the block's work() have written
	// through the input buffer in place.
	if p.readBeforeWrite != nil {
		front := p.readBeforeWrite.Buffer()
		if front.Managed != nil && front.Managed.RefCount() == 1 && front.Dtype == p.dtype {
			p.write = front
			p.haveWrite = true
		}
	}

	subs := p.subscriberSnapshot()

	// (2) forward pending labels
	labels := p.pendLabels
	p.pendLabels = nil

	// (3) forward the produced-bytes prefix as a chunk
	var forward buffer.Chunk
	haveForward := false
	if p.produced > 0 {
		forward = buffer.Chunk{
			Managed: p.write.Managed,
			Address: p.write.Address,
			Length:  p.produced * p.dtype,
			Dtype:   p.dtype,
		}
		haveForward = true
		p.write.Address += forward.Length
		p.write.Length -= forward.Length

		// A manager with its own write cursor (CircularPool) must be told
		// how many bytes were just consumed from its front, so its next
		// Front() call (and any wrap it performs) reflects this production.
		if adv, ok := p.manager.(interface{ Advance(n uint64) }); ok {
			adv.Advance(forward.Length)
		}
	}
	extChunks := p.extChunks
	p.extChunks = nil

	// Fanning one produced chunk out to N subscribers hands each of them an
	// independent accumulator entry (and each entry's eventual Pop/Clear
	// issues its own Decr, per core/accumulator's releaseChunk), so every
	// subscriber beyond the first needs its own extra reference up front.
	if haveForward && forward.Managed != nil {
		for i := 1; i < len(subs); i++ {
			forward.Managed.Incr()
		}
	}
	for _, c := range extChunks {
		if c.Managed == nil {
			continue
		}
		for i := 1; i < len(subs); i++ {
			c.Managed.Incr()
		}
	}

	// (4) forward pending async messages
	msgs := p.pendMsgs
	p.pendMsgs = nil

	p.elementsProduced.Add(p.produced)
	p.produced = 0

	// (5) request a fresh write buffer next time Buffer()/Elements() is
	// called; ensureWriteLocked will pop one lazily.
	p.haveWrite = false

	p.mu.Unlock()

	for _, s := range subs {
		for _, pl := range labels {
			s.PushLabel(pl.label)
		}
		if haveForward {
			s.PushBuffer(forward)
		}
		for _, c := range extChunks {
			s.PushBuffer(c)
		}
		for _, m := range msgs {
			s.PushMessage(m)
			p.messagesPosted.Add(1)
		}
	}
}

// OutputStats is a snapshot of this port's counters for query_json_stats (§4.6).
type OutputStats struct {
	BlockID          string   `json:"block_id"`
	Name             string   `json:"name"`
	Domain           string   `json:"domain,omitempty"`
	ElementsProduced uint64   `json:"elements_produced"`
	MessagesPosted   uint64   `json:"messages_posted"`
	Subscribers      []string `json:"subscribers,omitempty"`
}

// Stats returns a point-in-time snapshot of this port's counters.
func (p *OutputPort) Stats() OutputStats {
	subs := p.subscriberSnapshot()
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.BlockID() + "." + s.Name()
	}
	return OutputStats{
		BlockID:          p.blockID,
		Name:             p.name,
		Domain:           p.domain,
		ElementsProduced: p.elementsProduced.Load(),
		MessagesPosted:   p.messagesPosted.Load(),
		Subscribers:      names,
	}
}
