// File: core/port/label_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import (
	"sort"
	"sync"
)

// LabelHandle identifies a previously pushed label for RemoveLabel (§4.3
// "remove_label(label): ... removal by identity"). Labels are plain values
// with no pointer identity of their own, so Push returns a handle the caller
// keeps if it may need to remove that exact occurrence later.
type LabelHandle uint64

type labelEntry struct {
	seq   uint64
	label Label
}

// LabelQueue holds labels ordered by ascending element index (§3). Unlike
// the plain FIFOs used for async messages, the label queue needs sorted
// insertion, by-identity removal, and bulk index adjustment on consumption —
// none of which a ring-buffer FIFO like eapache/queue exposes, so this is a
// small sorted slice instead (see DESIGN.md).
type LabelQueue struct {
	mu      sync.Mutex
	entries []labelEntry
	nextSeq uint64
}

func NewLabelQueue() *LabelQueue {
	return &LabelQueue{}
}

// Push inserts l keeping entries sorted by Index (stable: equal indices
// preserve push order), and returns a handle for later removal.
func (q *LabelQueue) Push(l Label) LabelHandle {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextSeq++
	seq := q.nextSeq
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].label.Index > l.Index
	})
	q.entries = append(q.entries, labelEntry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = labelEntry{seq: seq, label: l}
	return LabelHandle(seq)
}

// Remove drops the label identified by h, if still present. Reports whether
// it was found.
func (q *LabelQueue) Remove(h LabelHandle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.seq == uint64(h) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of queued labels.
func (q *LabelQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// FrontIndex reports the index of the label at the head of the queue, for
// the scheduler's runnable predicate ("non-empty label queue at index 0").
func (q *LabelQueue) FrontIndex() (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return 0, false
	}
	return q.entries[0].label.Index, true
}

// Within returns a snapshot of every label whose index is strictly less
// than n, for the input port's labels() accessor (§4.3: "immutable range of
// labels whose index lies within elements()").
func (q *LabelQueue) Within(n uint64) []Label {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Label, 0, len(q.entries))
	for _, e := range q.entries {
		if e.label.Index >= n {
			break
		}
		out = append(out, e.label)
	}
	return out
}

// ConsumeBelow removes every label with Index < n and decrements the index
// of every remaining label by n, matching the consume(n) contract (§4.3:
// "drop labels with index < n; decrement subsequent label indices by n").
func (q *LabelQueue) ConsumeBelow(n uint64) []Label {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := 0
	for i < len(q.entries) && q.entries[i].label.Index < n {
		i++
	}
	consumed := make([]Label, i)
	for j := 0; j < i; j++ {
		consumed[j] = q.entries[j].label
	}
	q.entries = q.entries[i:]
	for j := range q.entries {
		q.entries[j].label.Index -= n
	}
	return consumed
}
