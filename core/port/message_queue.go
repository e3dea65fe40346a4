// File: core/port/message_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package port

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/flowcore/core/value"
)

// MessageQueue is the async-message queue carried by every input port
// (§4.3); output ports hold posted messages in a plain slice instead. It is a pure push-back/pop-front FIFO with no requirement
// for indexed access or mid-queue removal, which is exactly the shape
// eapache/queue's ring buffer provides.
type MessageQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{q: queue.New()}
}

// Push enqueues v.
func (m *MessageQueue) Push(v value.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.q.Add(v)
}

// Pop dequeues the oldest message, or ok=false if empty.
func (m *MessageQueue) Pop() (value.Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.q.Length() == 0 {
		return value.Value{}, false
	}
	return m.q.Remove().(value.Value), true
}

// Len reports the number of queued messages.
func (m *MessageQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.Length()
}
