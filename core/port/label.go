// File: core/port/label.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package port implements the input/output port contracts of the dataflow
// core (§4.3): label and async-message queues, element accounting against a
// BufferAccumulator, and the deferred end-of-work propagation sequence.
package port

import "github.com/momentics/flowcore/core/value"

// Label is a tagged annotation attached to an element index within a port's
// stream (§3). Index is in elements of the port's dtype, not bytes.
type Label struct {
	ID    string
	Data  value.Value
	Index uint64
}

// Rescale returns a copy of l with its index rescaled by the block-declared
// interp/decim ratio, per the default label propagation rule (§4.3):
// new_index = floor(old_index * interp / decim). Integer division on
// non-negative operands is already floor division in Go.
func (l Label) Rescale(interp, decim uint64) Label {
	if decim == 0 {
		decim = 1
	}
	l.Index = (l.Index * interp) / decim
	return l
}
