// File: core/scheduler/runnable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package scheduler

import (
	"math"
	"time"

	"github.com/momentics/flowcore/core/block"
)

// runnable evaluates §4.5's runnable predicate for st, and derives the
// WorkInfo the caller passes into Block.Work if it decides to run it.
func (s *Scheduler) runnable(st *blockState) (bool, block.WorkInfo) {
	inputs := st.blk.Inputs()

	reserveSatisfiedAll := true
	anyFullReserved := false
	hasMessageOrLabel := false
	minElements := uint64(math.MaxUint64)

	for _, in := range inputs {
		el := in.Elements()
		if el < minElements {
			minElements = el
		}
		if r := in.Reserve(); r > 0 {
			if el >= r {
				anyFullReserved = true
			} else {
				reserveSatisfiedAll = false
			}
		}
		if in.HasMessage() || in.LabelAtFrontIndexZero() {
			hasMessageOrLabel = true
		}
	}
	noInputs := len(inputs) == 0
	if noInputs {
		minElements = 0
	}

	timeoutExpired := false
	if until := st.yieldUntil.Load(); until != 0 && time.Now().UnixNano() >= until {
		timeoutExpired = true
	}

	// A block with no input ports (a source) has nothing to wait on: its
	// reserve/message/label disjuncts can never fire, so it is always
	// runnable on its own terms, same as satisfying reserve on an empty set.
	ok := noInputs || (anyFullReserved && reserveSatisfiedAll) || hasMessageOrLabel || timeoutExpired
	info := block.WorkInfo{MinElements: minElements, MaxTimeoutNs: s.cfg.DefaultTimeoutNs}
	return ok, info
}
