// File: internal/concurrency/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package concurrency provides OS-thread pinning and NUMA topology queries,
// backed by a per-platform implementation selected at build time.
package concurrency

import "github.com/momentics/flowcore/api"

// ThreadAffinity implements api.Affinity by pinning the calling goroutine's
// OS thread via the platform-specific backend (SetThreadAffinityMask on
// Windows). On Linux the cgo backend only locks the goroutine to its OS
// thread and sets no CPU or NUMA mask, and the non-cgo backend is a
// no-op, as it is on other platforms.
type ThreadAffinity struct {
	cpuID, numaID int
	pinned        bool
}

// NewThreadAffinity returns an unpinned ScopeThread affinity handle.
func NewThreadAffinity() *ThreadAffinity {
	return &ThreadAffinity{cpuID: -1, numaID: -1}
}

// Pin binds the current OS thread to cpuID within numaID.
func (t *ThreadAffinity) Pin(cpuID, numaID int) error {
	if err := platformPinCurrentThread(numaID, cpuID); err != nil {
		return err
	}
	t.cpuID, t.numaID, t.pinned = cpuID, numaID, true
	return nil
}

// Unpin releases any binding previously set by Pin.
func (t *ThreadAffinity) Unpin() error {
	if err := platformUnpinCurrentThread(); err != nil {
		return err
	}
	t.pinned = false
	return nil
}

// Get reports the binding most recently set by Pin.
func (t *ThreadAffinity) Get() (cpuID, numaID int, err error) {
	return t.cpuID, t.numaID, nil
}

// Scope reports ScopeThread: this implementation pins an OS thread, not a
// whole process or a single unlocked goroutine.
func (t *ThreadAffinity) Scope() api.AffinityScope { return api.ScopeThread }

// ImmutableDescriptor snapshots the current binding state.
func (t *ThreadAffinity) ImmutableDescriptor() api.AffinityDescriptor {
	return api.AffinityDescriptor{CPUID: t.cpuID, NUMAID: t.numaID, Scope: api.ScopeThread, Pinned: t.pinned}
}

// PreferredCPUID returns a suggested CPU core index for the given NUMA node.
// The scheduler does not call it; it pins from its configured affinity mask.
func PreferredCPUID(numaNode int) int { return platformPreferredCPUID(numaNode) }

// CurrentNUMANodeID returns the NUMA node of the calling OS thread.
func CurrentNUMANodeID() int { return platformCurrentNUMANodeID() }

// NUMANodeCount returns the number of NUMA nodes the platform backend can see.
func NUMANodeCount() int { return platformNUMANodes() }

var _ api.Affinity = (*ThreadAffinity)(nil)
