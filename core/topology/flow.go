// File: core/topology/flow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

// PortRef names one endpoint of a declared Flow: either a concrete node
// (a registered block or a registered sub-topology) and one of its named
// ports, or — when Node is empty — one of this topology's own exposed
// boundary ports (§4.6: "a topology may itself appear as a node with named
// input/output ports that are actually pass-through aliases").
type PortRef struct {
	Node string
	Port string
}

func (r PortRef) isBoundary() bool { return r.Node == "" }

// Flow is one declared edge, possibly still unresolved (either endpoint may
// name a sub-topology boundary rather than a real block port).
type Flow struct {
	Src, Dst PortRef
}

// resolvePorts resolves ref into the set of real leaf ports it ultimately
// reaches: itself, if ref names a registered block directly; or the
// sub-topology's own resolved boundary set, if ref names a registered
// sub-topology. Grounded on TopologySquashFlows.cpp's resolvePorts/
// resolvePortsFromTopology.
func (t *Topology) resolvePorts(ref PortRef, isSource bool) []PortRef {
	if _, ok := t.blocks[ref.Node]; ok {
		return []PortRef{ref}
	}
	if sub, ok := t.subTopologies[ref.Node]; ok {
		return sub.resolveBoundary(ref.Port, isSource)
	}
	return nil
}

// resolveBoundary resolves one of t's own exposed boundary ports (named
// portName) into the real ports it connects to inside t, recursing through
// further nested boundaries as needed.
func (t *Topology) resolveBoundary(portName string, isSource bool) []PortRef {
	t.mu.Lock()
	flows := append([]Flow(nil), t.flows...)
	t.mu.Unlock()

	var out []PortRef
	for _, f := range flows {
		if isSource && f.Dst.isBoundary() && f.Dst.Port == portName && !f.Src.isBoundary() {
			out = append(out, t.resolvePorts(f.Src, isSource)...)
		}
		if !isSource && f.Src.isBoundary() && f.Src.Port == portName && !f.Dst.isBoundary() {
			out = append(out, t.resolvePorts(f.Dst, isSource)...)
		}
	}
	return out
}

// referencedSubTopologies collects, in first-seen order, the distinct
// sub-topology nodes appearing in flows.
func (t *Topology) referencedSubTopologies(flows []Flow) []*Topology {
	var out []*Topology
	seen := make(map[string]bool)
	for _, f := range flows {
		for _, ref := range [2]PortRef{f.Src, f.Dst} {
			if ref.isBoundary() || seen[ref.Node] {
				continue
			}
			if sub, ok := t.subTopologies[ref.Node]; ok {
				seen[ref.Node] = true
				out = append(out, sub)
			}
		}
	}
	return out
}

// squashFlows is the three-pass flow resolution (§4.6), ported from
// TopologySquashFlows.cpp's squashFlows: (1) cartesian-resolve each of t's
// own block/sub-topology flows into real leaf edges, merging in every
// referenced sub-topology's own fully-squashed flows; (2) join pairs of
// pure boundary-to-boundary pass-throughs declared in the same flow set
// head-to-tail through any matching real edges; (3) carry t's own
// unresolved boundary-to-boundary pass-throughs upward unchanged, so an
// outer topology embedding t can complete them against its own edges.
func (t *Topology) squashFlows(flows []Flow) []Flow {
	var flat []Flow
	for _, f := range flows {
		if f.Src.isBoundary() || f.Dst.isBoundary() {
			continue
		}
		for _, s := range t.resolvePorts(f.Src, true) {
			for _, d := range t.resolvePorts(f.Dst, false) {
				flat = append(flat, Flow{Src: s, Dst: d})
			}
		}
	}

	for _, sub := range t.referencedSubTopologies(flows) {
		sub.mu.Lock()
		subFlows := append([]Flow(nil), sub.flows...)
		sub.mu.Unlock()
		flat = append(flat, sub.squashFlows(subFlows)...)
	}

	flat = completeFlows(flat)

	for _, f := range flows {
		if f.Src.isBoundary() && f.Dst.isBoundary() {
			flat = append(flat, f)
		}
	}
	return dedupeFlows(flat)
}

// completeFlows keeps only edges between two real (non-boundary) ports:
// flows already real pass through; a pure boundary-to-boundary flow is
// spliced into a real edge whenever some other flow in the same set feeds
// its source boundary and some other flow drains its destination boundary.
func completeFlows(flows []Flow) []Flow {
	var out []Flow
	for _, f := range flows {
		switch {
		case !f.Src.isBoundary() && !f.Dst.isBoundary():
			out = append(out, f)
		case f.Src.isBoundary() && f.Dst.isBoundary():
			for _, tail := range flows {
				if tail.Dst.isBoundary() || tail.Src != f.Src {
					continue
				}
				for _, head := range flows {
					if head.Src.isBoundary() || head.Dst != f.Dst {
						continue
					}
					out = append(out, Flow{Src: head.Src, Dst: tail.Dst})
				}
			}
		}
	}
	return out
}

func dedupeFlows(flows []Flow) []Flow {
	seen := make(map[Flow]bool, len(flows))
	out := make([]Flow, 0, len(flows))
	for _, f := range flows {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
