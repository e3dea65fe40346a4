// File: core/topology/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"encoding/json"
	"sort"

	"github.com/momentics/flowcore/core/port"
)

// BlockStats collects one active block's port counters (§4.6
// query_json_stats).
type BlockStats struct {
	BlockID    string             `json:"block_id"`
	WorkErrors uint64             `json:"work_errors"`
	Inputs     []port.Stats       `json:"inputs,omitempty"`
	Outputs    []port.OutputStats `json:"outputs,omitempty"`
}

// Stats is the full point-in-time snapshot query_json_stats returns.
type Stats struct {
	Topology string       `json:"topology"`
	Blocks   []BlockStats `json:"blocks"`
}

// StatsSnapshot builds a point-in-time snapshot of every active block's
// port counters (§4.6). Exported as a plain struct so it can double as a
// debug-probe value (see control.go) as well as feed QueryJSONStats.
func (t *Topology) StatsSnapshot() Stats {
	t.mu.Lock()
	names := make([]string, 0, len(t.active))
	for name := range t.active {
		names = append(names, name)
	}
	t.mu.Unlock()
	sort.Strings(names)

	snap := Stats{Topology: t.id}
	for _, name := range names {
		t.mu.Lock()
		b := t.active[name]
		t.mu.Unlock()
		if b == nil {
			continue
		}
		bs := BlockStats{BlockID: name, WorkErrors: b.WorkErrorCount()}
		for _, in := range b.Inputs() {
			bs.Inputs = append(bs.Inputs, in.Stats())
		}
		for _, out := range b.Outputs() {
			bs.Outputs = append(bs.Outputs, out.Stats())
		}
		snap.Blocks = append(snap.Blocks, bs)
	}
	return snap
}

// QueryJSONStats returns a JSON-serializable snapshot of every active
// block's port counters (§4.6).
func (t *Topology) QueryJSONStats() ([]byte, error) {
	return json.MarshalIndent(t.StatsSnapshot(), "", "  ")
}
