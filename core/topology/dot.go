// File: core/topology/dot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package topology

import (
	"sort"
	"strings"
	"text/template"
)

// dotTemplate renders the committed flow graph as Graphviz DOT source
// (§4.6 to_dot_markup).
var dotTemplate = template.Must(template.New("dot").Parse(`digraph {{.Name}} {
	rankdir=LR;
{{- range .Nodes}}
	"{{.}}" [shape=box];
{{- end}}
{{- range .Edges}}
	"{{.SrcNode}}" -> "{{.DstNode}}" [label="{{.SrcPort}} -> {{.DstPort}}"];
{{- end}}
}
`))

type dotEdge struct {
	SrcNode, SrcPort, DstNode, DstPort string
}

type dotData struct {
	Name  string
	Nodes []string
	Edges []dotEdge
}

// ToDotMarkup renders the currently committed flow graph as Graphviz DOT
// source, for debugging and documentation (§4.6).
func (t *Topology) ToDotMarkup() (string, error) {
	t.mu.Lock()
	flows := make([]Flow, 0, len(t.committed))
	for f := range t.committed {
		flows = append(flows, f)
	}
	t.mu.Unlock()

	nodeSet := make(map[string]bool)
	edges := make([]dotEdge, 0, len(flows))
	for _, f := range flows {
		nodeSet[f.Src.Node] = true
		nodeSet[f.Dst.Node] = true
		edges = append(edges, dotEdge{
			SrcNode: f.Src.Node, SrcPort: f.Src.Port,
			DstNode: f.Dst.Node, DstPort: f.Dst.Port,
		})
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var buf strings.Builder
	if err := dotTemplate.Execute(&buf, dotData{Name: t.id, Nodes: nodes, Edges: edges}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
