// Package render converts topologies into Graphviz DOT.
package render

import (
	"fmt"

	"github.com/awalterschulze/gographviz"

	"github.com/kination/runtopo/internal/topology"
)

var statusColors = map[topology.RunStatus]string{
	topology.RunStatusSucceeded:  "#a5d6a7",
	topology.RunStatusFailed:     "#ef9a9a",
	topology.RunStatusRunning:    "#90caf9",
	topology.RunStatusInProgress: "#90caf9",
	topology.RunStatusPending:    "#fff59d",
	topology.RunStatusSkipped:    "#e0e0e0",
	topology.RunStatusCancelled:  "#ffcc80",
}

const defaultColor = "#ffffff"

// DOT renders topo as a left-to-right directed graph named name.
// Edges whose predecessor is not a task of the topology are dropped.
func DOT(name string, topo topology.Topology) (string, error) {
	g := gographviz.NewEscape()
	if err := g.SetName(name); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}
	if err := g.AddAttr(name, "rankdir", "LR"); err != nil {
		return "", err
	}

	for _, node := range topo.Nodes {
		if err := g.AddNode(name, node.ID, nodeAttrs(node)); err != nil {
			return "", fmt.Errorf("add node %s: %w", node.ID, err)
		}
	}

	for _, node := range topo.Nodes {
		for _, pred := range node.RunAfter {
			if _, ok := topo.TaskMap[pred]; !ok {
				continue
			}
			if err := g.AddEdge(pred, node.ID, true, nil); err != nil {
				return "", fmt.Errorf("add edge %s -> %s: %w", pred, node.ID, err)
			}
		}
	}

	return g.String(), nil
}

func nodeAttrs(node topology.Node) map[string]string {
	color, ok := statusColors[node.Status]
	if !ok {
		color = defaultColor
	}
	label := node.Label
	if node.Status != "" {
		label = fmt.Sprintf(`%s\n(%s)`, node.Label, node.Status)
	}
	return map[string]string{
		"label":     label,
		"shape":     "box",
		"style":     "filled",
		"fillcolor": color,
	}
}
