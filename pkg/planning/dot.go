package planning

import (
	"fmt"
	"strings"
)

// ToDOT renders the layers built so far in DOT format. Literal and action
// layers become alternating clusters; solid edges connect preconditions to
// actions and actions to their effects, dashed red edges mark mutexes.
// No-op actions are drawn as small points.
func (g *Graph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph PlanningGraph {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, ll := range g.literalLayers {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_literals_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"S%d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, l := range ll.Literals() {
			color := "lightgreen"
			if !l.Positive() {
				color = "lightcoral"
			}
			sb.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=%q, style=\"filled,rounded\"];\n",
				literalNodeID(level, l), g.problem.FormatLiteral(l), color))
		}
		sb.WriteString("  }\n\n")

		if level == len(g.actionLayers) {
			continue
		}

		al := g.actionLayers[level]
		sb.WriteString(fmt.Sprintf("  subgraph cluster_actions_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"A%d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, a := range al.Actions() {
			if a.noOp {
				sb.WriteString(fmt.Sprintf("    %q [shape=point];\n", actionNodeID(level, a)))
				continue
			}
			sb.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=\"lightblue\", style=\"filled,rounded\"];\n",
				actionNodeID(level, a), a.name))
		}
		sb.WriteString("  }\n\n")
	}

	for level, al := range g.actionLayers {
		for _, a := range al.Actions() {
			for _, p := range a.preconditions {
				sb.WriteString(fmt.Sprintf("  %q -> %q;\n", literalNodeID(level, p), actionNodeID(level, a)))
			}
			for _, e := range a.effects {
				sb.WriteString(fmt.Sprintf("  %q -> %q;\n", actionNodeID(level, a), literalNodeID(level+1, e)))
			}
		}
		for _, pair := range al.MutexPairs() {
			sb.WriteString(fmt.Sprintf("  %q -> %q [%s];\n",
				actionNodeID(level, pair[0]), actionNodeID(level, pair[1]), mutexEdgeStyle))
		}
	}

	for level, ll := range g.literalLayers {
		for _, pair := range ll.MutexPairs() {
			sb.WriteString(fmt.Sprintf("  %q -> %q [%s];\n",
				literalNodeID(level, pair[0]), literalNodeID(level, pair[1]), mutexEdgeStyle))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

const mutexEdgeStyle = "dir=none, style=dashed, color=red, constraint=false"

func literalNodeID(level int, l Literal) string {
	return fmt.Sprintf("S%d/%s", level, l)
}

func actionNodeID(level int, a *ActionNode) string {
	return fmt.Sprintf("A%d/%d", level, a.id)
}
