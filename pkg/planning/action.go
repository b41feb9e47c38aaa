package planning

import (
	"fmt"
	"slices"
)

// ActionNode is a ground action as it appears in the planning graph.
// No-op nodes persist a single literal from one level to the next.
type ActionNode struct {
	id            int
	name          string
	preconditions []Literal
	effects       []Literal
	noOp          bool
}

// ID returns the node's stable id within its graph.
// No-op ids equal the literal they persist.
func (a *ActionNode) ID() int {
	return a.id
}

// Name returns the action name.
func (a *ActionNode) Name() string {
	return a.name
}

// Preconditions returns the sorted precondition literals.
func (a *ActionNode) Preconditions() []Literal {
	return slices.Clone(a.preconditions)
}

// Effects returns the sorted effect literals.
func (a *ActionNode) Effects() []Literal {
	return slices.Clone(a.effects)
}

// IsNoOp reports whether the node is a persistence action.
func (a *ActionNode) IsNoOp() bool {
	return a.noOp
}

// String returns the action name.
func (a *ActionNode) String() string {
	return a.name
}

func (a *ActionNode) hasEffect(l Literal) bool {
	_, found := slices.BinarySearch(a.effects, l)
	return found
}

func (a *ActionNode) hasPrecondition(l Literal) bool {
	_, found := slices.BinarySearch(a.preconditions, l)
	return found
}

// applicable reports whether every precondition is present in the layer.
func (a *ActionNode) applicable(layer *LiteralLayer) bool {
	for _, l := range a.preconditions {
		if !layer.Contains(l) {
			return false
		}
	}
	return true
}

// buildActionNodes creates the graph's action universe: one no-op per literal
// (ids 0..2n-1, id == literal) followed by the problem's ground actions.
func buildActionNodes(p *Problem) []*ActionNode {
	numLiterals := 2 * len(p.Facts)
	nodes := make([]*ActionNode, 0, numLiterals+len(p.Actions))

	for id := 0; id < numLiterals; id++ {
		l := Literal(id)
		nodes = append(nodes, &ActionNode{
			id:            id,
			name:          fmt.Sprintf("NoOp(%s)", p.FormatLiteral(l)),
			preconditions: []Literal{l},
			effects:       []Literal{l},
			noOp:          true,
		})
	}

	for i, a := range p.Actions {
		nodes = append(nodes, &ActionNode{
			id:            numLiterals + i,
			name:          a.Name,
			preconditions: sortedLiterals(a.Preconditions),
			effects:       sortedLiterals(a.Effects),
		})
	}

	return nodes
}
