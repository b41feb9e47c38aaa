package planning

// LiteralLayer holds the literals possibly true at one depth of the graph,
// the producing actions of each literal in the previous action layer, and
// the literal mutexes.
type LiteralLayer struct {
	layer
	graph *Graph
}

func newLiteralLayer(g *Graph, level int) *LiteralLayer {
	return &LiteralLayer{layer: newLayer(level), graph: g}
}

// Level returns the depth of the layer; level 0 holds the initial state.
func (ll *LiteralLayer) Level() int {
	return ll.level
}

// Len returns the number of literals in the layer.
func (ll *LiteralLayer) Len() int {
	return len(ll.ids)
}

// Literals returns the literals in the layer in ascending order.
func (ll *LiteralLayer) Literals() []Literal {
	out := make([]Literal, 0, len(ll.ids))
	for _, id := range ll.ids {
		out = append(out, Literal(id))
	}
	return out
}

// Contains reports whether l is present in the layer.
func (ll *LiteralLayer) Contains(l Literal) bool {
	return ll.contains(int(l))
}

// IsMutex reports whether a and b are mutually exclusive in this layer.
func (ll *LiteralLayer) IsMutex(a, b Literal) bool {
	return ll.isMutex(int(a), int(b))
}

// Producers returns the actions of the previous action layer that achieve l.
// Layer 0 literals have no producers.
func (ll *LiteralLayer) Producers(l Literal) []*ActionNode {
	ids := ll.parents[int(l)]
	out := make([]*ActionNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, ll.graph.actions[id])
	}
	return out
}

// MutexCount returns the number of unordered mutex pairs.
func (ll *LiteralLayer) MutexCount() int {
	return ll.mutexCount
}

// MutexPairs returns every mutex pair once.
func (ll *LiteralLayer) MutexPairs() [][2]Literal {
	pairs := ll.mutexPairs()
	out := make([][2]Literal, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]Literal{Literal(p[0]), Literal(p[1])})
	}
	return out
}

// addEffects places the effects of a in the layer with provenance edges.
func (ll *LiteralLayer) addEffects(a *ActionNode) {
	for _, l := range a.effects {
		ll.add(int(l))
		ll.addParent(int(l), a.id)
	}
}

// updateMutexes computes the literal mutexes. parent is the action layer
// that produced this layer, or nil for layer 0 where only negation applies.
func (ll *LiteralLayer) updateMutexes(parent *ActionLayer) {
	opts := ll.graph.opts
	if opts.IgnoreMutexes {
		return
	}

	ll.computeMutexes(opts.Workers, func(a, b int) bool {
		literalA, literalB := Literal(a), Literal(b)
		if negation(literalA, literalB) {
			return true
		}
		return parent != nil && ll.inconsistentSupport(literalA, literalB, parent)
	})
}

// negation reports whether the two literals negate each other.
func negation(a, b Literal) bool {
	return a.IsNegationOf(b)
}

// inconsistentSupport reports whether every pair of producers of a and b is
// mutex in the parent action layer.
func (ll *LiteralLayer) inconsistentSupport(a, b Literal, parent *ActionLayer) bool {
	for _, pa := range ll.parents[int(a)] {
		for _, pb := range ll.parents[int(b)] {
			if !parent.isMutex(pa, pb) {
				return false
			}
		}
	}
	return true
}
