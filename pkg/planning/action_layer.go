package planning

// ActionLayer holds the actions applicable at one depth of the graph, their
// precondition edges into the parent literal layer, and the action mutexes.
type ActionLayer struct {
	layer
	graph *Graph
}

func newActionLayer(g *Graph, level int) *ActionLayer {
	return &ActionLayer{layer: newLayer(level), graph: g}
}

// Level returns the depth of the layer. Action layer k is expanded from
// literal layer k and produces literal layer k+1.
func (al *ActionLayer) Level() int {
	return al.level
}

// Len returns the number of actions in the layer, no-ops included.
func (al *ActionLayer) Len() int {
	return len(al.ids)
}

// Actions returns the actions in the layer ordered by id.
func (al *ActionLayer) Actions() []*ActionNode {
	out := make([]*ActionNode, 0, len(al.ids))
	for _, id := range al.ids {
		out = append(out, al.graph.actions[id])
	}
	return out
}

// Contains reports whether a is present in the layer.
func (al *ActionLayer) Contains(a *ActionNode) bool {
	return a != nil && al.contains(a.id)
}

// IsMutex reports whether a and b are mutually exclusive in this layer.
func (al *ActionLayer) IsMutex(a, b *ActionNode) bool {
	if a == nil || b == nil {
		return false
	}
	return al.isMutex(a.id, b.id)
}

// MutexCount returns the number of unordered mutex pairs.
func (al *ActionLayer) MutexCount() int {
	return al.mutexCount
}

// MutexPairs returns every mutex pair once.
func (al *ActionLayer) MutexPairs() [][2]*ActionNode {
	pairs := al.mutexPairs()
	out := make([][2]*ActionNode, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, [2]*ActionNode{al.graph.actions[p[0]], al.graph.actions[p[1]]})
	}
	return out
}

// addAction places a in the layer with its precondition edges.
func (al *ActionLayer) addAction(a *ActionNode) {
	al.add(a.id)
	for _, l := range a.preconditions {
		al.addParent(a.id, int(l))
	}
}

// updateMutexes computes the action mutexes against the literal layer the
// actions were admitted from.
func (al *ActionLayer) updateMutexes(parent *LiteralLayer) {
	opts := al.graph.opts
	if opts.IgnoreMutexes {
		return
	}

	actions := al.graph.actions
	al.computeMutexes(opts.Workers, func(a, b int) bool {
		actionA, actionB := actions[a], actions[b]
		if opts.Serialize && !actionA.noOp && !actionB.noOp {
			return true
		}
		return inconsistentEffects(actionA, actionB) ||
			interference(actionA, actionB) ||
			competingNeeds(actionA, actionB, parent)
	})
}

// inconsistentEffects reports whether an effect of one action negates an
// effect of the other.
func inconsistentEffects(a, b *ActionNode) bool {
	for _, l := range a.effects {
		if b.hasEffect(l.Negate()) {
			return true
		}
	}
	return false
}

// interference reports whether an effect of either action negates a
// precondition of the other.
func interference(a, b *ActionNode) bool {
	for _, l := range a.effects {
		if b.hasPrecondition(l.Negate()) {
			return true
		}
	}
	for _, l := range b.effects {
		if a.hasPrecondition(l.Negate()) {
			return true
		}
	}
	return false
}

// competingNeeds reports whether some precondition of a is mutex with some
// precondition of b in the parent literal layer.
func competingNeeds(a, b *ActionNode, parent *LiteralLayer) bool {
	for _, pa := range a.preconditions {
		for _, pb := range b.preconditions {
			if parent.IsMutex(pa, pb) {
				return true
			}
		}
	}
	return false
}
