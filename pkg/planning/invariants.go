package planning

import "fmt"

// CheckInvariants verifies the structural invariants of every layer built so
// far: nodes are never dropped between consecutive layers, mutex relations
// are symmetric and irreflexive, and, unless mutexes are ignored, every
// literal present together with its negation is mutex with it.
//
// A non-nil result is an internal error and indicates a bug in the graph.
func (g *Graph) CheckInvariants() error {
	for i := 1; i < len(g.literalLayers); i++ {
		prev, next := g.literalLayers[i-1], g.literalLayers[i]
		for _, id := range prev.ids {
			if !next.contains(id) {
				return invariantError("literal dropped between layers", i).
					WithLiteral(g.problem.FormatLiteral(Literal(id)))
			}
		}
	}

	for i := 1; i < len(g.actionLayers); i++ {
		prev, next := g.actionLayers[i-1], g.actionLayers[i]
		for _, id := range prev.ids {
			if !next.contains(id) {
				return invariantError("action dropped between layers", i).
					WithAction(g.actions[id].name)
			}
		}
	}

	for i, ll := range g.literalLayers {
		if err := checkMutexMatrix(&ll.layer); err != nil {
			return invariantError(fmt.Sprintf("literal %v", err), i)
		}
		if g.opts.IgnoreMutexes {
			continue
		}
		for _, id := range ll.ids {
			l := Literal(id)
			if ll.Contains(l.Negate()) && !ll.IsMutex(l, l.Negate()) {
				return invariantError("literal present with its negation but not mutex", i).
					WithLiteral(g.problem.FormatLiteral(l))
			}
		}
	}

	for i, al := range g.actionLayers {
		if err := checkMutexMatrix(&al.layer); err != nil {
			return invariantError(fmt.Sprintf("action %v", err), i)
		}
	}

	return nil
}

// checkMutexMatrix reports the first asymmetric or reflexive matrix entry.
func checkMutexMatrix(l *layer) error {
	if l.mutex == nil {
		return nil
	}
	n := len(l.ids)
	if len(l.mutex) != n*n {
		return fmt.Errorf("mutex matrix has %d cells for %d nodes", len(l.mutex), n)
	}
	for i := 0; i < n; i++ {
		if l.mutex[i*n+i] {
			return fmt.Errorf("node %d is mutex with itself", l.ids[i])
		}
		for j := i + 1; j < n; j++ {
			if l.mutex[i*n+j] != l.mutex[j*n+i] {
				return fmt.Errorf("mutex between %d and %d is not symmetric", l.ids[i], l.ids[j])
			}
		}
	}
	return nil
}

func invariantError(message string, level int) *PlanningError {
	return NewInternalError(message, nil).WithDetail("level", level)
}
