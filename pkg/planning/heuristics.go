package planning

import "fmt"

// LevelSum returns the sum over all goal literals of the first level at
// which each literal appears. Expansion stops as soon as every goal literal
// has been seen once.
//
// If the graph levels off first, LevelSum returns Unreachable and an error
// for which IsUnreachable is true.
func (g *Graph) LevelSum() (int, error) {
	found := make(map[Literal]struct{}, len(g.goal))
	sum := 0

	_, err := g.expandUntil(func(level int, layer *LiteralLayer) bool {
		for _, goal := range g.goal {
			if _, ok := found[goal]; ok {
				continue
			}
			if layer.Contains(goal) {
				found[goal] = struct{}{}
				sum += level
			}
		}
		return len(found) == len(g.goal)
	})
	if err != nil {
		return Unreachable, err
	}
	return sum, nil
}

// MaxLevel returns the first level at which every goal literal is present,
// regardless of mutexes.
func (g *Graph) MaxLevel() (int, error) {
	level, err := g.expandUntil(func(_ int, layer *LiteralLayer) bool {
		return g.allGoalsPresent(layer)
	})
	if err != nil {
		return Unreachable, err
	}
	return level, nil
}

// SetLevel returns the first level at which every goal literal is present
// and no two goal literals are mutex. Expansion continues while the goals
// are present but mutex.
func (g *Graph) SetLevel() (int, error) {
	level, err := g.expandUntil(func(_ int, layer *LiteralLayer) bool {
		return g.allGoalsPresent(layer) && !g.goalsMutex(layer)
	})
	if err != nil {
		return Unreachable, err
	}
	return level, nil
}

// expandUntil visits literal layers in increasing order, building new ones
// on demand, until done returns true. It returns the level at which done
// held, or an error when the graph leveled off or the level bound was hit.
func (g *Graph) expandUntil(done func(level int, layer *LiteralLayer) bool) (int, error) {
	for level := 0; ; level++ {
		if level == len(g.literalLayers) {
			if g.leveled {
				return Unreachable, NewUnreachableError(
					fmt.Sprintf("goal not satisfiable: graph leveled off at level %d", level-1),
				).WithDetail("level", level-1)
			}
			if !g.canExtend() {
				return Unreachable, NewLimitError(
					fmt.Sprintf("goal not satisfied within %d levels", g.opts.MaxLevels),
				).WithDetail("max_levels", g.opts.MaxLevels)
			}
			g.extend()
		}

		if done(level, g.literalLayers[level]) {
			return level, nil
		}
	}
}

func (g *Graph) allGoalsPresent(layer *LiteralLayer) bool {
	for _, goal := range g.goal {
		if !layer.Contains(goal) {
			return false
		}
	}
	return true
}

func (g *Graph) goalsMutex(layer *LiteralLayer) bool {
	for i, a := range g.goal {
		for _, b := range g.goal[i+1:] {
			if layer.IsMutex(a, b) {
				return true
			}
		}
	}
	return false
}
