package planning

import "fmt"

// Unlimited disables the level bound of Fill.
const Unlimited = -1

// Options configures graph construction.
type Options struct {
	// Serialize makes every pair of distinct non-persistence actions in a
	// layer mutex, so no two of them can be taken at the same step.
	Serialize bool

	// IgnoreMutexes skips all mutex computation.
	IgnoreMutexes bool

	// MaxLevels bounds the number of action layers a heuristic query may
	// build. Zero or negative means unbounded.
	MaxLevels int

	// Workers is the number of goroutines used to evaluate the mutex pairs
	// of a single layer. Values below 2 compute mutexes sequentially.
	Workers int

	// CheckInvariants verifies monotonicity, mutex symmetry and negation
	// completeness after every expansion and panics on a violation.
	CheckInvariants bool

	// Observer, if set, is notified after every expansion.
	Observer Observer
}

// Observer receives expansion notifications from a graph.
type Observer interface {
	LayerAdded(stats LayerStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(stats LayerStats)

// LayerAdded calls f(stats).
func (f ObserverFunc) LayerAdded(stats LayerStats) {
	f(stats)
}

// LayerStats summarizes one level of the graph.
type LayerStats struct {
	// Level is the literal layer index. The action layer that produced it
	// has index Level-1.
	Level int `json:"level"`

	// Literals is the number of literals at this level.
	Literals int `json:"literals"`

	// LiteralMutexes is the number of mutex literal pairs at this level.
	LiteralMutexes int `json:"literal_mutexes"`

	// Actions is the number of actions in the producing action layer.
	Actions int `json:"actions"`

	// ActionMutexes is the number of mutex action pairs in the producing layer.
	ActionMutexes int `json:"action_mutexes"`

	// Leveled is true if the graph reached its fixed point at this level.
	Leveled bool `json:"leveled"`
}

// Graph is a relaxed planning graph: alternating literal and action layers
// grown on demand from an initial state.
//
// A Graph is not safe for concurrent use. It is built for one heuristic
// query context and discarded afterwards.
type Graph struct {
	problem *Problem
	opts    Options

	// actions is the action universe; no-ops first, indexed by id
	actions []*ActionNode

	// goal is the deduplicated, sorted goal
	goal []Literal

	literalLayers []*LiteralLayer
	actionLayers  []*ActionLayer

	leveled bool
}

// New builds the graph's first literal layer from the initial state vector.
// state[i] gives the value of problem.Facts[i].
func New(problem *Problem, state []bool, opts Options) (*Graph, error) {
	if problem == nil {
		return nil, NewInvalidError("problem is nil", nil)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if len(state) != len(problem.Facts) {
		return nil, NewInvalidError(
			fmt.Sprintf("state vector has %d entries, vocabulary has %d facts", len(state), len(problem.Facts)),
			nil,
		).WithCode(ErrCodeStateSize)
	}

	g := &Graph{
		problem:       problem,
		opts:          opts,
		actions:       buildActionNodes(problem),
		goal:          sortedLiterals(problem.Goal),
		literalLayers: make([]*LiteralLayer, 0),
		actionLayers:  make([]*ActionLayer, 0),
	}

	root := newLiteralLayer(g, 0)
	for i, value := range state {
		root.add(int(SignedLiteral(Fact(i), value)))
	}
	root.finalize()
	root.updateMutexes(nil)
	g.literalLayers = append(g.literalLayers, root)

	return g, nil
}

// Problem returns the problem the graph was built from.
func (g *Graph) Problem() *Problem {
	return g.problem
}

// Options returns the construction options.
func (g *Graph) Options() Options {
	return g.opts
}

// Goal returns the deduplicated goal literals.
func (g *Graph) Goal() []Literal {
	out := make([]Literal, len(g.goal))
	copy(out, g.goal)
	return out
}

// Leveled reports whether the graph has reached its fixed point.
func (g *Graph) Leveled() bool {
	return g.leveled
}

// Depth returns the number of literal layers built so far.
func (g *Graph) Depth() int {
	return len(g.literalLayers)
}

// LiteralLayer returns literal layer i, or nil if it has not been built.
func (g *Graph) LiteralLayer(i int) *LiteralLayer {
	if i < 0 || i >= len(g.literalLayers) {
		return nil
	}
	return g.literalLayers[i]
}

// ActionLayer returns action layer i, or nil if it has not been built.
func (g *Graph) ActionLayer(i int) *ActionLayer {
	if i < 0 || i >= len(g.actionLayers) {
		return nil
	}
	return g.actionLayers[i]
}

// Action returns the action node with the given id.
func (g *Graph) Action(id int) *ActionNode {
	if id < 0 || id >= len(g.actions) {
		return nil
	}
	return g.actions[id]
}

// FindAction returns the non-persistence action with the given name.
func (g *Graph) FindAction(name string) *ActionNode {
	for _, a := range g.actions[2*len(g.problem.Facts):] {
		if a.name == name {
			return a
		}
	}
	return nil
}

// Fill extends the graph until it levels off or maxLevels levels have been
// added. A negative maxLevels never interrupts the loop.
func (g *Graph) Fill(maxLevels int) *Graph {
	for !g.leveled {
		if maxLevels == 0 {
			break
		}
		g.extend()
		maxLevels--
	}
	return g
}

// Stats returns per-level statistics for every literal layer built so far.
func (g *Graph) Stats() []LayerStats {
	out := make([]LayerStats, 0, len(g.literalLayers))
	for i := range g.literalLayers {
		out = append(out, g.levelStats(i))
	}
	return out
}

func (g *Graph) levelStats(level int) LayerStats {
	ll := g.literalLayers[level]
	stats := LayerStats{
		Level:          level,
		Literals:       ll.Len(),
		LiteralMutexes: ll.mutexCount,
		Leveled:        g.leveled && level == len(g.literalLayers)-1,
	}
	if level > 0 {
		al := g.actionLayers[level-1]
		stats.Actions = al.Len()
		stats.ActionMutexes = al.mutexCount
	}
	return stats
}

// extend adds one action layer and one literal layer.
//
// The new action layer carries every action of the previous action layer
// and admits every action whose preconditions are all present in the last
// literal layer. The new literal layer is the union of their effects.
// Action mutexes are computed against the old literal layer before literal
// mutexes are computed against the new action layer.
func (g *Graph) extend() {
	if g.leveled {
		return
	}

	level := len(g.actionLayers)
	parentLiterals := g.literalLayers[level]
	var parentActions *ActionLayer
	if level > 0 {
		parentActions = g.actionLayers[level-1]
	}

	actionLayer := newActionLayer(g, level)
	literalLayer := newLiteralLayer(g, level+1)

	for _, a := range g.actions {
		carried := parentActions != nil && parentActions.contains(a.id)
		if carried || a.applicable(parentLiterals) {
			actionLayer.addAction(a)
			literalLayer.addEffects(a)
		}
	}

	actionLayer.finalize()
	literalLayer.finalize()

	actionLayer.updateMutexes(parentLiterals)
	literalLayer.updateMutexes(actionLayer)

	g.actionLayers = append(g.actionLayers, actionLayer)
	g.literalLayers = append(g.literalLayers, literalLayer)
	g.leveled = literalLayer.equal(&parentLiterals.layer)

	if g.opts.CheckInvariants {
		if err := g.CheckInvariants(); err != nil {
			panic(err)
		}
	}

	if g.opts.Observer != nil {
		g.opts.Observer.LayerAdded(g.levelStats(level + 1))
	}
}

// canExtend reports whether the level bound allows another expansion.
func (g *Graph) canExtend() bool {
	return g.opts.MaxLevels <= 0 || len(g.actionLayers) < g.opts.MaxLevels
}
