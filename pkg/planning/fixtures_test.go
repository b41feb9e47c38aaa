package planning

import (
	"fmt"
	"math/rand"
	"testing"
)

// builder assembles a problem from fact names and string literals.
type builder struct {
	t       *testing.T
	problem *Problem
}

func newBuilder(t *testing.T, facts ...string) *builder {
	t.Helper()
	return &builder{t: t, problem: &Problem{Name: t.Name(), Facts: facts}}
}

func (b *builder) lits(names ...string) []Literal {
	b.t.Helper()
	out := make([]Literal, 0, len(names))
	for _, n := range names {
		l, err := b.problem.ParseLiteral(n)
		if err != nil {
			b.t.Fatalf("Failed to parse literal %q: %v", n, err)
		}
		out = append(out, l)
	}
	return out
}

func (b *builder) action(name string, pre []string, eff []string) *builder {
	b.t.Helper()
	b.problem.Actions = append(b.problem.Actions, Action{
		Name:          name,
		Preconditions: b.lits(pre...),
		Effects:       b.lits(eff...),
	})
	return b
}

func (b *builder) goal(names ...string) *builder {
	b.t.Helper()
	b.problem.Goal = b.lits(names...)
	return b
}

func (b *builder) graph(trueFacts []string, opts Options) *Graph {
	b.t.Helper()
	state, err := b.problem.InitialState(trueFacts)
	if err != nil {
		b.t.Fatalf("Failed to build initial state: %v", err)
	}
	g, err := New(b.problem, state, opts)
	if err != nil {
		b.t.Fatalf("Failed to build graph: %v", err)
	}
	return g
}

// twoFactProblem has one action X achieving both A and B from nothing.
func twoFactProblem(t *testing.T) *builder {
	return newBuilder(t, "A", "B").
		action("X", nil, []string{"A", "B"}).
		goal("A", "B")
}

// interferingProblem has two producers that each undo the other's goal.
func interferingProblem(t *testing.T) *builder {
	return newBuilder(t, "A", "B").
		action("P", nil, []string{"A", "~B"}).
		action("Q", nil, []string{"B", "~A"}).
		goal("A", "B")
}

// resolvedProblem extends interferingProblem with a later producer R of
// both goals that needs C first.
func resolvedProblem(t *testing.T) *builder {
	return newBuilder(t, "A", "B", "C").
		action("P", nil, []string{"A", "~B"}).
		action("Q", nil, []string{"B", "~A"}).
		action("S", nil, []string{"C"}).
		action("R", []string{"C"}, []string{"A", "B"}).
		goal("A", "B")
}

// chainProblem needs three consecutive actions to reach C.
func chainProblem(t *testing.T) *builder {
	return newBuilder(t, "A", "B", "C").
		action("MakeA", nil, []string{"A"}).
		action("MakeB", []string{"A"}, []string{"B"}).
		action("MakeC", []string{"B"}, []string{"C"}).
		goal("C")
}

var (
	cargos   = []string{"C1", "C2"}
	planes   = []string{"P1", "P2"}
	airports = []string{"SFO", "JFK"}
)

// airCargoProblem is the two-cargo, two-plane, two-airport logistics
// problem: move C1 to JFK and C2 to SFO.
func airCargoProblem(t *testing.T) *builder {
	t.Helper()

	var facts []string
	for _, c := range cargos {
		for _, a := range airports {
			facts = append(facts, at(c, a))
		}
	}
	for _, p := range planes {
		for _, a := range airports {
			facts = append(facts, at(p, a))
		}
	}
	for _, c := range cargos {
		for _, p := range planes {
			facts = append(facts, in(c, p))
		}
	}

	b := newBuilder(t, facts...)
	for _, c := range cargos {
		for _, p := range planes {
			for _, a := range airports {
				b.action(fmt.Sprintf("Load(%s, %s, %s)", c, p, a),
					[]string{at(c, a), at(p, a)},
					[]string{in(c, p), "~" + at(c, a)})
				b.action(fmt.Sprintf("Unload(%s, %s, %s)", c, p, a),
					[]string{in(c, p), at(p, a)},
					[]string{at(c, a), "~" + in(c, p)})
			}
		}
	}
	for _, p := range planes {
		for _, from := range airports {
			for _, to := range airports {
				if from == to {
					continue
				}
				b.action(fmt.Sprintf("Fly(%s, %s, %s)", p, from, to),
					[]string{at(p, from)},
					[]string{at(p, to), "~" + at(p, from)})
			}
		}
	}
	return b.goal(at("C1", "JFK"), at("C2", "SFO"))
}

var airCargoInit = []string{at("C1", "SFO"), at("C2", "JFK"), at("P1", "SFO"), at("P2", "JFK")}

func at(x, a string) string { return fmt.Sprintf("At(%s, %s)", x, a) }
func in(c, p string) string { return fmt.Sprintf("In(%s, %s)", c, p) }

// randomProblem generates a reproducible problem large enough for the
// parallel mutex path.
func randomProblem(t *testing.T, seed int64, numFacts, numActions int) (*Problem, []bool) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	p := &Problem{Name: fmt.Sprintf("random-%d", seed)}
	for i := 0; i < numFacts; i++ {
		p.Facts = append(p.Facts, fmt.Sprintf("F%d", i))
	}
	randomLits := func(n int) []Literal {
		out := make([]Literal, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, SignedLiteral(Fact(rng.Intn(numFacts)), rng.Intn(2) == 0))
		}
		return out
	}
	for i := 0; i < numActions; i++ {
		p.Actions = append(p.Actions, Action{
			Name:          fmt.Sprintf("act%d", i),
			Preconditions: randomLits(rng.Intn(3)),
			Effects:       randomLits(1 + rng.Intn(3)),
		})
	}
	p.Goal = randomLits(3)

	state := make([]bool, numFacts)
	for i := range state {
		state[i] = rng.Intn(2) == 0
	}
	return p, state
}
