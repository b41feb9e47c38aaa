// Package planning implements a relaxed planning graph for STRIPS-style
// problems and the level-based heuristics computed on top of it.
//
// # Overview
//
// A planning graph alternates literal layers and action layers:
//
//	S0 -> A0 -> S1 -> A1 -> S2 -> ...
//
// S0 holds one literal per fact of the initial state. Action layer Ak holds
// every action whose preconditions are all present in Sk, plus one no-op per
// literal that carries it forward unchanged. Sk+1 is the union of the effects
// of Ak. Layers only grow: every node present at level k is present at every
// later level.
//
// # Core Types
//
//   - Fact, Literal: a fact index and a signed fact, encoded as 2*fact+sign
//   - Action, Problem: the compiled input (fact vocabulary, ground actions, goal)
//   - ActionNode: a graph action with a stable id; no-ops share the id of their literal
//   - LiteralLayer, ActionLayer: one depth of the graph with its mutex relation
//   - Graph: the layered graph grown on demand from an initial state
//
// # Mutual Exclusion
//
// Two actions in a layer are mutex when their effects contradict
// (inconsistent effects), an effect of one negates a precondition of the
// other (interference), or some of their preconditions are mutex in the
// parent literal layer (competing needs). With Options.Serialize any two
// distinct non-no-op actions are mutex as well.
//
// Two literals are mutex when they negate each other, or when every pair of
// actions producing them is mutex (inconsistent support). Layer 0 only uses
// the negation test.
//
// # Heuristics
//
// The heuristics expand the graph lazily until their condition holds:
//
//   - LevelSum: the sum of the first levels at which each goal literal appears
//   - MaxLevel: the first level at which all goal literals appear
//   - SetLevel: the first level at which all goal literals appear pairwise non-mutex
//
// The graph is leveled once a new literal layer equals the one it was
// expanded from. A heuristic that has not been satisfied by then returns
// Unreachable and an error for which IsUnreachable is true. When
// Options.MaxLevels stops expansion first, the error satisfies IsLevelLimit.
//
// # Usage
//
//	problem := &planning.Problem{
//	    Facts:   []string{"A", "B"},
//	    Actions: []planning.Action{{Name: "X", Effects: []planning.Literal{planning.Pos(0), planning.Pos(1)}}},
//	    Goal:    []planning.Literal{planning.Pos(0), planning.Pos(1)},
//	}
//	g, err := planning.New(problem, []bool{false, false}, planning.Options{})
//	if err != nil {
//	    return err
//	}
//	level, err := g.SetLevel() // 1
//
// # Thread Safety
//
// A Graph is owned by a single goroutine. Options.Workers parallelizes the
// mutex evaluation inside one layer; independent graphs may be built and
// queried concurrently.
package planning
