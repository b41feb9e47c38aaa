// Package estimator answers planning graph heuristic queries for a problem.
//
// An Estimator owns a validated planning.Problem and a set of graph
// options. Every query builds a fresh planning.Graph from the given state,
// evaluates one heuristic and discards the graph:
//
//	est, err := estimator.New(problem, estimator.Config{Graph: planning.Options{MaxLevels: 64}})
//	if err != nil {
//	    return err
//	}
//	res, err := est.Estimate(ctx, state, estimator.KindSetLevel)
//
// A goal that the graph proves unreachable is a result, not an error:
// res.Reachable is false and res.Value is planning.Unreachable. Invalid
// input and an exhausted level bound are returned as errors that keep their
// planning classification, so planning.IsLevelLimit(err) still works.
//
// EstimateBatch evaluates many states with a bounded worker pool, and an
// optional Cache (see pkg/stores) short-circuits repeated queries.
//
// Queries are instrumented through the telemetry.Telemetry carried in the
// context: one span per estimate with an event per expanded level, metrics
// for graphs, levels and outcomes, and estimate.* events.
package estimator
