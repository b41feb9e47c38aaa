package estimator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

// Estimate is the result of one heuristic query.
type Estimate struct {
	// ID is a unique identifier for this estimate.
	ID string `json:"id"`

	// Problem is the problem name.
	Problem string `json:"problem"`

	// Digest is the problem digest.
	Digest string `json:"digest"`

	// State is the encoded initial state (see EncodeState).
	State string `json:"state"`

	// Kind is the heuristic that was evaluated.
	Kind Kind `json:"kind"`

	// Value is the heuristic value, planning.Unreachable when Reachable is false.
	Value int `json:"value"`

	// Reachable is false when the graph leveled off before the goal was satisfied.
	Reachable bool `json:"reachable"`

	// Levels is the number of action layers built to answer the query.
	Levels int `json:"levels"`

	// Leveled reports whether the graph reached its fixed point.
	Leveled bool `json:"leveled"`

	// Duration is the wall time spent building the graph and evaluating the heuristic.
	Duration time.Duration `json:"duration"`

	// CreatedAt is when the estimate was computed.
	CreatedAt time.Time `json:"created_at"`

	// Cached is true when the estimate was served from the cache.
	Cached bool `json:"cached"`
}

// Config configures an Estimator.
type Config struct {
	// Graph holds the planning graph options used for every query.
	Graph planning.Options

	// Workers bounds the number of states EstimateBatch evaluates concurrently.
	// Zero means DefaultWorkers.
	Workers int

	// Cache, if set, is consulted before and updated after every query.
	Cache Cache
}

// DefaultWorkers is the batch concurrency used when Config.Workers is zero.
const DefaultWorkers = 4

// Estimator answers heuristic queries for one problem. Every query builds a
// fresh planning graph, so an Estimator is safe for concurrent use.
type Estimator struct {
	problem *planning.Problem
	digest  string
	config  Config
}

// New creates an estimator for problem. The problem is validated once here.
func New(problem *planning.Problem, cfg Config) (*Estimator, error) {
	if problem == nil {
		return nil, planning.NewInvalidError("problem is nil", nil)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Graph.Observer != nil {
		return nil, fmt.Errorf("graph observer is managed by the estimator")
	}

	return &Estimator{
		problem: problem,
		digest:  problem.Digest(),
		config:  cfg,
	}, nil
}

// Problem returns the problem the estimator answers queries for.
func (e *Estimator) Problem() *planning.Problem {
	return e.problem
}

// Digest returns the problem digest used in cache keys.
func (e *Estimator) Digest() string {
	return e.digest
}

// Key returns the cache key for a query.
func (e *Estimator) Key(state []bool, kind Kind) Key {
	return Key{
		Digest:        e.digest,
		State:         EncodeState(state),
		Kind:          kind,
		Serialize:     e.config.Graph.Serialize,
		IgnoreMutexes: e.config.Graph.IgnoreMutexes,
		MaxLevels:     e.config.Graph.MaxLevels,
	}
}

// Estimate evaluates one heuristic from state.
//
// An unreachable goal is a successful result with Reachable set to false.
// Invalid input and an exhausted level bound are returned as errors that
// keep their planning classification.
func (e *Estimator) Estimate(ctx context.Context, state []bool, kind Kind) (*Estimate, error) {
	if err := kind.Validate(); err != nil {
		return nil, planning.NewInvalidError(err.Error(), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := e.begin(ctx, state, kind)
	defer q.end()

	if est, ok := q.lookup(); ok {
		return est, nil
	}

	g, err := planning.New(e.problem, state, q.graphOptions())
	if err != nil {
		return nil, q.fail(err, 0)
	}
	q.graphBuilt()

	value, err := kind.eval(g)
	return q.finish(g, value, err)
}

// EstimateAll evaluates every heuristic from state. The three heuristics
// share one graph, which is expanded only as far as the deepest of them
// requires.
func (e *Estimator) EstimateAll(ctx context.Context, state []bool) ([]*Estimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g *planning.Graph
	out := make([]*Estimate, 0, len(AllKinds))
	for _, kind := range AllKinds {
		est, err := func() (*Estimate, error) {
			q := e.begin(ctx, state, kind)
			defer q.end()

			if est, ok := q.lookup(); ok {
				return est, nil
			}

			if g == nil {
				var err error
				g, err = planning.New(e.problem, state, q.graphOptions())
				if err != nil {
					return nil, q.fail(err, 0)
				}
				q.graphBuilt()
			}
			q.rebind(g)

			value, err := kind.eval(g)
			return q.finish(g, value, err)
		}()
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}

// EstimateBatch evaluates kind for every state concurrently, bounded by
// Config.Workers. Results are returned in input order. The first error
// cancels the remaining queries.
func (e *Estimator) EstimateBatch(ctx context.Context, states [][]bool, kind Kind) ([]*Estimate, error) {
	if err := kind.Validate(); err != nil {
		return nil, planning.NewInvalidError(err.Error(), nil)
	}

	op := telemetry.StartOperation(ctx, "estimate.batch",
		telemetry.AttrHeuristic.String(kind.String()),
		telemetry.AttrProblem.String(e.problem.Name),
	)
	var batchErr error
	defer func() { op.End(batchErr) }()

	results := make([]*Estimate, len(states))

	g, gctx := errgroup.WithContext(op.Ctx)
	g.SetLimit(e.config.Workers)
	for i, state := range states {
		i, state := i, state
		g.Go(func() error {
			est, err := e.Estimate(gctx, state, kind)
			if err != nil {
				return fmt.Errorf("state %d: %w", i, err)
			}
			results[i] = est
			return nil
		})
	}
	if batchErr = g.Wait(); batchErr != nil {
		return nil, batchErr
	}

	op.Logger.Debugf("batch of %d estimates finished in %s", len(states), op.Timer.Duration())
	return results, nil
}

// query carries the instrumentation of a single heuristic evaluation.
type query struct {
	e      *Estimator
	ctx    context.Context
	tel    *telemetry.Telemetry
	op     *telemetry.InstrumentedContext
	logger *telemetry.Logger
	id     string
	key    Key
	kind   Kind
	timer  *telemetry.Timer
	err    error
}

func (e *Estimator) begin(ctx context.Context, state []bool, kind Kind) *query {
	id := uuid.New().String()
	op := telemetry.StartOperation(ctx, "estimate."+kind.String(),
		telemetry.AttrEstimateID.String(id),
		telemetry.AttrHeuristic.String(kind.String()),
		telemetry.AttrProblem.String(e.problem.Name),
		telemetry.AttrDigest.String(e.digest),
	)

	q := &query{
		e:      e,
		ctx:    op.Ctx,
		tel:    telemetry.FromTelemetryContext(ctx),
		op:     op,
		logger: op.Logger.WithProblem(e.problem.Name, e.digest).WithHeuristic(kind.String()).WithEstimateID(id),
		id:     id,
		key:    e.Key(state, kind),
		kind:   kind,
		timer:  telemetry.NewTimer(),
	}

	if q.tel != nil {
		q.tel.Metrics.RecordEstimateStarted()
		_ = q.tel.Events.PublishEstimateStarted(id, e.problem.Name, kind.String())
	}
	q.logger.Debug("Estimate started")
	return q
}

func (q *query) end() {
	q.op.End(q.err)
}

// lookup consults the cache. Cache errors are logged and treated as misses.
func (q *query) lookup() (*Estimate, bool) {
	cache := q.e.config.Cache
	if cache == nil {
		return nil, false
	}

	est, found, err := cache.Get(q.ctx, q.key)
	if err != nil {
		q.logger.WithError(err).Warn("Estimate cache lookup failed")
		found = false
	}
	if q.tel != nil {
		q.tel.Metrics.RecordCacheLookup(found)
	}
	if !found {
		return nil, false
	}

	est.Cached = true
	if q.tel != nil {
		q.tel.Metrics.RecordEstimate(q.kind.String(), "cached", q.timer.Duration(), est.Levels)
	}
	q.logger.Debug("Estimate served from cache")
	return est, true
}

func (q *query) graphOptions() planning.Options {
	opts := q.e.config.Graph
	opts.Observer = &observer{q: q}
	return opts
}

// rebind routes expansion notifications of a shared graph to this query.
func (q *query) rebind(g *planning.Graph) {
	if obs, ok := g.Options().Observer.(*observer); ok {
		obs.q = q
	}
}

func (q *query) graphBuilt() {
	if q.tel != nil {
		q.tel.Metrics.RecordGraphBuilt()
	}
}

// fail records err and returns it wrapped with the heuristic name.
func (q *query) fail(err error, levels int) error {
	q.err = err
	class, code := string(planning.ClassOf(err)), planning.CodeOf(err)
	if class == "" {
		class = "unknown"
	}

	if q.tel != nil {
		outcome := "error"
		if planning.IsLevelLimit(err) {
			outcome = "limit"
		}
		q.tel.Metrics.RecordError(class, code)
		q.tel.Metrics.RecordEstimate(q.kind.String(), outcome, q.timer.Duration(), levels)
		_ = q.tel.Events.PublishError(q.id, q.e.problem.Name, class, code, err.Error())
	}
	if q.op.Span != nil {
		q.op.Span.SetAttributes(
			telemetry.AttrErrorClass.String(class),
			telemetry.AttrErrorCode.String(code),
		)
	}
	q.logger.WithError(err).Warn("Estimate failed")
	return fmt.Errorf("%s estimate: %w", q.kind, err)
}

// finish turns a heuristic result into an Estimate.
func (q *query) finish(g *planning.Graph, value int, err error) (*Estimate, error) {
	est := &Estimate{
		ID:        q.id,
		Problem:   q.e.problem.Name,
		Digest:    q.e.digest,
		State:     q.key.State,
		Kind:      q.kind,
		Value:     value,
		Reachable: err == nil,
		Levels:    g.Depth() - 1,
		Leveled:   g.Leveled(),
		Duration:  q.timer.Duration(),
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case err == nil:
	case planning.IsUnreachable(err):
		est.Value = planning.Unreachable
	default:
		return nil, q.fail(err, est.Levels)
	}

	outcome := "reachable"
	if !est.Reachable {
		outcome = "unreachable"
	}
	if q.tel != nil {
		q.tel.Metrics.RecordEstimate(q.kind.String(), outcome, est.Duration, est.Levels)
		if est.Reachable {
			_ = q.tel.Events.PublishEstimateCompleted(q.id, est.Problem, q.kind.String(), est.Value, est.Levels, est.Duration)
		} else {
			_ = q.tel.Events.PublishEstimateUnreachable(q.id, est.Problem, q.kind.String(), est.Levels)
		}
	}
	if q.op.Span != nil {
		q.op.Span.SetAttributes(
			telemetry.AttrValue.Int(est.Value),
			telemetry.AttrReachable.Bool(est.Reachable),
		)
	}
	q.logger.WithFields(map[string]interface{}{
		"value":     est.Value,
		"reachable": est.Reachable,
		"levels":    est.Levels,
	}).Debug("Estimate completed")

	if cache := q.e.config.Cache; cache != nil {
		if err := cache.Put(q.ctx, q.key, est); err != nil {
			q.logger.WithError(err).Warn("Failed to cache estimate")
		}
	}

	return est, nil
}

// observer forwards graph expansions to the current query's telemetry.
type observer struct {
	q *query
}

func (o *observer) LayerAdded(stats planning.LayerStats) {
	q := o.q
	if q.tel != nil {
		q.tel.Metrics.RecordLayer(stats.Literals, stats.LiteralMutexes, stats.ActionMutexes, stats.Leveled)
		if stats.Leveled {
			_ = q.tel.Events.PublishGraphLeveled(q.id, q.e.problem.Name, stats.Level)
		}
	}
	if span := q.op.Span; span != nil {
		telemetry.AddLayerEvent(span, stats.Level, stats.Literals, stats.LiteralMutexes,
			stats.Actions, stats.ActionMutexes, stats.Leveled)
	}
	q.logger.Trace(fmt.Sprintf("level %d: %d literals, %d actions", stats.Level, stats.Literals, stats.Actions))
}
