package estimator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

// interferingProblem has producers of A and B that undo each other, plus a
// slower producer R of both behind S. Without S it is unreachable for setlevel.
func interferingProblem(withResolver bool) *planning.Problem {
	const (
		a planning.Fact = iota
		b
		c
	)
	p := &planning.Problem{
		Name:  "interfering",
		Facts: []string{"A", "B", "C"},
		Actions: []planning.Action{
			{Name: "P", Effects: []planning.Literal{planning.Pos(a), planning.Neg(b)}},
			{Name: "Q", Effects: []planning.Literal{planning.Pos(b), planning.Neg(a)}},
		},
		Goal: []planning.Literal{planning.Pos(a), planning.Pos(b)},
	}
	if withResolver {
		p.Actions = append(p.Actions,
			planning.Action{Name: "S", Effects: []planning.Literal{planning.Pos(c)}},
			planning.Action{
				Name:          "R",
				Preconditions: []planning.Literal{planning.Pos(c)},
				Effects:       []planning.Literal{planning.Pos(a), planning.Pos(b)},
			},
		)
	}
	return p
}

// chainProblem needs n consecutive actions to reach its goal.
func chainProblem(n int) *planning.Problem {
	p := &planning.Problem{Name: "chain"}
	for i := 0; i < n; i++ {
		p.Facts = append(p.Facts, string(rune('A'+i)))
	}
	p.Actions = append(p.Actions, planning.Action{Name: "step0", Effects: []planning.Literal{planning.Pos(0)}})
	for i := 1; i < n; i++ {
		p.Actions = append(p.Actions, planning.Action{
			Name:          "step" + string(rune('0'+i)),
			Preconditions: []planning.Literal{planning.Pos(planning.Fact(i - 1))},
			Effects:       []planning.Literal{planning.Pos(planning.Fact(i))},
		})
	}
	p.Goal = []planning.Literal{planning.Pos(planning.Fact(n - 1))}
	return p
}

func newEstimator(t *testing.T, p *planning.Problem, cfg Config) *Estimator {
	t.Helper()
	e, err := New(p, cfg)
	if err != nil {
		t.Fatalf("Failed to create estimator: %v", err)
	}
	return e
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "levelsum", want: KindLevelSum},
		{in: "Level-Sum", want: KindLevelSum},
		{in: "max_level", want: KindMaxLevel},
		{in: " SETLEVEL ", want: KindSetLevel},
		{in: "ff", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStateEncoding(t *testing.T) {
	state := []bool{true, false, false, true}
	s := EncodeState(state)
	if s != "1001" {
		t.Errorf("Expected 1001, got %s", s)
	}
	back, err := DecodeState(s)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := range state {
		if back[i] != state[i] {
			t.Errorf("Position %d: expected %v, got %v", i, state[i], back[i])
		}
	}
	if _, err := DecodeState("10x"); err == nil {
		t.Error("Expected error for invalid character")
	}
}

func TestEstimator_New(t *testing.T) {
	if _, err := New(nil, Config{}); !planning.IsInvalid(err) {
		t.Errorf("Expected invalid error for nil problem, got %v", err)
	}
	if _, err := New(&planning.Problem{}, Config{}); !planning.IsInvalid(err) {
		t.Errorf("Expected invalid error for empty problem, got %v", err)
	}

	cfg := Config{Graph: planning.Options{Observer: planning.ObserverFunc(func(planning.LayerStats) {})}}
	if _, err := New(chainProblem(2), cfg); err == nil {
		t.Error("Expected error when an observer is preset")
	}

	e := newEstimator(t, chainProblem(2), Config{})
	if e.config.Workers != DefaultWorkers {
		t.Errorf("Expected default workers %d, got %d", DefaultWorkers, e.config.Workers)
	}
	if e.Digest() != chainProblem(2).Digest() {
		t.Error("Expected digest of the problem")
	}
}

func TestEstimator_Estimate(t *testing.T) {
	ctx := context.Background()
	state := []bool{false, false, false}

	tests := []struct {
		name          string
		problem       *planning.Problem
		kind          Kind
		wantValue     int
		wantReachable bool
	}{
		{name: "setlevel resolved", problem: interferingProblem(true), kind: KindSetLevel, wantValue: 2, wantReachable: true},
		{name: "maxlevel", problem: interferingProblem(false), kind: KindMaxLevel, wantValue: 1, wantReachable: true},
		{name: "levelsum", problem: interferingProblem(false), kind: KindLevelSum, wantValue: 2, wantReachable: true},
		{name: "setlevel unreachable", problem: interferingProblem(false), kind: KindSetLevel, wantValue: planning.Unreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEstimator(t, tt.problem, Config{})
			s := state[:len(tt.problem.Facts)]

			est, err := e.Estimate(ctx, s, tt.kind)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if est.Value != tt.wantValue {
				t.Errorf("Expected value %d, got %d", tt.wantValue, est.Value)
			}
			if est.Reachable != tt.wantReachable {
				t.Errorf("Expected reachable=%v, got %v", tt.wantReachable, est.Reachable)
			}
			if !tt.wantReachable && !est.Leveled {
				t.Error("Expected unreachable estimate to come from a leveled graph")
			}
			if est.ID == "" || est.Kind != tt.kind || est.Digest != e.Digest() {
				t.Errorf("Unexpected metadata: %+v", est)
			}
			if est.State != EncodeState(s) {
				t.Errorf("Expected state %s, got %s", EncodeState(s), est.State)
			}
		})
	}
}

func TestEstimator_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("level limit", func(t *testing.T) {
		e := newEstimator(t, chainProblem(4), Config{Graph: planning.Options{MaxLevels: 2}})
		est, err := e.Estimate(ctx, make([]bool, 4), KindMaxLevel)
		if est != nil {
			t.Error("Expected no estimate on error")
		}
		if !planning.IsLevelLimit(err) {
			t.Fatalf("Expected level limit error, got %v", err)
		}
	})

	t.Run("state size", func(t *testing.T) {
		e := newEstimator(t, chainProblem(3), Config{})
		_, err := e.Estimate(ctx, []bool{true}, KindLevelSum)
		if planning.CodeOf(err) != planning.ErrCodeStateSize {
			t.Errorf("Expected %s, got %v", planning.ErrCodeStateSize, err)
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		e := newEstimator(t, chainProblem(3), Config{})
		_, err := e.Estimate(ctx, make([]bool, 3), Kind("hadd"))
		if !planning.IsInvalid(err) {
			t.Errorf("Expected invalid error, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		e := newEstimator(t, chainProblem(3), Config{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.Estimate(cctx, make([]bool, 3), KindLevelSum)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestEstimator_EstimateAll(t *testing.T) {
	ctx := context.Background()
	p := interferingProblem(true)
	state := make([]bool, len(p.Facts))
	e := newEstimator(t, p, Config{})

	all, err := e.EstimateAll(ctx, state)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(all) != len(AllKinds) {
		t.Fatalf("Expected %d estimates, got %d", len(AllKinds), len(all))
	}

	for i, kind := range AllKinds {
		single, err := e.Estimate(ctx, state, kind)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if all[i].Kind != kind {
			t.Errorf("Position %d: expected kind %s, got %s", i, kind, all[i].Kind)
		}
		if all[i].Value != single.Value || all[i].Reachable != single.Reachable {
			t.Errorf("%s: shared graph gave %d, fresh graph gave %d", kind, all[i].Value, single.Value)
		}
	}
}

func TestEstimator_EstimateBatch(t *testing.T) {
	ctx := context.Background()
	e := newEstimator(t, chainProblem(4), Config{Workers: 3})

	// Each state makes one more fact of the chain true.
	states := make([][]bool, 5)
	want := []int{4, 3, 2, 1, 0}
	for i := range states {
		states[i] = make([]bool, 4)
		for j := 0; j < i && j < 4; j++ {
			states[i][j] = true
		}
	}
	states[4][3] = true

	results, err := e.EstimateBatch(ctx, states, KindMaxLevel)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i, est := range results {
		if est.Value != want[i] {
			t.Errorf("State %d: expected %d, got %d", i, want[i], est.Value)
		}
	}

	states = append(states, []bool{true})
	if _, err := e.EstimateBatch(ctx, states, KindMaxLevel); !planning.IsInvalid(err) {
		t.Errorf("Expected invalid error from malformed state, got %v", err)
	}
}

// memoryCache is an in-process Cache for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]Estimate
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]Estimate)}
}

func (c *memoryCache) Get(_ context.Context, key Key) (*Estimate, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	est, ok := c.entries[key.String()]
	if !ok {
		return nil, false, nil
	}
	return &est, true, nil
}

func (c *memoryCache) Put(_ context.Context, key Key, est *Estimate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = *est
	c.puts++
	return nil
}

func TestEstimator_Cache(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	p := interferingProblem(false)
	state := make([]bool, len(p.Facts))
	e := newEstimator(t, p, Config{Cache: cache})

	first, err := e.Estimate(ctx, state, KindSetLevel)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("Expected first estimate to be computed")
	}

	second, err := e.Estimate(ctx, state, KindSetLevel)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !second.Cached || second.ID != first.ID || second.Value != first.Value {
		t.Errorf("Expected cached copy of %+v, got %+v", first, second)
	}
	if cache.puts != 1 {
		t.Errorf("Expected 1 cache write, got %d", cache.puts)
	}

	serial := newEstimator(t, p, Config{Cache: cache, Graph: planning.Options{Serialize: true}})
	if serial.Key(state, KindSetLevel) == e.Key(state, KindSetLevel) {
		t.Error("Expected graph options to be part of the cache key")
	}
}

func TestEstimator_Telemetry(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	tel, err := telemetry.NewTelemetryWithLogger(cfg, telemetry.NopLogger())
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}
	defer tel.Shutdown(context.Background())

	var (
		mu    sync.Mutex
		types []string
	)
	tel.Events.Subscribe(func(ev telemetry.Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	}, nil)

	ctx := tel.WithContext(context.Background())
	p := interferingProblem(false)
	e := newEstimator(t, p, Config{})

	est, err := e.Estimate(ctx, make([]bool, len(p.Facts)), KindSetLevel)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if est.Reachable {
		t.Fatal("Expected unreachable estimate")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		telemetry.EventTypeEstimateStarted,
		telemetry.EventTypeGraphLeveled,
		telemetry.EventTypeEstimateUnreachable,
	}
	if len(types) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], types[i])
		}
	}
}
