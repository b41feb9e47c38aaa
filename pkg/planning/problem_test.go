package planning

import (
	"errors"
	"strings"
	"testing"
)

func TestLiteral_Encoding(t *testing.T) {
	tests := []struct {
		lit      Literal
		fact     Fact
		positive bool
		str      string
	}{
		{lit: Pos(0), fact: 0, positive: true, str: "f0"},
		{lit: Neg(0), fact: 0, positive: false, str: "~f0"},
		{lit: Pos(7), fact: 7, positive: true, str: "f7"},
		{lit: SignedLiteral(3, false), fact: 3, positive: false, str: "~f3"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if tt.lit.Fact() != tt.fact {
				t.Errorf("Expected fact %d, got %d", tt.fact, tt.lit.Fact())
			}
			if tt.lit.Positive() != tt.positive {
				t.Errorf("Expected positive=%v", tt.positive)
			}
			if tt.lit.String() != tt.str {
				t.Errorf("Expected %q, got %q", tt.str, tt.lit.String())
			}
			if tt.lit.Negate().Negate() != tt.lit {
				t.Error("Expected double negation to be the identity")
			}
			if !tt.lit.IsNegationOf(tt.lit.Negate()) || tt.lit.IsNegationOf(tt.lit) {
				t.Error("IsNegationOf mismatch")
			}
		})
	}
}

func TestSplitLiteral(t *testing.T) {
	tests := []struct {
		in       string
		name     string
		positive bool
	}{
		{in: "At(C1, SFO)", name: "At(C1, SFO)", positive: true},
		{in: "~At(C1, SFO)", name: "At(C1, SFO)", positive: false},
		{in: "not Have", name: "Have", positive: false},
		{in: "  ~ Have ", name: "Have", positive: false},
		{in: "nothing", name: "nothing", positive: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, positive := SplitLiteral(tt.in)
			if name != tt.name || positive != tt.positive {
				t.Errorf("SplitLiteral(%q) = (%q, %v), want (%q, %v)", tt.in, name, positive, tt.name, tt.positive)
			}
		})
	}
}

func TestProblem_ParseAndFormat(t *testing.T) {
	p := &Problem{Facts: []string{"Have(Cake)", "Eaten(Cake)"}}

	l, err := p.ParseLiteral("~Eaten(Cake)")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if l != Neg(1) {
		t.Errorf("Expected %v, got %v", Neg(1), l)
	}
	if got := p.FormatLiteral(l); got != "~Eaten(Cake)" {
		t.Errorf("Expected ~Eaten(Cake), got %s", got)
	}

	_, err = p.ParseLiteral("Have(Pie)")
	if CodeOf(err) != ErrCodeUnknownFact {
		t.Errorf("Expected %s, got %v", ErrCodeUnknownFact, err)
	}
	var perr *PlanningError
	if !errors.As(err, &perr) || perr.Literal != "Have(Pie)" {
		t.Errorf("Expected literal context on error, got %v", err)
	}

	if got := p.FactName(9); !strings.Contains(got, "9") {
		t.Errorf("Expected placeholder naming fact 9, got %q", got)
	}
}

func TestProblem_Validate(t *testing.T) {
	tests := []struct {
		name     string
		problem  Problem
		wantCode string
	}{
		{
			name:     "duplicate fact",
			problem:  Problem{Facts: []string{"A", "A"}},
			wantCode: ErrCodeDuplicateFact,
		},
		{
			name: "empty action name",
			problem: Problem{
				Facts:   []string{"A"},
				Actions: []Action{{Effects: []Literal{Pos(0)}}},
			},
			wantCode: ErrCodeEmptyActionName,
		},
		{
			name: "precondition outside vocabulary",
			problem: Problem{
				Facts:   []string{"A"},
				Actions: []Action{{Name: "X", Preconditions: []Literal{Pos(1)}}},
			},
			wantCode: ErrCodeUnknownFact,
		},
		{
			name: "negative literal",
			problem: Problem{
				Facts: []string{"A"},
				Goal:  []Literal{-1},
			},
			wantCode: ErrCodeUnknownFact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.problem.Validate()
			if !IsInvalid(err) {
				t.Fatalf("Expected invalid error, got %v", err)
			}
			if CodeOf(err) != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, CodeOf(err))
			}
		})
	}

	ok := Problem{
		Facts:   []string{"A", "B"},
		Actions: []Action{{Name: "X", Preconditions: []Literal{Neg(1)}, Effects: []Literal{Pos(0)}}},
		Goal:    []Literal{Pos(0)},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Expected valid problem, got %v", err)
	}
}

func TestProblem_InitialState(t *testing.T) {
	p := &Problem{Facts: []string{"A", "B", "C"}}

	state, err := p.InitialState([]string{"C", "A"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []bool{true, false, true}
	for i := range want {
		if state[i] != want[i] {
			t.Errorf("Fact %d: expected %v, got %v", i, want[i], state[i])
		}
	}

	if _, err := p.InitialState([]string{"D"}); CodeOf(err) != ErrCodeUnknownFact {
		t.Errorf("Expected %s, got %v", ErrCodeUnknownFact, err)
	}
}

func TestProblem_Digest(t *testing.T) {
	base := func() *Problem {
		return &Problem{
			Facts: []string{"A", "B"},
			Actions: []Action{
				{Name: "X", Preconditions: []Literal{Neg(0), Neg(1)}, Effects: []Literal{Pos(0)}},
				{Name: "Y", Effects: []Literal{Pos(1)}},
			},
			Goal: []Literal{Pos(0), Pos(1)},
		}
	}

	reordered := base()
	reordered.Actions[0], reordered.Actions[1] = reordered.Actions[1], reordered.Actions[0]
	reordered.Actions[1].Preconditions = []Literal{Neg(1), Neg(0)}
	reordered.Goal = []Literal{Pos(1), Pos(0)}

	if base().Digest() != reordered.Digest() {
		t.Error("Expected digest to ignore action and literal order")
	}

	changed := base()
	changed.Goal = []Literal{Pos(0)}
	if base().Digest() == changed.Digest() {
		t.Error("Expected digest to change with the goal")
	}

	if len(base().Digest()) != 64 {
		t.Errorf("Expected hex sha256 digest, got %q", base().Digest())
	}
}

func TestPlanningError(t *testing.T) {
	cause := errors.New("boom")
	err := NewInvalidError("bad input", cause).
		WithCode(ErrCodeUnknownFact).
		WithAction("Load").
		WithLiteral("At(C1)").
		WithDetail("level", 2)

	msg := err.Error()
	for _, want := range []string{"[invalid]", "bad input", "action=Load", "literal=At(C1)", "boom"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in %q", want, msg)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error chain to contain the cause")
	}
	if !errors.Is(err, &PlanningError{Class: ErrorClassInvalid, Code: ErrCodeUnknownFact}) {
		t.Error("Expected errors.Is to match class and code")
	}
	if errors.Is(err, NewLimitError("")) {
		t.Error("Expected no match across classes")
	}
	if err.Details["level"] != 2 {
		t.Errorf("Expected level detail, got %v", err.Details)
	}

	if ClassOf(cause) != "" || CodeOf(nil) != "" {
		t.Error("Expected empty class and code for foreign errors")
	}
	if !IsInternal(NewInternalError("broken", nil)) {
		t.Error("Expected internal classification")
	}
}
