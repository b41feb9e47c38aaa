package planning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Action is a ground action as supplied by the problem description.
type Action struct {
	// Name identifies the action, e.g. "Fly(P1, SFO, JFK)".
	Name string `json:"name"`

	// Preconditions are the literals that must hold before the action applies.
	Preconditions []Literal `json:"preconditions"`

	// Effects are the literals that hold after the action is applied.
	Effects []Literal `json:"effects"`
}

// Problem is a compiled planning problem: a fixed fact vocabulary, a list of
// ground actions and a goal. The order of Facts defines the state vector
// layout accepted by New.
type Problem struct {
	// Name is an optional human-readable name.
	Name string `json:"name,omitempty"`

	// Facts is the fact vocabulary; Fact(i) names Facts[i].
	Facts []string `json:"facts"`

	// Actions is the list of ground actions.
	Actions []Action `json:"actions"`

	// Goal is the set of literals that must hold together.
	Goal []Literal `json:"goal"`
}

// NumFacts returns the size of the fact vocabulary.
func (p *Problem) NumFacts() int {
	return len(p.Facts)
}

// FactName returns the name of f, or a placeholder for facts outside the vocabulary.
func (p *Problem) FactName(f Fact) string {
	if f < 0 || int(f) >= len(p.Facts) {
		return fmt.Sprintf("<fact %d>", f)
	}
	return p.Facts[f]
}

// FormatLiteral renders l using the vocabulary, negations prefixed with "~".
func (p *Problem) FormatLiteral(l Literal) string {
	if l.Positive() {
		return p.FactName(l.Fact())
	}
	return "~" + p.FactName(l.Fact())
}

// LookupFact returns the fact with the given name.
func (p *Problem) LookupFact(name string) (Fact, bool) {
	for i, f := range p.Facts {
		if f == name {
			return Fact(i), true
		}
	}
	return 0, false
}

// ParseLiteral parses "Name", "~Name" or "not Name" against the vocabulary.
func (p *Problem) ParseLiteral(s string) (Literal, error) {
	name, positive := SplitLiteral(s)
	f, ok := p.LookupFact(name)
	if !ok {
		return 0, NewInvalidError("unknown fact", nil).
			WithCode(ErrCodeUnknownFact).
			WithLiteral(s)
	}
	return SignedLiteral(f, positive), nil
}

// SplitLiteral strips a negation prefix from s and reports the polarity.
func SplitLiteral(s string) (name string, positive bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "~"):
		return strings.TrimSpace(s[1:]), false
	case strings.HasPrefix(s, "not "):
		return strings.TrimSpace(s[4:]), false
	}
	return s, true
}

// Validate checks the problem for malformed input: an empty or duplicated
// vocabulary, unnamed or duplicated actions, and literals that reference
// facts outside the vocabulary.
func (p *Problem) Validate() error {
	if len(p.Facts) == 0 {
		return NewInvalidError("problem has an empty fact vocabulary", nil).
			WithCode(ErrCodeEmptyVocabulary)
	}

	seen := make(map[string]struct{}, len(p.Facts))
	for _, f := range p.Facts {
		if _, dup := seen[f]; dup {
			return NewInvalidError("duplicate fact in vocabulary", nil).
				WithCode(ErrCodeDuplicateFact).
				WithLiteral(f)
		}
		seen[f] = struct{}{}
	}

	names := make(map[string]struct{}, len(p.Actions))
	for _, a := range p.Actions {
		if a.Name == "" {
			return NewInvalidError("action has an empty name", nil).
				WithCode(ErrCodeEmptyActionName)
		}
		if _, dup := names[a.Name]; dup {
			return NewInvalidError("duplicate action name", nil).
				WithCode(ErrCodeDuplicateAction).
				WithAction(a.Name)
		}
		names[a.Name] = struct{}{}

		if err := p.checkLiterals(a.Preconditions, "precondition"); err != nil {
			return err.WithAction(a.Name)
		}
		if err := p.checkLiterals(a.Effects, "effect"); err != nil {
			return err.WithAction(a.Name)
		}
	}

	if err := p.checkLiterals(p.Goal, "goal literal"); err != nil {
		return err
	}

	return nil
}

func (p *Problem) checkLiterals(lits []Literal, role string) *PlanningError {
	for _, l := range lits {
		if l < 0 || int(l.Fact()) >= len(p.Facts) {
			return NewInvalidError(fmt.Sprintf("%s references an unknown fact", role), nil).
				WithCode(ErrCodeUnknownFact).
				WithLiteral(l.String())
		}
	}
	return nil
}

// InitialState returns the state vector in which exactly the named facts are true.
func (p *Problem) InitialState(trueFacts []string) ([]bool, error) {
	state := make([]bool, len(p.Facts))
	for _, name := range trueFacts {
		f, ok := p.LookupFact(name)
		if !ok {
			return nil, NewInvalidError("initial state references an unknown fact", nil).
				WithCode(ErrCodeUnknownFact).
				WithLiteral(name)
		}
		state[f] = true
	}
	return state, nil
}

// Digest returns a stable content hash of the problem. Action order and
// literal order inside actions do not affect the digest.
func (p *Problem) Digest() string {
	h := sha256.New()
	for _, f := range p.Facts {
		fmt.Fprintf(h, "F %s\n", f)
	}

	lines := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		lines = append(lines, fmt.Sprintf("A %s %v %v", a.Name, sortedLiterals(a.Preconditions), sortedLiterals(a.Effects)))
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(h, line)
	}

	fmt.Fprintf(h, "G %v\n", sortedLiterals(p.Goal))
	return hex.EncodeToString(h.Sum(nil))
}

// sortedLiterals returns a sorted copy of lits without duplicates.
func sortedLiterals(lits []Literal) []Literal {
	out := make([]Literal, 0, len(lits))
	out = append(out, lits...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	w := 0
	for i, l := range out {
		if i > 0 && l == out[w-1] {
			continue
		}
		out[w] = l
		w++
	}
	return out[:w]
}
