package estimator

import (
	"fmt"
	"strings"

	"github.com/openfroyo/plangraph/pkg/planning"
)

// Kind identifies a planning graph heuristic.
type Kind string

const (
	// KindLevelSum sums the first levels of the individual goal literals.
	KindLevelSum Kind = "levelsum"

	// KindMaxLevel is the first level containing every goal literal.
	KindMaxLevel Kind = "maxlevel"

	// KindSetLevel is the first level containing every goal literal pairwise non-mutex.
	KindSetLevel Kind = "setlevel"
)

// AllKinds lists every heuristic in evaluation order.
var AllKinds = []Kind{KindLevelSum, KindMaxLevel, KindSetLevel}

// ParseKind parses a heuristic name case-insensitively. "level-sum" and
// "level_sum" style spellings are accepted.
func ParseKind(s string) (Kind, error) {
	normalized := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	k := Kind(normalized)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate returns an error for unknown kinds.
func (k Kind) Validate() error {
	switch k {
	case KindLevelSum, KindMaxLevel, KindSetLevel:
		return nil
	}
	return fmt.Errorf("unknown heuristic %q (expected levelsum, maxlevel or setlevel)", string(k))
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// eval runs the heuristic on g.
func (k Kind) eval(g *planning.Graph) (int, error) {
	switch k {
	case KindLevelSum:
		return g.LevelSum()
	case KindMaxLevel:
		return g.MaxLevel()
	case KindSetLevel:
		return g.SetLevel()
	}
	return planning.Unreachable, k.Validate()
}
