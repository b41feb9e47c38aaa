package estimator

import (
	"context"
	"fmt"
	"strings"
)

// Cache stores finished estimates between runs. Implementations must be
// safe for concurrent use.
type Cache interface {
	// Get returns the cached estimate for key, or found=false.
	Get(ctx context.Context, key Key) (est *Estimate, found bool, err error)

	// Put stores est under key, replacing any previous entry.
	Put(ctx context.Context, key Key, est *Estimate) error
}

// Key identifies an estimate: the same problem, state, heuristic and graph
// options always yield the same value.
type Key struct {
	Digest        string `json:"digest"`
	State         string `json:"state"`
	Kind          Kind   `json:"kind"`
	Serialize     bool   `json:"serialize"`
	IgnoreMutexes bool   `json:"ignore_mutexes"`
	MaxLevels     int    `json:"max_levels"`
}

// String returns a compact, unique rendering of the key.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/s=%t/m=%t/l=%d",
		k.Digest, k.Kind, k.State, k.Serialize, k.IgnoreMutexes, k.MaxLevels)
}

// EncodeState renders a state vector as a string of '0' and '1'.
func EncodeState(state []bool) string {
	var sb strings.Builder
	sb.Grow(len(state))
	for _, v := range state {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// DecodeState parses a string produced by EncodeState.
func DecodeState(s string) ([]bool, error) {
	state := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '1':
			state[i] = true
		case '0':
		default:
			return nil, fmt.Errorf("invalid state character %q at position %d", c, i)
		}
	}
	return state, nil
}
