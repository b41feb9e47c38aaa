package stores

import (
	"context"
	"time"

	"github.com/openfroyo/plangraph/pkg/estimator"
)

// EstimateRecord is one row of the estimates table.
type EstimateRecord struct {
	ID            string         `json:"id"`
	Problem       string         `json:"problem"`
	Digest        string         `json:"digest"`
	State         string         `json:"state"`
	Kind          estimator.Kind `json:"kind"`
	Serialize     bool           `json:"serialize"`
	IgnoreMutexes bool           `json:"ignore_mutexes"`
	MaxLevels     int            `json:"max_levels"`
	Value         int            `json:"value"`
	Reachable     bool           `json:"reachable"`
	Levels        int            `json:"levels"`
	Leveled       bool           `json:"leveled"`
	Duration      time.Duration  `json:"duration"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Key returns the cache key the record is stored under.
func (r *EstimateRecord) Key() estimator.Key {
	return estimator.Key{
		Digest:        r.Digest,
		State:         r.State,
		Kind:          r.Kind,
		Serialize:     r.Serialize,
		IgnoreMutexes: r.IgnoreMutexes,
		MaxLevels:     r.MaxLevels,
	}
}

// Estimate converts the record back into an estimator result.
func (r *EstimateRecord) Estimate() *estimator.Estimate {
	return &estimator.Estimate{
		ID:        r.ID,
		Problem:   r.Problem,
		Digest:    r.Digest,
		State:     r.State,
		Kind:      r.Kind,
		Value:     r.Value,
		Reachable: r.Reachable,
		Levels:    r.Levels,
		Leveled:   r.Leveled,
		Duration:  r.Duration,
		CreatedAt: r.CreatedAt,
	}
}

// NewEstimateRecord flattens an estimate and its cache key into a row.
func NewEstimateRecord(key estimator.Key, est *estimator.Estimate) *EstimateRecord {
	return &EstimateRecord{
		ID:            est.ID,
		Problem:       est.Problem,
		Digest:        key.Digest,
		State:         key.State,
		Kind:          key.Kind,
		Serialize:     key.Serialize,
		IgnoreMutexes: key.IgnoreMutexes,
		MaxLevels:     key.MaxLevels,
		Value:         est.Value,
		Reachable:     est.Reachable,
		Levels:        est.Levels,
		Leveled:       est.Leveled,
		Duration:      est.Duration,
		CreatedAt:     est.CreatedAt,
	}
}

// ListFilter narrows ListEstimates. Nil fields match everything.
type ListFilter struct {
	Digest *string
	Kind   *estimator.Kind
	Limit  int
	Offset int
}

// Store defines the interface for the persistence layer
type Store interface {
	estimator.Cache

	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// History
	SaveEstimate(ctx context.Context, rec *EstimateRecord) error
	GetEstimate(ctx context.Context, id string) (*EstimateRecord, error)
	ListEstimates(ctx context.Context, filter ListFilter) ([]*EstimateRecord, error)
	CountEstimates(ctx context.Context, digest *string) (int, error)
	DeleteEstimates(ctx context.Context, digest string) (int64, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
