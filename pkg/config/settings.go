package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/plangraph/pkg/estimator"
	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/stores"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

// Settings is the tool settings file.
type Settings struct {
	Graph     GraphSettings    `yaml:"graph" json:"graph"`
	Store     StoreSettings    `yaml:"store" json:"store"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// GraphSettings are the planning graph and estimator defaults.
type GraphSettings struct {
	// Heuristic is the default heuristic, or "all".
	Heuristic string `yaml:"heuristic" json:"heuristic" validate:"oneof=levelsum maxlevel setlevel all"`

	// Serialize makes every pair of domain actions mutex.
	Serialize bool `yaml:"serialize" json:"serialize"`

	// IgnoreMutexes skips mutex computation entirely.
	IgnoreMutexes bool `yaml:"ignore_mutexes" json:"ignore_mutexes"`

	// MaxLevels bounds the number of action layers; 0 means unbounded.
	MaxLevels int `yaml:"max_levels" json:"max_levels" validate:"min=0"`

	// Workers bounds parallel mutex evaluation inside one layer.
	Workers int `yaml:"workers" json:"workers" validate:"min=0"`

	// BatchWorkers bounds how many states are estimated concurrently.
	BatchWorkers int `yaml:"batch_workers" json:"batch_workers" validate:"min=0"`

	// CheckInvariants verifies graph invariants after every expansion.
	CheckInvariants bool `yaml:"check_invariants" json:"check_invariants"`
}

// StoreSettings configure the estimate cache database.
type StoreSettings struct {
	// Path is the SQLite database file. Empty disables the cache.
	Path string `yaml:"path" json:"path"`

	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" validate:"min=0"`

	// Retention prunes estimates older than this on open; 0 keeps everything.
	Retention time.Duration `yaml:"retention" json:"retention" validate:"min=0"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	return &Settings{
		Graph: GraphSettings{
			Heuristic:    string(estimator.KindSetLevel),
			BatchWorkers: estimator.DefaultWorkers,
		},
		Store: StoreSettings{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// LoadSettings reads a settings file over the defaults. An empty path
// returns the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(settings); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	if err := newValidator().Struct(s); err != nil {
		return err
	}
	if err := s.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// Options returns the planning graph options.
func (g GraphSettings) Options() planning.Options {
	return planning.Options{
		Serialize:       g.Serialize,
		IgnoreMutexes:   g.IgnoreMutexes,
		MaxLevels:       g.MaxLevels,
		Workers:         g.Workers,
		CheckInvariants: g.CheckInvariants,
	}
}

// Kinds returns the heuristics selected by Heuristic.
func (g GraphSettings) Kinds() ([]estimator.Kind, error) {
	if g.Heuristic == "all" {
		return estimator.AllKinds, nil
	}
	k, err := estimator.ParseKind(g.Heuristic)
	if err != nil {
		return nil, err
	}
	return []estimator.Kind{k}, nil
}

// Enabled reports whether an estimate cache is configured.
func (s StoreSettings) Enabled() bool {
	return s.Path != ""
}

// StoreConfig returns the SQLite store configuration.
func (s StoreSettings) StoreConfig() stores.Config {
	return stores.Config{
		Path:            s.Path,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}
