package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfroyo/plangraph/pkg/estimator"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings are invalid: %v", err)
	}
	if s.Store.Enabled() {
		t.Error("expected store to be disabled by default")
	}

	kinds, err := s.Graph.Kinds()
	if err != nil {
		t.Fatalf("failed to parse heuristic: %v", err)
	}
	if len(kinds) != 1 || kinds[0] != estimator.KindSetLevel {
		t.Errorf("Expected [setlevel], got %v", kinds)
	}

	if got, err := LoadSettings(""); err != nil || got.Graph.Heuristic != s.Graph.Heuristic {
		t.Errorf("Expected defaults for empty path, got %+v, %v", got, err)
	}
}

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings(filepath.Join("testdata", "settings.yaml"))
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}

	if s.Graph.MaxLevels != 32 || s.Graph.Workers != 4 || !s.Graph.CheckInvariants {
		t.Errorf("unexpected graph settings: %+v", s.Graph)
	}
	kinds, err := s.Graph.Kinds()
	if err != nil {
		t.Fatalf("failed to parse heuristic: %v", err)
	}
	if len(kinds) != 3 {
		t.Errorf("Expected all three heuristics, got %v", kinds)
	}

	opts := s.Graph.Options()
	if opts.MaxLevels != 32 || opts.Workers != 4 || !opts.CheckInvariants {
		t.Errorf("unexpected graph options: %+v", opts)
	}

	if !s.Store.Enabled() || s.Store.Retention != 72*time.Hour {
		t.Errorf("unexpected store settings: %+v", s.Store)
	}
	// Unset store fields keep their defaults.
	cfg := s.Store.StoreConfig()
	if cfg.Path != "/tmp/plangraph.db" || cfg.MaxOpenConns != 25 {
		t.Errorf("unexpected store config: %+v", cfg)
	}

	if s.Telemetry.ServiceName != "plangraph-test" || s.Telemetry.Logging.Format != "json" {
		t.Errorf("unexpected telemetry settings: %+v", s.Telemetry)
	}
	if s.Telemetry.Events.BufferSize != 1000 {
		t.Errorf("Expected default event buffer size to survive, got %d", s.Telemetry.Events.BufferSize)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown heuristic", "graph:\n  heuristic: ff\n"},
		{"negative max levels", "graph:\n  max_levels: -1\n"},
		{"unknown key", "graph:\n  depth: 3\n"},
		{"bad log level", "telemetry:\n  logging:\n    level: loud\n"},
		{"malformed yaml", "graph: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write settings: %v", err)
			}
			if _, err := LoadSettings(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestEmptySettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("Expected empty file to yield defaults, got %v", err)
	}
	if s.Graph.Heuristic != string(estimator.KindSetLevel) {
		t.Errorf("Expected default heuristic, got %s", s.Graph.Heuristic)
	}
}
