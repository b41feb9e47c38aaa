package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestCUEParser_ParseInline(t *testing.T) {
	parser := NewCUEParser()
	ctx := context.Background()

	tests := []struct {
		name      string
		content   string
		wantErr   bool
		checkFunc func(*testing.T, *ProblemConfig)
	}{
		{
			name: "top-level problem",
			content: `
name: "switch"
facts: ["On"]
goal: ["On"]
actions: [{name: "Flip", effects: ["On"]}]
`,
			checkFunc: func(t *testing.T, pc *ProblemConfig) {
				if pc.Name != "switch" {
					t.Errorf("expected name 'switch', got %s", pc.Name)
				}
				if len(pc.Actions) != 1 || pc.Actions[0].Name != "Flip" {
					t.Fatalf("expected one action Flip, got %v", pc.Actions)
				}
				if len(pc.Actions[0].Preconditions) != 0 {
					t.Errorf("expected no preconditions, got %v", pc.Actions[0].Preconditions)
				}
				if len(pc.Init) != 0 {
					t.Errorf("expected empty init, got %v", pc.Init)
				}
			},
		},
		{
			name: "nested under problem with hidden helpers",
			content: `
_lights: ["L1", "L2"]
problem: {
	name: "lights"
	facts: [for l in _lights {"On(\(l))"}]
	goal: [for l in _lights {"On(\(l))"}]
	actions: [for l in _lights {name: "Switch(\(l))", effects: ["On(\(l))"]}]
}
`,
			checkFunc: func(t *testing.T, pc *ProblemConfig) {
				if len(pc.Facts) != 2 || pc.Facts[1] != "On(L2)" {
					t.Errorf("expected facts [On(L1) On(L2)], got %v", pc.Facts)
				}
				if len(pc.Actions) != 2 {
					t.Errorf("expected 2 actions, got %d", len(pc.Actions))
				}
			},
		},
		{
			name: "negation spellings are literals",
			content: `
name: "neg"
facts: ["A"]
goal: ["~A", "not A"]
`,
			checkFunc: func(t *testing.T, pc *ProblemConfig) {
				if len(pc.Goal) != 2 {
					t.Errorf("expected 2 goal literals, got %v", pc.Goal)
				}
			},
		},
		{
			name:    "invalid CUE syntax",
			content: "name: \"broken\"\nfacts: [\"A\"\n",
			wantErr: true,
		},
		{
			name:    "empty vocabulary",
			content: `name: "empty", facts: []`,
			wantErr: true,
		},
		{
			name:    "unknown field is closed out",
			content: `name: "p", facts: ["A"], objects: ["x"]`,
			wantErr: true,
		},
		{
			name:    "fact named like a negation",
			content: `name: "p", facts: ["~A"]`,
			wantErr: true,
		},
		{
			name:    "missing name",
			content: `facts: ["A"]`,
			wantErr: true,
		},
		{
			name:    "non-string literal",
			content: `name: "p", facts: ["A"], goal: [1]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := parser.ParseInline(ctx, tt.content, "test.cue")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", pc)
				}
				var ve ValidationErrors
				if !errors.As(err, &ve) || len(ve) == 0 {
					t.Errorf("expected ValidationErrors, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, pc)
			}
		})
	}
}

func TestCUEParser_ErrorPositions(t *testing.T) {
	parser := NewCUEParser()

	_, err := parser.ParseInline(context.Background(), "name: \"p\"\nfacts: [\n", "broken.cue")
	var ve ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if ve[0].File != "broken.cue" {
		t.Errorf("expected file broken.cue, got %q", ve[0].File)
	}
	if ve[0].Line == 0 {
		t.Errorf("expected a line number, got %+v", ve[0])
	}
}

func TestCUEParser_ParseFile(t *testing.T) {
	parser := NewCUEParser()

	pc, err := parser.ParseFile(context.Background(), filepath.Join("testdata", "air_cargo.cue"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if pc.Name != "air-cargo" {
		t.Errorf("expected name air-cargo, got %s", pc.Name)
	}
	if pc.Facts[0] != "At(C1,SFO)" || pc.Facts[11] != "In(C2,P2)" {
		t.Errorf("unexpected fact order: %v", pc.Facts)
	}

	if _, err := parser.ParseFile(context.Background(), filepath.Join("testdata", "missing.cue")); err == nil {
		t.Error("expected error for missing file")
	}
}
