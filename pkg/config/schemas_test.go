package config

import (
	"context"
	"testing"
)

func TestSchemaRegistry_RegisterAndGet(t *testing.T) {
	sr := NewSchemaRegistry()

	customSchema := `
#Settings: {
	heuristic: "levelsum" | "maxlevel" | "setlevel"
	max_levels: int & >=0
}
`

	if err := sr.RegisterSchema("settings", customSchema, "#Settings"); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	schema, ok := sr.GetSchema("settings")
	if !ok {
		t.Fatal("expected to find settings schema")
	}
	if schema.Err() != nil {
		t.Errorf("schema has errors: %v", schema.Err())
	}

	ctx := context.Background()
	valid := map[string]interface{}{"heuristic": "setlevel", "max_levels": 10}
	if err := sr.ValidateAgainstSchema(ctx, "settings", valid); err != nil {
		t.Errorf("expected valid settings, got %v", err)
	}
	invalid := map[string]interface{}{"heuristic": "ff", "max_levels": 10}
	if err := sr.ValidateAgainstSchema(ctx, "settings", invalid); err == nil {
		t.Error("expected error for unknown heuristic")
	}
}

func TestSchemaRegistry_RegisterErrors(t *testing.T) {
	sr := NewSchemaRegistry()

	if err := sr.RegisterSchema("broken", "#X: {", ""); err == nil {
		t.Error("expected compile error")
	}
	if err := sr.RegisterSchema("missing", "#X: string", "#Y"); err == nil {
		t.Error("expected error for missing definition")
	}
	if err := sr.ValidateAgainstSchema(context.Background(), "nope", map[string]interface{}{}); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestSchemaRegistry_BuiltInSchemas(t *testing.T) {
	sr := NewSchemaRegistry()

	names := sr.ListSchemas()
	want := []string{SchemaAction, SchemaProblem}
	if len(names) != len(want) {
		t.Fatalf("expected schemas %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected schema %s at %d, got %s", want[i], i, names[i])
		}
	}
}

func TestSchemaRegistry_ValidateProblem(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	tests := []struct {
		name    string
		problem *ProblemConfig
		wantErr bool
	}{
		{
			name: "valid",
			problem: &ProblemConfig{
				Name:    "p",
				Facts:   []string{"A", "B"},
				Init:    []string{"A"},
				Goal:    []string{"B", "~A"},
				Actions: []ActionConfig{{Name: "X", Preconditions: []string{"A"}, Effects: []string{"B"}}},
			},
		},
		{
			name:    "nil lists are accepted",
			problem: &ProblemConfig{Name: "p", Facts: []string{"A"}},
		},
		{
			name:    "empty vocabulary",
			problem: &ProblemConfig{Name: "p", Facts: []string{}},
			wantErr: true,
		},
		{
			name:    "empty name",
			problem: &ProblemConfig{Facts: []string{"A"}},
			wantErr: true,
		},
		{
			name:    "negated fact",
			problem: &ProblemConfig{Name: "p", Facts: []string{"not A"}},
			wantErr: true,
		},
		{
			name: "unnamed action",
			problem: &ProblemConfig{
				Name:    "p",
				Facts:   []string{"A"},
				Actions: []ActionConfig{{Effects: []string{"A"}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sr.ValidateProblem(ctx, tt.problem)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSchemaRegistry_ValidateAction(t *testing.T) {
	sr := NewSchemaRegistry()
	ctx := context.Background()

	if err := sr.ValidateAction(ctx, ActionConfig{Name: "Go", Effects: []string{"~At(A)"}}); err != nil {
		t.Errorf("expected valid action, got %v", err)
	}
	if err := sr.ValidateAction(ctx, ActionConfig{Name: "Go", Effects: []string{" At(A)"}}); err == nil {
		t.Error("expected error for literal with leading space")
	}
}
