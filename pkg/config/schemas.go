package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Names of the built-in schemas.
const (
	SchemaProblem = "problem"
	SchemaAction  = "action"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	return NewSchemaRegistryWithContext(cuecontext.New())
}

// NewSchemaRegistryWithContext creates a registry whose schemas live in ctx.
// Values unified with these schemas must come from the same context.
func NewSchemaRegistryWithContext(ctx *cue.Context) *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	// The built-in sources are constants; a compile failure is a programming error.
	if err := sr.RegisterSchema(SchemaProblem, builtinProblemSchema, "#Problem"); err != nil {
		panic(err)
	}
	if err := sr.RegisterSchema(SchemaAction, builtinProblemSchema, "#Action"); err != nil {
		panic(err)
	}
}

// RegisterSchema compiles source and registers the definition at path
// (e.g. "#Problem") under name. An empty path registers the whole value.
func (sr *SchemaRegistry) RegisterSchema(name, source, path string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(source, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	if path != "" {
		val = val.LookupPath(cue.ParsePath(path))
		if !val.Exists() {
			return fmt.Errorf("schema %s has no definition %s", name, path)
		}
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Context returns the CUE context the schemas were compiled in.
func (sr *SchemaRegistry) Context() *cue.Context {
	return sr.ctx
}

// Unify unifies val with the named schema and checks that the result is concrete.
func (sr *SchemaRegistry) Unify(schemaName string, val cue.Value) (cue.Value, error) {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cue.Value{}, err
	}
	return unified, nil
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	if _, err := sr.Unify(schemaName, dataVal); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateProblem validates a problem configuration against the problem schema.
func (sr *SchemaRegistry) ValidateProblem(ctx context.Context, pc *ProblemConfig) error {
	return sr.ValidateAgainstSchema(ctx, SchemaProblem, pc.normalized())
}

// ValidateAction validates one action against the action schema.
func (sr *SchemaRegistry) ValidateAction(ctx context.Context, ac ActionConfig) error {
	return sr.ValidateAgainstSchema(ctx, SchemaAction, ac.normalized())
}

// Built-in schema definitions

const builtinProblemSchema = `
// A fact name: anything non-empty that does not start a negation.
#Fact: string & =~"^[^~\\s]" & !~"^not "

// A literal: a fact name, optionally negated with "~" or "not ".
#Literal: string & =~"^(~|not )?[^~\\s]"

// A ground action.
#Action: {
	name: string & !=""

	// Preconditions must all hold before the action applies.
	preconditions: *[] | [...#Literal]

	// Effects hold after the action is applied.
	effects: *[] | [...#Literal]
}

// A ground planning problem. Helper values belong in hidden fields
// (_name) or definitions, since the problem struct is closed.
#Problem: {
	name: string & !=""

	// The fact vocabulary; its order defines the state vector.
	facts: [#Fact, ...#Fact]

	// Facts that are true in the initial state.
	init: *[] | [...#Fact]

	// Literals that must hold together.
	goal: *[] | [...#Literal]

	actions: *[] | [...#Action]
}
`
