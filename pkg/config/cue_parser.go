package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUEParser parses CUE problem files and checks them against the built-in
// #Problem schema.
type CUEParser struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	ctx := cuecontext.New()
	return &CUEParser{
		ctx:            ctx,
		schemaRegistry: NewSchemaRegistryWithContext(ctx),
	}
}

// ParseFile parses a CUE problem file.
func (cp *CUEParser) ParseFile(_ context.Context, source string) (*ProblemConfig, error) {
	val, errs := cp.loadFile(source)
	if len(errs) > 0 {
		return nil, errs
	}

	return cp.extractProblem(val)
}

// ParseInline parses CUE problem content. filename is used in error positions.
func (cp *CUEParser) ParseInline(_ context.Context, content, filename string) (*ProblemConfig, error) {
	if filename == "" {
		filename = "inline.cue"
	}
	val := cp.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, cp.convertCUEErrors(err)
	}

	return cp.extractProblem(val)
}

// loadFile loads a single CUE file.
func (cp *CUEParser) loadFile(path string) (cue.Value, ValidationErrors) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, ValidationErrors{{
			File:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
		}}
	}

	val := cp.ctx.CompileBytes(content, cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, cp.convertCUEErrors(err)
	}

	return val, nil
}

// extractProblem unifies val with #Problem and decodes the result. A file
// may hold the problem at the top level or under a "problem" field.
func (cp *CUEParser) extractProblem(val cue.Value) (*ProblemConfig, error) {
	if nested := val.LookupPath(cue.ParsePath("problem")); nested.Exists() {
		val = nested
	}

	unified, err := cp.schemaRegistry.Unify(SchemaProblem, val)
	if err != nil {
		return nil, cp.convertCUEErrors(err)
	}

	var pc ProblemConfig
	if err := unified.Decode(&pc); err != nil {
		return nil, fmt.Errorf("failed to decode problem: %w", err)
	}

	return &pc, nil
}

// convertCUEErrors converts CUE errors to ValidationErrors.
func (cp *CUEParser) convertCUEErrors(err error) ValidationErrors {
	var validationErrors ValidationErrors

	for _, e := range errors.Errors(err) {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:    file,
			Line:    line,
			Column:  column,
			Path:    strings.Join(e.Path(), "."),
			Message: errors.Details(e, nil),
		})
	}

	return validationErrors
}

// GetSchemaRegistry returns the schema registry.
func (cp *CUEParser) GetSchemaRegistry() *SchemaRegistry {
	return cp.schemaRegistry
}
