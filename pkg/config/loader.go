package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader reads problem files in any supported format, validates them and
// compiles them to planning problems. A Loader is safe for concurrent use.
type Loader struct {
	cue       *CUEParser
	starlark  *StarlarkEvaluator
	validator *validator.Validate
	params    map[string]interface{}
	debounce  time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStarlarkTimeout bounds the run time of Starlark generators.
func WithStarlarkTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.starlark = NewStarlarkEvaluator(d)
	}
}

// WithParams exposes params to Starlark generators as predeclared globals.
func WithParams(params map[string]interface{}) LoaderOption {
	return func(l *Loader) {
		l.params = params
	}
}

// NewLoader creates a problem loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		cue:       NewCUEParser(),
		starlark:  NewStarlarkEvaluator(DefaultStarlarkTimeout),
		validator: newValidator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// newValidator returns a validator that reports field paths using json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads, validates and compiles the problem file at path.
func (l *Loader) Load(ctx context.Context, path string) (*LoadedProblem, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	pc, err := l.LoadConfig(ctx, path, format)
	if err != nil {
		return nil, err
	}

	problem, state, err := pc.ToProblem()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &LoadedProblem{
		Source:   path,
		Format:   format,
		Config:   pc,
		Problem:  problem,
		State:    state,
		LoadedAt: time.Now(),
	}, nil
}

// LoadConfig reads and validates a problem file without compiling it.
func (l *Loader) LoadConfig(ctx context.Context, path string, format Format) (*ProblemConfig, error) {
	var (
		pc  *ProblemConfig
		err error
	)

	if format == FormatCUE {
		pc, err = l.cue.ParseFile(ctx, path)
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read problem file: %w", err)
		}
		pc, err = l.Decode(ctx, format, filepath.Base(path), data)
	}
	if err != nil {
		return nil, err
	}

	if err := l.Validate(pc); err != nil {
		return nil, withFile(err, path)
	}
	return pc, nil
}

// Decode parses problem content in the given format. name labels the
// content in error messages.
func (l *Loader) Decode(ctx context.Context, format Format, name string, data []byte) (*ProblemConfig, error) {
	var pc ProblemConfig

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&pc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML problem %s: %w", name, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&pc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON problem %s: %w", name, err)
		}
	case FormatCUE:
		return l.cue.ParseInline(ctx, string(data), name)
	case FormatStarlark:
		result, err := l.starlark.Evaluate(ctx, name, string(data), l.params)
		if err != nil {
			return nil, err
		}
		return result.Problem, nil
	default:
		return nil, fmt.Errorf("unsupported problem format %q", format)
	}

	return &pc, nil
}

// Validate checks a decoded problem with its struct tags.
func (l *Loader) Validate(pc *ProblemConfig) error {
	if pc == nil {
		return fmt.Errorf("problem is nil")
	}

	err := l.validator.Struct(pc)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Path:    trimRoot(fe.Namespace()),
			Message: describeFieldError(fe),
		})
	}
	return out
}

// trimRoot drops the struct name from a validator namespace.
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "excludesall":
		return fmt.Sprintf("must not contain any of %q", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func withFile(err error, path string) error {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		out := make(ValidationErrors, len(ve))
		for i, e := range ve {
			if e.File == "" {
				e.File = path
			}
			out[i] = e
		}
		return out
	}
	return fmt.Errorf("%s: %w", path, err)
}

// LoadProblem loads a problem file with a default Loader.
func LoadProblem(ctx context.Context, path string) (*LoadedProblem, error) {
	return NewLoader().Load(ctx, path)
}
