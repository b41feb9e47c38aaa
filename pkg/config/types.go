package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/plangraph/pkg/planning"
)

// ProblemConfig is a ground planning problem as written in a problem file.
// YAML, JSON, CUE and Starlark sources all decode into this shape.
type ProblemConfig struct {
	// Name is the human-readable problem name.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Facts is the fact vocabulary. Its order defines the state vector layout.
	Facts []string `yaml:"facts" json:"facts" validate:"required,min=1,dive,required,excludesall=~"`

	// Init lists the facts that are true in the initial state. Every other
	// fact is false.
	Init []string `yaml:"init" json:"init" validate:"dive,required"`

	// Goal lists the goal literals ("Name", "~Name" or "not Name").
	Goal []string `yaml:"goal" json:"goal" validate:"dive,required"`

	// Actions lists the ground actions.
	Actions []ActionConfig `yaml:"actions" json:"actions" validate:"dive"`
}

// ActionConfig is one ground action in a problem file.
type ActionConfig struct {
	// Name identifies the action, e.g. "Fly(P1,SFO,JFK)".
	Name string `yaml:"name" json:"name" validate:"required"`

	// Preconditions are literals that must hold before the action applies.
	Preconditions []string `yaml:"preconditions" json:"preconditions" validate:"dive,required"`

	// Effects are literals that hold after the action is applied.
	Effects []string `yaml:"effects" json:"effects" validate:"dive,required"`
}

// ToProblem compiles the configuration into a planning problem and its
// initial state vector. Unknown fact names are reported as planning
// invalid-input errors.
func (pc *ProblemConfig) ToProblem() (*planning.Problem, []bool, error) {
	problem := &planning.Problem{
		Name:    pc.Name,
		Facts:   append([]string(nil), pc.Facts...),
		Actions: make([]planning.Action, 0, len(pc.Actions)),
	}

	goal, err := parseLiterals(problem, pc.Goal)
	if err != nil {
		return nil, nil, fmt.Errorf("goal: %w", err)
	}
	problem.Goal = goal

	for _, ac := range pc.Actions {
		pre, err := parseLiterals(problem, ac.Preconditions)
		if err != nil {
			return nil, nil, fmt.Errorf("action %s preconditions: %w", ac.Name, err)
		}
		eff, err := parseLiterals(problem, ac.Effects)
		if err != nil {
			return nil, nil, fmt.Errorf("action %s effects: %w", ac.Name, err)
		}
		problem.Actions = append(problem.Actions, planning.Action{
			Name:          ac.Name,
			Preconditions: pre,
			Effects:       eff,
		})
	}

	if err := problem.Validate(); err != nil {
		return nil, nil, err
	}

	state, err := problem.InitialState(pc.Init)
	if err != nil {
		return nil, nil, err
	}

	return problem, state, nil
}

// normalized returns a copy with nil lists replaced by empty ones, so that
// encoders emit [] rather than null.
func (pc *ProblemConfig) normalized() *ProblemConfig {
	out := &ProblemConfig{
		Name:    pc.Name,
		Facts:   nonNil(pc.Facts),
		Init:    nonNil(pc.Init),
		Goal:    nonNil(pc.Goal),
		Actions: make([]ActionConfig, len(pc.Actions)),
	}
	for i, ac := range pc.Actions {
		out.Actions[i] = ac.normalized()
	}
	return out
}

func (ac ActionConfig) normalized() ActionConfig {
	return ActionConfig{
		Name:          ac.Name,
		Preconditions: nonNil(ac.Preconditions),
		Effects:       nonNil(ac.Effects),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func parseLiterals(p *planning.Problem, names []string) ([]planning.Literal, error) {
	lits := make([]planning.Literal, 0, len(names))
	for _, name := range names {
		l, err := p.ParseLiteral(name)
		if err != nil {
			return nil, err
		}
		lits = append(lits, l)
	}
	return lits, nil
}

// Format identifies a problem file format.
type Format string

const (
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatCUE      Format = "cue"
	FormatStarlark Format = "starlark"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(path)
	switch {
	case strings.HasSuffix(ext, ".yaml"), strings.HasSuffix(ext, ".yml"):
		return FormatYAML, nil
	case strings.HasSuffix(ext, ".json"):
		return FormatJSON, nil
	case strings.HasSuffix(ext, ".cue"):
		return FormatCUE, nil
	case strings.HasSuffix(ext, ".star"), strings.HasSuffix(ext, ".starlark"):
		return FormatStarlark, nil
	}
	return "", fmt.Errorf("unsupported problem file %q (expected .yaml, .yml, .json, .cue or .star)", path)
}

// ValidationError describes one problem found while loading a file.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path, e.g. "actions[2].effects".
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	var loc string
	switch {
	case ve.File != "" && ve.Line > 0:
		loc = fmt.Sprintf("%s:%d:%d: ", ve.File, ve.Line, ve.Column)
	case ve.File != "":
		loc = ve.File + ": "
	}
	if ve.Path != "" {
		return fmt.Sprintf("%s%s: %s", loc, ve.Path, ve.Message)
	}
	return loc + ve.Message
}

// ValidationErrors collects every problem found in a file.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// LoadedProblem is the result of loading a problem file.
type LoadedProblem struct {
	// Source is the file the problem was read from.
	Source string

	// Format is the detected file format.
	Format Format

	// Config is the decoded and validated problem description.
	Config *ProblemConfig

	// Problem is the compiled planning problem.
	Problem *planning.Problem

	// State is the initial state vector.
	State []bool

	// LoadedAt is when the file was loaded.
	LoadedAt time.Time
}
