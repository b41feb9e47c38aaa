// Package config loads planning problems and tool settings.
//
// # Overview
//
// A problem file describes a ground STRIPS problem: a fact vocabulary, the
// facts that are initially true, a goal and a list of ground actions. Every
// supported format decodes into the same ProblemConfig, which is validated
// with struct tags and compiled to a planning.Problem plus an initial state
// vector.
//
// # Formats
//
//   - .yaml/.yml: decoded with gopkg.in/yaml.v3, unknown fields rejected
//   - .json: decoded with encoding/json, unknown fields rejected
//   - .cue: unified with the built-in #Problem schema, so comprehensions can
//     generate actions
//   - .star: a Starlark generator using the fact(), neg(), action() and
//     product() builtins
//
// Literals are written "Name" or "~Name"; "not Name" is also accepted.
//
// # Components
//
// Loader: detects the format, decodes, validates and compiles a problem file.
//
// CUEParser: parses CUE problem files against the SchemaRegistry.
//
// SchemaRegistry: holds the built-in #Problem and #Action schemas and any
// schemas registered at run time.
//
// StarlarkEvaluator: runs generator scripts with a timeout and an execution
// step limit.
//
// Settings: the tool settings file with graph defaults, the estimate store
// and telemetry configuration.
//
// # Usage Example
//
//	loaded, err := config.LoadProblem(ctx, "air_cargo.cue")
//	if err != nil {
//	    return err
//	}
//	g, err := planning.New(loaded.Problem, loaded.State, planning.Options{})
//
// A Starlark generator:
//
//	name = "gripper"
//	facts = ["At(%s)" % r for r in ["A", "B"]]
//	action("Move(A,B)", pre=["At(A)"], eff=["At(B)", neg("At(A)")])
//	init = ["At(A)"]
//	goal = ["At(B)"]
package config
