package config

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultStarlarkTimeout bounds a generator script when none is configured.
const DefaultStarlarkTimeout = 30 * time.Second

// maxExecutionSteps caps runaway generator loops independently of the timeout.
const maxExecutionSteps = 50_000_000

// StarlarkEvaluator runs Starlark problem generators.
//
// A generator declares facts with fact(name), actions with
// action(name, pre=[...], eff=[...]) and writes negated literals with
// neg(name). It sets the globals name, init and goal. The globals facts and
// actions may be used instead of, or together with, the builtins.
type StarlarkEvaluator struct {
	timeout time.Duration
}

// NewStarlarkEvaluator creates a new Starlark evaluator.
func NewStarlarkEvaluator(timeout time.Duration) *StarlarkEvaluator {
	if timeout == 0 {
		timeout = DefaultStarlarkTimeout
	}
	return &StarlarkEvaluator{
		timeout: timeout,
	}
}

// StarlarkResult is the outcome of running a generator.
type StarlarkResult struct {
	// Problem is the generated problem.
	Problem *ProblemConfig

	// Output holds the remaining public globals converted to Go values.
	Output map[string]interface{}

	// ExecutionTime is how long the script ran.
	ExecutionTime time.Duration
}

// Evaluate executes a generator script. params are visible to the script as
// predeclared globals.
func (se *StarlarkEvaluator) Evaluate(ctx context.Context, filename, script string, params map[string]interface{}) (*StarlarkResult, error) {
	startTime := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, se.timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name: "plangraph",
		Print: func(_ *starlark.Thread, msg string) {
			// Suppressed: generators have no output channel.
		},
	}
	thread.SetMaxExecutionSteps(maxExecutionSteps)

	b := newProblemBuilder()
	thread.SetLocal(builderKey, b)

	type outcome struct {
		globals starlark.StringDict
		err     error
	}
	done := make(chan outcome, 1)

	predeclared, err := se.predeclared(params)
	if err != nil {
		return nil, err
	}

	go func() {
		globals, err := starlark.ExecFile(thread, filename, script, predeclared)
		done <- outcome{globals: globals, err: err}
	}()

	var res outcome
	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		<-done
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("starlark execution timeout after %v", se.timeout)
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", res.err)
	}

	pc, output, err := b.finish(res.globals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	return &StarlarkResult{
		Problem:       pc,
		Output:        output,
		ExecutionTime: time.Since(startTime),
	}, nil
}

func (se *StarlarkEvaluator) predeclared(params map[string]interface{}) (starlark.StringDict, error) {
	predeclared := starlark.StringDict{
		"struct":  starlarkstruct.Default,
		"fact":    starlark.NewBuiltin("fact", builtinFact),
		"neg":     starlark.NewBuiltin("neg", builtinNeg),
		"action":  starlark.NewBuiltin("action", builtinAction),
		"product": starlark.NewBuiltin("product", builtinProduct),
	}

	for key, val := range params {
		if _, reserved := predeclared[key]; reserved {
			return nil, fmt.Errorf("parameter %s shadows a builtin", key)
		}
		starlarkVal, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert parameter %s: %w", key, err)
		}
		predeclared[key] = starlarkVal
	}

	return predeclared, nil
}

const builderKey = "plangraph.problem"

// problemBuilder accumulates fact() and action() calls.
type problemBuilder struct {
	facts     []string
	factIndex map[string]struct{}
	actions   []ActionConfig
}

func newProblemBuilder() *problemBuilder {
	return &problemBuilder{factIndex: make(map[string]struct{})}
}

func (b *problemBuilder) addFact(name string) {
	if _, ok := b.factIndex[name]; ok {
		return
	}
	b.factIndex[name] = struct{}{}
	b.facts = append(b.facts, name)
}

var problemGlobals = map[string]bool{
	"name": true, "facts": true, "init": true, "goal": true, "actions": true,
}

// finish merges the recorded calls with the script's globals.
func (b *problemBuilder) finish(globals starlark.StringDict) (*ProblemConfig, map[string]interface{}, error) {
	pc := &ProblemConfig{}
	output := make(map[string]interface{})

	for name, val := range globals {
		// Skip internal variables (starting with _)
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		if _, isFunc := val.(starlark.Callable); isFunc {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			if problemGlobals[name] {
				return nil, nil, fmt.Errorf("failed to convert global %s: %w", name, err)
			}
			// Helper values of other types are not part of the problem.
			continue
		}

		var convErr error
		switch name {
		case "name":
			s, ok := goVal.(string)
			if !ok {
				convErr = fmt.Errorf("name must be a string, got %s", val.Type())
			}
			pc.Name = s
		case "facts":
			var facts []string
			facts, convErr = stringList(name, goVal)
			for _, f := range facts {
				b.addFact(f)
			}
		case "init":
			pc.Init, convErr = stringList(name, goVal)
		case "goal":
			pc.Goal, convErr = stringList(name, goVal)
		case "actions":
			var extra []ActionConfig
			extra, convErr = actionList(goVal)
			b.actions = append(b.actions, extra...)
		default:
			output[name] = goVal
		}
		if convErr != nil {
			return nil, nil, convErr
		}
	}

	pc.Facts = b.facts
	pc.Actions = b.actions
	return pc, output, nil
}

func stringList(field string, v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be a list of strings, got %T", field, v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be a string, got %T", field, i, item)
		}
		out[i] = s
	}
	return out, nil
}

func actionList(v interface{}) ([]ActionConfig, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("actions must be a list, got %T", v)
	}
	out := make([]ActionConfig, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("actions[%d] must be a dict or struct, got %T", i, item)
		}
		name, _ := m["name"].(string)
		ac := ActionConfig{Name: name}
		var err error
		if pre, ok := m["preconditions"]; ok {
			if ac.Preconditions, err = stringList(fmt.Sprintf("actions[%d].preconditions", i), pre); err != nil {
				return nil, err
			}
		}
		if eff, ok := m["effects"]; ok {
			if ac.Effects, err = stringList(fmt.Sprintf("actions[%d].effects", i), eff); err != nil {
				return nil, err
			}
		}
		out[i] = ac
	}
	return out, nil
}

// Built-in Starlark functions

func threadBuilder(thread *starlark.Thread) *problemBuilder {
	b, _ := thread.Local(builderKey).(*problemBuilder)
	return b
}

// builtinFact implements fact(name): declares a fact and returns its name.
func builtinFact(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%s: empty fact name", b.Name())
	}
	threadBuilder(thread).addFact(name)
	return starlark.String(name), nil
}

// builtinNeg implements neg(name): returns the negated literal "~name".
func builtinNeg(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return starlark.String("~" + name), nil
}

// builtinAction implements action(name, pre=[], eff=[]).
func builtinAction(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		pre  *starlark.List
		eff  *starlark.List
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "pre?", &pre, "eff?", &eff); err != nil {
		return nil, err
	}

	ac := ActionConfig{Name: name}
	var err error
	if ac.Preconditions, err = starlarkStrings(b.Name()+" pre", pre); err != nil {
		return nil, err
	}
	if ac.Effects, err = starlarkStrings(b.Name()+" eff", eff); err != nil {
		return nil, err
	}

	builder := threadBuilder(thread)
	builder.actions = append(builder.actions, ac)
	return starlark.None, nil
}

// builtinProduct implements product(a, b, ...): the cartesian product of
// its list arguments as a list of tuples.
func builtinProduct(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}

	pools := make([][]starlark.Value, len(args))
	for i, arg := range args {
		iterable, ok := arg.(starlark.Iterable)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is not iterable", b.Name(), i)
		}
		iter := iterable.Iterate()
		var x starlark.Value
		for iter.Next(&x) {
			pools[i] = append(pools[i], x)
		}
		iter.Done()
	}

	result := []starlark.Value{starlark.Tuple{}}
	for _, pool := range pools {
		next := make([]starlark.Value, 0, len(result)*len(pool))
		for _, prefix := range result {
			for _, item := range pool {
				t := append(append(starlark.Tuple{}, prefix.(starlark.Tuple)...), item)
				next = append(next, t)
			}
		}
		result = next
	}

	return starlark.NewList(result), nil
}

func starlarkStrings(what string, list *starlark.List) ([]string, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]string, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s[%d]: expected string, got %s", what, i, list.Index(i).Type())
		}
		out[i] = s
	}
	return out, nil
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			list[i] = starlark.String(item)
		}
		return starlark.NewList(list), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, elem := range val {
			item, err := fromStarlarkValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
