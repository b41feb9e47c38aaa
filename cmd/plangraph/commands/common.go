package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/plangraph/pkg/config"
	"github.com/openfroyo/plangraph/pkg/estimator"
	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/stores"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

// graphFlags are the planning graph options shared by several commands.
// Flags that were not set fall back to the settings file.
type graphFlags struct {
	serialize       bool
	ignoreMutexes   bool
	maxLevels       int
	workers         int
	checkInvariants bool
}

func (f *graphFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.serialize, "serialize", false, "make every pair of domain actions mutex")
	cmd.Flags().BoolVar(&f.ignoreMutexes, "ignore-mutexes", false, "skip mutex computation")
	cmd.Flags().IntVar(&f.maxLevels, "max-levels", 0, "maximum number of action layers (0 = until leveled)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "goroutines used for mutex evaluation within a layer")
	cmd.Flags().BoolVar(&f.checkInvariants, "check-invariants", false, "verify graph invariants after every expansion")
}

func (f *graphFlags) options(cmd *cobra.Command) planning.Options {
	opts := settings.Graph.Options()
	flags := cmd.Flags()
	if flags.Changed("serialize") {
		opts.Serialize = f.serialize
	}
	if flags.Changed("ignore-mutexes") {
		opts.IgnoreMutexes = f.ignoreMutexes
	}
	if flags.Changed("max-levels") {
		opts.MaxLevels = f.maxLevels
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("check-invariants") {
		opts.CheckInvariants = f.checkInvariants
	}
	return opts
}

// loadProblem loads a problem file and logs what was read.
func loadProblem(ctx context.Context, path string) (*config.LoadedProblem, error) {
	loaded, err := config.LoadProblem(ctx, path)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", path).
		Str("format", string(loaded.Format)).
		Str("problem", loaded.Problem.Name).
		Int("facts", loaded.Problem.NumFacts()).
		Int("actions", len(loaded.Problem.Actions)).
		Msg("Problem loaded")

	return loaded, nil
}

// startTelemetry creates the telemetry stack from the settings and attaches
// it to ctx. The returned function flushes and shuts it down.
func startTelemetry(ctx context.Context) (context.Context, *telemetry.Telemetry, func(), error) {
	tel, err := telemetry.NewTelemetry(&settings.Telemetry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}

	return tel.WithContext(ctx), tel, stop, nil
}

// openStore opens the estimate store at path, or the one named in the
// settings when path is empty. It returns nil when neither is set.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	cfg := settings.Store.StoreConfig()
	if path != "" {
		cfg.Path = path
	}
	if cfg.Path == "" {
		return nil, nil
	}

	store, err := stores.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open estimate store: %w", err)
	}

	if retention := settings.Store.Retention; retention > 0 {
		pruned, err := store.PruneBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prune estimate store")
		} else if pruned > 0 {
			log.Debug().Int64("pruned", pruned).Msg("Pruned old estimates")
		}
	}

	return store, nil
}

// newEstimator builds an estimator, wiring store in as its cache when set.
func newEstimator(problem *planning.Problem, opts planning.Options, store *stores.SQLiteStore) (*estimator.Estimator, error) {
	cfg := estimator.Config{
		Graph:   opts,
		Workers: settings.Graph.BatchWorkers,
	}
	if store != nil {
		cfg.Cache = store
	}
	return estimator.New(problem, cfg)
}

// stateFromFacts returns the state in which exactly the listed facts are
// true, or fallback when the flag was not given.
func stateFromFacts(cmd *cobra.Command, flag string, problem *planning.Problem, facts []string, fallback []bool) ([]bool, error) {
	if !cmd.Flags().Changed(flag) {
		return fallback, nil
	}
	return problem.InitialState(trimAll(facts))
}

// readStates parses a states file: one state per line, written as a comma
// separated list of true facts. Blank lines and lines starting with # are
// skipped; a line holding only "-" is the all-false state.
func readStates(r io.Reader, problem *planning.Problem) ([][]bool, error) {
	var states [][]bool
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var facts []string
		if line != "-" {
			facts = trimAll(strings.Split(line, ","))
		}
		state, err := problem.InitialState(facts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		states = append(states, state)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read states: %w", err)
	}
	return states, nil
}

func readStatesFile(path string, problem *planning.Problem) ([][]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open states file: %w", err)
	}
	defer f.Close()
	return readStates(f, problem)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// formatValue renders a heuristic value for tables.
func formatValue(value int, reachable bool) string {
	if !reachable || value == planning.Unreachable {
		return "unreachable"
	}
	return strconv.Itoa(value)
}

// trueFacts lists the names of the facts set in state.
func trueFacts(problem *planning.Problem, state []bool) string {
	var names []string
	for i, v := range state {
		if v {
			names = append(names, problem.Facts[i])
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
