package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/plangraph/pkg/config"
	"github.com/openfroyo/plangraph/pkg/estimator"
	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

func newEstimateCommand() *cobra.Command {
	var (
		graph      graphFlags
		heuristic  string
		stateFacts []string
		statesFile string
		cachePath  string
	)

	cmd := &cobra.Command{
		Use:   "estimate <problem-file>",
		Short: "Estimate the distance to the goal",
		Long: `Build a planning graph from the problem's initial state (or --state) and
evaluate a heuristic on it.

--heuristic selects levelsum, maxlevel, setlevel or all. With --states, every
line of the given file is estimated concurrently. When --cache or the store
settings name a database, results are read from and written to it.`,
		Example: `  plangraph estimate problem.yaml
  plangraph estimate problem.cue --heuristic all
  plangraph estimate problem.yaml --state "At(C1,SFO),At(P1,SFO)"
  plangraph estimate problem.star --states states.txt --cache estimates.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, stop, err := startTelemetry(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			loaded, err := loadProblem(ctx, args[0])
			if err != nil {
				return err
			}
			problem := loaded.Problem

			name := settings.Graph.Heuristic
			if cmd.Flags().Changed("heuristic") {
				name = heuristic
			}
			kinds, err := config.GraphSettings{Heuristic: name}.Kinds()
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cachePath)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			est, err := newEstimator(problem, graph.options(cmd), store)
			if err != nil {
				return err
			}

			var states [][]bool
			if statesFile != "" {
				if states, err = readStatesFile(statesFile, problem); err != nil {
					return err
				}
			} else {
				state, err := stateFromFacts(cmd, "state", problem, stateFacts, loaded.State)
				if err != nil {
					return err
				}
				states = [][]bool{state}
			}

			telemetry.FromContext(ctx).
				WithProblem(problem.Name, est.Digest()).
				Debugf("estimating %d state(s) with %v", len(states), kinds)

			results, err := runEstimates(ctx, est, states, kinds)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}
			return printEstimates(cmd, problem, results)
		},
	}

	graph.register(cmd)
	cmd.Flags().StringVar(&heuristic, "heuristic", "setlevel", "heuristic to evaluate (levelsum, maxlevel, setlevel, all)")
	cmd.Flags().StringSliceVar(&stateFacts, "state", nil, "facts true in the initial state (default: the problem's init)")
	cmd.Flags().StringVar(&statesFile, "states", "", "file with one comma separated state per line")
	cmd.Flags().StringVar(&cachePath, "cache", "", "SQLite estimate cache (default: store.path from settings)")
	cmd.MarkFlagsMutuallyExclusive("state", "states")

	return cmd
}

// runEstimates evaluates kinds over states. A single state with every kind
// shares one graph; several states are estimated as a batch per kind.
func runEstimates(ctx context.Context, est *estimator.Estimator, states [][]bool, kinds []estimator.Kind) ([]*estimator.Estimate, error) {
	if len(states) == 1 && len(kinds) == len(estimator.AllKinds) {
		return est.EstimateAll(ctx, states[0])
	}

	if len(states) == 1 {
		res, err := est.Estimate(ctx, states[0], kinds[0])
		if err != nil {
			return nil, err
		}
		return []*estimator.Estimate{res}, nil
	}

	var out []*estimator.Estimate
	for _, kind := range kinds {
		batch, err := est.EstimateBatch(ctx, states, kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func printEstimates(cmd *cobra.Command, problem *planning.Problem, results []*estimator.Estimate) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HEURISTIC\tVALUE\tLEVELS\tLEVELED\tCACHED\tSTATE")
	for _, r := range results {
		state, err := estimator.DecodeState(r.State)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%t\t%s\n",
			r.Kind, formatValue(r.Value, r.Reachable), r.Levels, r.Leveled, r.Cached, trueFacts(problem, state))
	}
	return w.Flush()
}
