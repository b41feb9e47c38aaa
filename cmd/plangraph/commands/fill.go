package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openfroyo/plangraph/pkg/planning"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

func newFillCommand() *cobra.Command {
	var (
		graph      graphFlags
		stateFacts []string
		dotPath    string
	)

	cmd := &cobra.Command{
		Use:   "fill <problem-file>",
		Short: "Expand the planning graph and print per-level statistics",
		Long: `Expand the planning graph until it levels off (or --max-levels action
layers exist) and print the number of literals, actions and mutexes at every
level. --dot writes the graph in Graphviz format; use "-" for stdout.`,
		Example: `  plangraph fill problem.yaml
  plangraph fill problem.yaml --max-levels 3 --dot graph.dot
  plangraph fill problem.yaml --dot - | dot -Tsvg > graph.svg`,
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

			state, err := stateFromFacts(cmd, "state", problem, stateFacts, loaded.State)
			if err != nil {
				return err
			}

			opts := graph.options(cmd)
			op := telemetry.StartOperation(ctx, "graph.fill",
				telemetry.AttrProblem.String(problem.Name),
			)
			g, err := planning.New(problem, state, opts)
			if err != nil {
				op.End(err)
				return err
			}

			limit := opts.MaxLevels
			if limit <= 0 {
				limit = planning.Unlimited
			}
			g.Fill(limit)
			op.End(nil)

			op.Logger.Debugf("graph filled to depth %d (leveled=%t) in %s", g.Depth(), g.Leveled(), op.Timer.Duration())

			if dotPath != "" {
				if err := writeDOT(cmd, dotPath, g); err != nil {
					return err
				}
				if dotPath == "-" {
					return nil
				}
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"problem": problem.Name,
					"digest":  problem.Digest(),
					"depth":   g.Depth(),
					"leveled": g.Leveled(),
					"levels":  g.Stats(),
				})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tLITERALS\tLITERAL MUTEXES\tACTIONS\tACTION MUTEXES\tLEVELED")
			for _, s := range g.Stats() {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%t\n",
					s.Level, s.Literals, s.LiteralMutexes, s.Actions, s.ActionMutexes, s.Leveled)
			}
			return w.Flush()
		},
	}

	graph.register(cmd)
	cmd.Flags().StringSliceVar(&stateFacts, "state", nil, "facts true in the initial state (default: the problem's init)")
	cmd.Flags().StringVar(&dotPath, "dot", "", "write the graph in DOT format to this file (\"-\" for stdout)")

	return cmd
}

func writeDOT(cmd *cobra.Command, path string, g *planning.Graph) error {
	dot := g.ToDOT()
	if path == "-" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
		return err
	}
	if err := os.WriteFile(path, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("failed to write DOT file: %w", err)
	}
	return nil
}
