package commands

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/plangraph/pkg/config"
	"github.com/openfroyo/plangraph/pkg/estimator"
	"github.com/openfroyo/plangraph/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		graph       graphFlags
		heuristic   string
		metricsAddr string
		cachePath   string
	)

	cmd := &cobra.Command{
		Use:   "watch <problem-file>",
		Short: "Re-estimate a problem file whenever it changes",
		Long: `Watch a problem file and re-run the selected heuristics from its initial
state every time it is saved. Reload errors are logged and watching continues.

With --metrics-addr, Prometheus metrics are served on that address while
watching.`,
		Example: `  plangraph watch problem.cue --heuristic all
  plangraph watch problem.star --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr != "" {
				settings.Telemetry.Metrics.Enabled = true
				settings.Telemetry.Metrics.ListenAddress = metricsAddr
			}

			ctx, tel, stop, err := startTelemetry(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

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

			tel.Events.Subscribe(func(ev telemetry.Event) {
				log.Warn().
					Str("problem", ev.Problem).
					Str("heuristic", ev.Heuristic).
					Str("type", ev.Type).
					Msg(ev.Message)
			}, telemetry.FilterByType(telemetry.EventTypeEstimateUnreachable, telemetry.EventTypeError))

			opts := graph.options(cmd)
			onLoad := func(ctx context.Context, loaded *config.LoadedProblem) error {
				est, err := newEstimator(loaded.Problem, opts, store)
				if err != nil {
					return err
				}

				var results []*estimator.Estimate
				if len(kinds) == len(estimator.AllKinds) {
					results, err = est.EstimateAll(ctx, loaded.State)
				} else {
					var res *estimator.Estimate
					res, err = est.Estimate(ctx, loaded.State, kinds[0])
					results = []*estimator.Estimate{res}
				}
				if err != nil {
					return err
				}

				for _, r := range results {
					log.Info().
						Str("problem", r.Problem).
						Str("digest", r.Digest).
						Str("heuristic", r.Kind.String()).
						Str("value", formatValue(r.Value, r.Reachable)).
						Int("levels", r.Levels).
						Bool("cached", r.Cached).
						Dur("duration", r.Duration).
						Msg("Estimate")
				}
				return nil
			}

			log.Info().Str("file", args[0]).Msg("Watching problem file")

			g, gctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				g.Go(func() error {
					log.Info().Str("address", metricsAddr).Msg("Serving metrics")
					return tel.Metrics.ServeMetrics(gctx, metricsAddr)
				})
			}
			g.Go(func() error {
				return config.NewLoader().Watch(gctx, args[0], onLoad)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	graph.register(cmd)
	cmd.Flags().StringVar(&heuristic, "heuristic", "setlevel", "heuristic to evaluate (levelsum, maxlevel, setlevel, all)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&cachePath, "cache", "", "SQLite estimate cache (default: store.path from settings)")

	return cmd
}
