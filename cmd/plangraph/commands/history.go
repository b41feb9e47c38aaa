package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/plangraph/pkg/estimator"
	"github.com/openfroyo/plangraph/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		digest string
		kind   string
		limit  int
		prune  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history [database]",
		Short: "List cached estimates",
		Long: `List estimates stored in the SQLite cache, newest first. The database
defaults to store.path from the settings file.

--prune deletes estimates older than the given age before listing.`,
		Example: `  plangraph history estimates.db
  plangraph history estimates.db --problem 3f2a... --kind setlevel
  plangraph history --prune 720h`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			store, err := openStore(ctx, path)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("no estimate database given and store.path is not set")
			}
			defer store.Close()

			if prune > 0 {
				n, err := store.PruneBefore(ctx, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d estimate(s)\n", n)
			}

			filter := stores.ListFilter{Limit: limit}
			if digest != "" {
				filter.Digest = &digest
			}
			if kind != "" {
				k, err := estimator.ParseKind(kind)
				if err != nil {
					return err
				}
				filter.Kind = &k
			}

			records, err := store.ListEstimates(ctx, filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), records)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROBLEM\tHEURISTIC\tVALUE\tLEVELS\tCREATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.Problem, r.Kind, formatValue(r.Value, r.Reachable), r.Levels,
					r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&digest, "problem", "", "only show estimates for this problem digest")
	cmd.Flags().StringVar(&kind, "kind", "", "only show estimates of this heuristic")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of estimates to show (0 = all)")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete estimates older than this age first")

	return cmd
}
