package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <problem-file>...",
		Short: "Validate problem files",
		Long: `Load and validate one or more problem files without building a graph.
Prints the fact and action counts and the problem digest of each file.`,
		Example: `  plangraph validate problem.yaml
  plangraph validate problems/*.cue`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type summary struct {
				File    string `json:"file"`
				Format  string `json:"format"`
				Problem string `json:"problem"`
				Facts   int    `json:"facts"`
				Actions int    `json:"actions"`
				Goal    int    `json:"goal"`
				Digest  string `json:"digest"`
			}

			summaries := make([]summary, 0, len(args))
			for _, path := range args {
				loaded, err := loadProblem(cmd.Context(), path)
				if err != nil {
					return err
				}
				p := loaded.Problem
				summaries = append(summaries, summary{
					File:    path,
					Format:  string(loaded.Format),
					Problem: p.Name,
					Facts:   p.NumFacts(),
					Actions: len(p.Actions),
					Goal:    len(p.Goal),
					Digest:  p.Digest(),
				})
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), summaries)
			}

			out := cmd.OutOrStdout()
			for _, s := range summaries {
				fmt.Fprintf(out, "✓ %s (%s): %s\n", s.File, s.Format, s.Problem)
				fmt.Fprintf(out, "  facts: %d, actions: %d, goal literals: %d\n", s.Facts, s.Actions, s.Goal)
				fmt.Fprintf(out, "  digest: %s\n", s.Digest)
			}
			return nil
		},
	}

	return cmd
}
