package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/modelgraph"
	"github.com/wavectl/wavectl/internal/ux"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the SQL model dependency graph",
	Long: `Load the model graph (target/manifest.json, falling back to scanning
models/**/*.sql), run cycle detection, and print the models grouped by
dependency level.

A detected cycle is a planning error: the full cycle path is reported and
the command exits with code 3.`,
	RunE: runGraph,
}

var graphFormat string

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "output", "o", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	dir, _, _ := resolvePaths()

	if !modelgraph.HasProject(dir) {
		return fmt.Errorf("no model project found in %s (expected target/manifest.json or models/)", dir)
	}

	g, err := modelgraph.Load(dir)
	if err != nil {
		return err
	}

	if cycle := modelgraph.DetectCycle(g); cycle != "" {
		return errors.NewGraphCycleError(cycle)
	}

	switch graphFormat {
	case "text", "":
		fmt.Fprint(cmd.OutOrStdout(), ux.RenderModelGraph(g))
		return nil
	default:
		formatter, err := ux.NewFormatter(graphFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		return formatter.Format(g.Nodes)
	}
}
