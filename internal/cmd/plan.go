package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/inject"
	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/modelgraph"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/ux"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build the wave execution plan from the task list",
	Long: `Parse the task list, derive the dependency graph from explicit references
and shared file locks, partition pending tasks into waves, and write the
plan document.

When the project contains a SQL model graph (target/manifest.json or a
models/ directory), tasks mapped to models are re-ordered by model
dependency level. When verification injection is enabled in wavectl.yml,
verification tasks are inserted into the plan and appended to the task
list.`,
	RunE: runPlan,
}

var (
	planPhaseID  string
	planNoInject bool
	planFormat   string
)

func init() {
	planCmd.Flags().StringVar(&planPhaseID, "phase", "", "phase identifier for the plan document")
	planCmd.Flags().BoolVar(&planNoInject, "no-inject", false, "skip verification-task injection")
	planCmd.Flags().StringVarP(&planFormat, "output", "o", "text", "output format (text, json, yaml)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	dir, tasksFile, planFile := resolvePaths()

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	list, err := task.ParseFile(tasksFile)
	if err != nil {
		return err
	}
	if len(list.Tasks) == 0 {
		return fmt.Errorf("no tasks found in %s", tasksFile)
	}

	opts := plan.BuildOptions{PhaseID: planPhaseID}
	if modelgraph.HasProject(dir) {
		g, err := modelgraph.Load(dir)
		if err != nil {
			return err
		}
		log.DefaultLogger().Info("model graph loaded", "nodes", len(g.Nodes))
		opts.ModelGraph = g
	}

	p, err := plan.Build(list, opts)
	if err != nil {
		return err
	}

	if cfg.Verify.Enabled && cfg.Verify.Injection.Enabled && !planNoInject {
		lines, err := inject.Apply(p, inject.Options{
			Granularity: inject.Granularity(cfg.Verify.Injection.Granularity),
			BatchSize:   cfg.Verify.Injection.BatchSize,
		})
		if err != nil {
			return err
		}
		added, err := inject.Persist(task.NewListFile(tasksFile), lines)
		if err != nil {
			return err
		}
		if added > 0 {
			log.DefaultLogger().Info("verification tasks injected", "count", added)
		}
	}

	if err := plan.Save(p, planFile); err != nil {
		return err
	}

	switch planFormat {
	case "text", "":
		fmt.Fprint(cmd.OutOrStdout(), ux.RenderPlanSummary(p))
		fmt.Fprintf(cmd.OutOrStdout(), "\nPlan written to %s\n", planFile)
		return nil
	default:
		formatter, err := ux.NewFormatter(planFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		return formatter.Format(p)
	}
}
