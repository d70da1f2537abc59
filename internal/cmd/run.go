package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/runner"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/verify"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the plan wave by wave",
	Long: `Walk the plan in wave order: announce each wave's tasks, gate on the
checkpoint (every developer task checked off in the task list), log wave
completion, make a best-effort git checkpoint commit, and run the
validation pipeline for each verification task.

A halt condition (placeholder detection, exhausted fix tiers, or a
human-gated cascade halt) stops the current wave and exits with code 4.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	dir, tasksFile, planFile := resolvePaths()

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	p, err := plan.Load(planFile)
	if err != nil {
		return err
	}

	list := task.NewListFile(tasksFile)

	var verifier runner.Verifier
	if cfg.Verify.Enabled {
		verifier = verify.NewRunner(cfg, dir, list, p)
	}

	e := runner.New(dir, p, list, verifier)
	e.Out = cmd.OutOrStdout()
	return e.Execute(cmd.Context())
}
