// Package cmd wires the wavectl command tree.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wavectl",
	Short: "Wave-based task planner and verification gate for agent-driven changes",
	Long: `wavectl partitions a markdown task list into dependency-ordered execution
waves, injects verification tasks, and runs a tiered validation pipeline
(placeholder scan, local/cloud fix loop, interface diff, change-radius
budget, cascade warnings) behind every verification task.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	projectDir string
	tasksPath  string
	planPath   string
)

// ExecuteContext runs the root command with the given context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&tasksPath, "tasks", "", "task list path (default <dir>/tasks.md)")
	rootCmd.PersistentFlags().StringVar(&planPath, "plan", "", "plan document path (default <dir>/execution_plan.json)")
}
