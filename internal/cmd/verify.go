package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/ux"
	"github.com/wavectl/wavectl/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <task-id>",
	Short: "Run the validation pipeline for one verification task",
	Long: `Run the full validation pipeline (placeholder scan, tiered fix loop,
interface diff, change radius, cascade) for a single verification task
from the plan. Accepts the verification ID (VERIFY-T003) or the bare
developer task ID (T003).

The result manifest is written under .wavectl/verify/<verify-id>/ in
every case, including failures.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	dir, tasksFile, planFile := resolvePaths()

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	p, err := plan.Load(planFile)
	if err != nil {
		return err
	}

	target, err := findVerifyTask(p, args[0])
	if err != nil {
		return err
	}

	r := verify.NewRunner(cfg, dir, task.NewListFile(tasksFile), p)
	res, runErr := r.Run(cmd.Context(), target)
	if res != nil {
		fmt.Fprint(cmd.OutOrStdout(), ux.RenderVerifyResult(res))
	}
	return runErr
}

// findVerifyTask resolves a verification task from the plan by its ID or by
// the developer task it covers.
func findVerifyTask(p *plan.Plan, id string) (plan.PlannedTask, error) {
	verifyID := id
	if !strings.HasPrefix(verifyID, task.VerifyPrefix) {
		verifyID = task.VerifyPrefix + verifyID
	}

	var covering *plan.PlannedTask
	for wi := range p.Waves {
		for ti := range p.Waves[wi].Tasks {
			t := &p.Waves[wi].Tasks[ti]
			if t.ID == verifyID {
				return *t, nil
			}
			if t.Role != task.RoleVerifier || covering != nil {
				continue
			}
			for _, dep := range t.DependsOn {
				if dep == id {
					covering = t
				}
			}
		}
	}
	if covering != nil {
		return *covering, nil
	}
	return plan.PlannedTask{}, fmt.Errorf("no verification task for %q in the plan (run 'wavectl plan' to inject them)", id)
}
