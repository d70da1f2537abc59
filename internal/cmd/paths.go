package cmd

import "github.com/wavectl/wavectl/internal/ux"

// resolvePaths applies flag overrides on top of the conventional project
// layout.
func resolvePaths() (dir, tasks, plan string) {
	defaults := ux.NewPathDefaults(projectDir)
	dir = defaults.BaseDir

	tasks = tasksPath
	if tasks == "" {
		tasks = defaults.TasksFile()
	}
	plan = planPath
	if plan == "" {
		plan = defaults.PlanFile()
	}
	return dir, tasks, plan
}
