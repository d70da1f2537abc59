package ux

import "path/filepath"

// PathDefaults resolves the conventional file locations inside a project.
type PathDefaults struct {
	BaseDir string
}

// NewPathDefaults returns defaults rooted at the given project directory.
func NewPathDefaults(baseDir string) *PathDefaults {
	if baseDir == "" {
		baseDir = "."
	}
	return &PathDefaults{BaseDir: baseDir}
}

// TasksFile is the markdown task list the planner reads.
func (pd *PathDefaults) TasksFile() string {
	return filepath.Join(pd.BaseDir, "tasks.md")
}

// PlanFile is the generated execution plan document.
func (pd *PathDefaults) PlanFile() string {
	return filepath.Join(pd.BaseDir, "execution_plan.json")
}

// ConfigFile is the per-project configuration.
func (pd *PathDefaults) ConfigFile() string {
	return filepath.Join(pd.BaseDir, "wavectl.yml")
}

// VerifyDir is where verification manifests are written.
func (pd *PathDefaults) VerifyDir() string {
	return filepath.Join(pd.BaseDir, ".wavectl", "verify")
}

// ProgressFile is the wave completion log.
func (pd *PathDefaults) ProgressFile() string {
	return filepath.Join(pd.BaseDir, ".wavectl", "progress.md")
}
