package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wavectlerrors "github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/exitcode"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		projectDir = "."
		tasksPath = ""
		planPath = ""
		planPhaseID = ""
		planNoInject = false
		planFormat = "text"
		graphFormat = "text"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func waveTaskIDs(w plan.Wave) []string {
	ids := make([]string, 0, len(w.Tasks))
	for _, t := range w.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func projectFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	tasks := "# Phase 1\n" +
		"- [ ] Add login endpoint in src/auth.py\n" +
		"- [ ] Add session model in src/auth.py after T001\n" +
		"- [ ] Add signup page in src/signup.py\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.md"), []byte(tasks), 0o644))
	return dir
}

func TestPlanCommandWritesPlanAndInjects(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "plan", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Execution plan")
	assert.Contains(t, out, "Wave 1")
	assert.Contains(t, out, "Plan written to")

	p, loadErr := plan.Load(filepath.Join(dir, "execution_plan.json"))
	require.NoError(t, loadErr)
	require.Len(t, p.Waves, 2)

	// T001 and T003 share no files; T002 conflicts with T001 on src/auth.py
	// and depends on it.
	assert.Contains(t, waveTaskIDs(p.Waves[0]), "T001")
	assert.Contains(t, waveTaskIDs(p.Waves[0]), "T003")
	assert.Contains(t, waveTaskIDs(p.Waves[1]), "T002")

	// Default config injects per-wave verification tasks into plan and list.
	assert.Contains(t, waveTaskIDs(p.Waves[0]), "VERIFY-T003")
	data, readErr := os.ReadFile(filepath.Join(dir, "tasks.md"))
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "- [ ] VERIFY-T003")
}

func TestPlanCommandIsIdempotent(t *testing.T) {
	dir := projectFixture(t)

	_, err := execute(t, "plan", "--dir", dir)
	require.NoError(t, err)
	first, readErr := os.ReadFile(filepath.Join(dir, "tasks.md"))
	require.NoError(t, readErr)

	_, err = execute(t, "plan", "--dir", dir)
	require.NoError(t, err)
	second, readErr := os.ReadFile(filepath.Join(dir, "tasks.md"))
	require.NoError(t, readErr)

	assert.Equal(t, string(first), string(second))
}

func TestPlanCommandJSONOutput(t *testing.T) {
	dir := projectFixture(t)

	out, err := execute(t, "plan", "--dir", dir, "--output", "json", "--no-inject")

	require.NoError(t, err)
	var p plan.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "default", p.PhaseID)
}

func TestPlanCommandMissingTaskList(t *testing.T) {
	_, err := execute(t, "plan", "--dir", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, exitcode.PlanningError, exitcode.DetermineExitCode(err))
}

func TestRunCommandMissingPlan(t *testing.T) {
	dir := projectFixture(t)

	_, err := execute(t, "run", "--dir", dir)

	require.Error(t, err)
	var coded *wavectlerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, wavectlerrors.ErrCodePlanNotFound, coded.Code)
	assert.Equal(t, exitcode.PlanningError, exitcode.DetermineExitCode(err))
}

func TestGraphCommandWithoutModelProject(t *testing.T) {
	_, err := execute(t, "graph", "--dir", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model project")
}

func TestGraphCommandRendersLevels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models", "staging"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "staging", "stg_orders.sql"),
		[]byte("select * from raw.orders\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "fct_orders.sql"),
		[]byte("select * from {{ ref('stg_orders') }}\n"), 0o644))

	out, err := execute(t, "graph", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Model graph")
	assert.Contains(t, out, "stg_orders")
	assert.Contains(t, out, "fct_orders")
	assert.Contains(t, out, "Level 2")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "wavectl")
}

func TestFindVerifyTask(t *testing.T) {
	p := &plan.Plan{Waves: []plan.Wave{
		{Number: 1, Tasks: []plan.PlannedTask{
			{ID: "T001", Role: task.RoleDeveloper},
			{ID: "T002", Role: task.RoleDeveloper},
			{ID: "VERIFY-T002", Role: task.RoleVerifier, DependsOn: []string{"T001", "T002"}},
		}},
	}}

	got, err := findVerifyTask(p, "VERIFY-T002")
	require.NoError(t, err)
	assert.Equal(t, "VERIFY-T002", got.ID)

	// Bare developer ID resolves through the covering verifier.
	got, err = findVerifyTask(p, "T001")
	require.NoError(t, err)
	assert.Equal(t, "VERIFY-T002", got.ID)

	_, err = findVerifyTask(p, "T999")
	require.Error(t, err)
}
