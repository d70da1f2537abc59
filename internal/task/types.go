// Package task models the markdown task list: parsing work items into typed
// records and owning every mutation of the list file.
package task

// Role distinguishes ordinary development work from injected verification steps.
type Role string

const (
	// RoleDeveloper marks an ordinary work item.
	RoleDeveloper Role = "developer"
	// RoleVerifier marks a synthetic verification task.
	RoleVerifier Role = "verifier"
)

// VerifyPrefix is the identifier prefix that marks verification-task lines in
// the task list. The parser treats such lines as block terminators, never as
// ordinary tasks, so re-planning an already-injected list is stable.
const VerifyPrefix = "VERIFY-"

// Task is a single parsed work item.
type Task struct {
	// ID is stable and sequence-derived (T001, T002, ...) in source order.
	ID string
	// Instruction is the free-text description from the task line.
	Instruction string
	// Role is developer for parsed tasks; verifier tasks are synthesized by
	// the injector, never parsed back.
	Role Role
	// FileLocks are the file paths this task claims, first-seen order, deduped.
	FileLocks []string
	// DependsOn are explicit predecessor task IDs ("after T123" references).
	DependsOn []string
	// Rules are the policy-rule tags attached via a nested metadata line.
	Rules []string
	// Completed is true when the checkbox is [x].
	Completed bool
}

// List is the parsed task list plus the file→tasks index.
type List struct {
	Tasks []Task
	// FileIndex maps a locked file path to the IDs of every task claiming it,
	// in source order.
	FileIndex map[string][]string
}

// ByID returns the task with the given ID, or nil.
func (l *List) ByID(id string) *Task {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return &l.Tasks[i]
		}
	}
	return nil
}

// Pending returns the tasks not yet marked complete.
func (l *List) Pending() []Task {
	var out []Task
	for _, t := range l.Tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}
