// Package plan turns the parsed task list into an ordered wave plan: a
// dependency graph over tasks, a greedy wave scheduler, an optional
// model-graph ordering override, and the typed plan document written for the
// external executor.
package plan

import (
	"fmt"

	"github.com/wavectl/wavectl/internal/task"
)

// Strategy tags how the tasks of a wave may be dispatched.
type Strategy string

const (
	// StrategyParallelSwarm means the wave holds more than one task and every
	// task may run concurrently: no two share a file lock.
	StrategyParallelSwarm Strategy = "PARALLEL_SWARM"
	// StrategySequentialMerge means the wave must run one task at a time.
	StrategySequentialMerge Strategy = "SEQUENTIAL_MERGE"
)

// Plan is the complete execution plan document.
type Plan struct {
	PhaseID string `json:"phase_id"`
	Waves   []Wave `json:"waves"`
}

// Wave is one ordered batch of conflict-free tasks.
type Wave struct {
	Number     int           `json:"wave_id"`
	Strategy   Strategy      `json:"strategy"`
	Rationale  string        `json:"rationale"`
	Tasks      []PlannedTask `json:"tasks"`
	Checkpoint Checkpoint    `json:"checkpoint_after"`
}

// PlannedTask is a task as placed in the plan document.
type PlannedTask struct {
	ID          string    `json:"task_id"`
	Role        task.Role `json:"agent_role"`
	Instruction string    `json:"instruction"`
	FileLocks   []string  `json:"file_locks"`
	Rules       []string  `json:"rules,omitempty"`
	DependsOn   []string  `json:"dependencies"`
	// Handshake tells the executing agent how to report completion back into
	// the task list.
	Handshake string `json:"completion_handshake"`
}

// Checkpoint describes the verification gate after a wave.
type Checkpoint struct {
	Enabled  bool   `json:"enabled"`
	Criteria string `json:"verification_criteria"`
}

// TaskIDs returns every task ID in wave order.
func (p *Plan) TaskIDs() []string {
	var ids []string
	for _, w := range p.Waves {
		for _, t := range w.Tasks {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// WaveOf returns the wave number holding the given task, or 0.
func (p *Plan) WaveOf(taskID string) int {
	for _, w := range p.Waves {
		for _, t := range w.Tasks {
			if t.ID == taskID {
				return w.Number
			}
		}
	}
	return 0
}

// Validate checks the structural invariants of a plan document: wave numbers
// contiguous and 1-based, no empty waves, no duplicate task IDs, and a file
// lock shared within a wave only when that wave is SEQUENTIAL_MERGE. A
// model-graph override can legitimately place two same-file tasks in one
// wave, which is why collisions demote the strategy instead of being illegal.
func (p *Plan) Validate() error {
	seen := make(map[string]bool)
	for i, w := range p.Waves {
		if w.Number != i+1 {
			return fmt.Errorf("wave numbers must be contiguous from 1: wave at index %d has number %d", i, w.Number)
		}
		if len(w.Tasks) == 0 {
			return fmt.Errorf("wave %d has no tasks", w.Number)
		}
		if w.Strategy != StrategyParallelSwarm && w.Strategy != StrategySequentialMerge {
			return fmt.Errorf("wave %d has unknown strategy %q", w.Number, w.Strategy)
		}

		claimed := make(map[string]string)
		for _, t := range w.Tasks {
			if t.ID == "" {
				return fmt.Errorf("wave %d contains a task without an ID", w.Number)
			}
			if seen[t.ID] {
				return fmt.Errorf("task %s appears more than once in the plan", t.ID)
			}
			seen[t.ID] = true

			// Verifier locks are reporting metadata, not claims.
			if t.Role == task.RoleVerifier {
				continue
			}
			for _, f := range t.FileLocks {
				if other, taken := claimed[f]; taken && other != t.ID && w.Strategy != StrategySequentialMerge {
					return fmt.Errorf("wave %d: tasks %s and %s both lock %s in a parallel wave", w.Number, other, t.ID, f)
				}
				claimed[f] = t.ID
			}
		}
	}

	return nil
}

// completionHandshake is the instruction agents follow to report a task done.
func completionHandshake(instruction string) string {
	return fmt.Sprintf("Upon success, update the task list line containing %q to [x]", instruction)
}

// checkpointCriteria is the free-text gate attached after each wave.
func checkpointCriteria(waveNumber int) string {
	return fmt.Sprintf("Verify all wave %d tasks are marked [x] in the task list", waveNumber)
}
