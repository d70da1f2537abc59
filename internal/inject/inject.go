// Package inject post-processes a wave plan, inserting synthetic
// verification tasks at a configurable granularity and appending their
// textual lines back to the source task list.
package inject

import (
	"fmt"
	"strings"

	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
)

// Granularity controls how many developer tasks each verification task covers.
type Granularity string

const (
	// PerTask injects one verification task after every developer task.
	PerTask Granularity = "per-task"
	// PerWave injects exactly one verification task at the end of each wave.
	PerWave Granularity = "per-wave"
	// PerN injects one verification task after every N developer tasks, plus
	// one for the final short group at the wave's end.
	PerN Granularity = "per-n"
)

// Options configures injection.
type Options struct {
	Granularity Granularity
	// BatchSize is the group size for PerN; ignored otherwise.
	BatchSize int
}

// Apply inserts verification tasks into the plan in place and returns the
// task-list lines to persist. Waves that already carry a verification task
// with the same ID are left untouched, so applying twice is a no-op.
func Apply(p *plan.Plan, opts Options) ([]string, error) {
	switch opts.Granularity {
	case PerTask, PerWave:
	case PerN:
		if opts.BatchSize < 1 {
			return nil, fmt.Errorf("batch size must be at least 1 for %s injection, got %d", PerN, opts.BatchSize)
		}
	default:
		return nil, fmt.Errorf("unknown injection granularity %q", opts.Granularity)
	}

	existing := make(map[string]bool)
	for _, w := range p.Waves {
		for _, t := range w.Tasks {
			if t.Role == task.RoleVerifier {
				existing[t.ID] = true
			}
		}
	}

	var lines []string
	for wi := range p.Waves {
		wave := &p.Waves[wi]

		var developers []plan.PlannedTask
		for _, t := range wave.Tasks {
			if t.Role == task.RoleDeveloper {
				developers = append(developers, t)
			}
		}
		if len(developers) == 0 {
			continue
		}

		var rebuilt []plan.PlannedTask
		var group []plan.PlannedTask

		closeGroup := func() {
			if len(group) == 0 {
				return
			}
			v := verifierFor(group)
			if !existing[v.ID] {
				rebuilt = append(rebuilt, v)
				lines = append(lines, lineFor(v))
			}
			group = nil
		}

		for _, t := range wave.Tasks {
			rebuilt = append(rebuilt, t)
			if t.Role != task.RoleDeveloper {
				continue
			}
			group = append(group, t)

			switch opts.Granularity {
			case PerTask:
				closeGroup()
			case PerN:
				if len(group) == opts.BatchSize {
					closeGroup()
				}
			}
		}
		// PerWave closes the single whole-wave group here; PerN closes the
		// final short group.
		closeGroup()

		wave.Tasks = rebuilt
	}

	return lines, nil
}

// Persist appends the generated lines to the task list, skipping any already
// present. Returns the number of lines actually written.
func Persist(f *task.ListFile, lines []string) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	return f.AppendUnique(lines)
}

// verifierFor builds the synthetic verification task covering a group of
// developer tasks. Its file locks mirror the group's locks for reporting; the
// scheduler never treats them as claims.
func verifierFor(group []plan.PlannedTask) plan.PlannedTask {
	ids := make([]string, 0, len(group))
	seen := make(map[string]bool)
	var locks []string
	for _, t := range group {
		ids = append(ids, t.ID)
		for _, f := range t.FileLocks {
			if !seen[f] {
				seen[f] = true
				locks = append(locks, f)
			}
		}
	}

	id := task.VerifyPrefix + ids[len(ids)-1]
	instruction := fmt.Sprintf("Validate changes from %s", strings.Join(ids, ", "))

	return plan.PlannedTask{
		ID:          id,
		Role:        task.RoleVerifier,
		Instruction: instruction,
		FileLocks:   locks,
		DependsOn:   ids,
		Handshake:   fmt.Sprintf("Upon success, update the task list line containing '%s' to [x]", id),
	}
}

func lineFor(v plan.PlannedTask) string {
	return fmt.Sprintf("- [ ] %s %s", v.ID, v.Instruction)
}
