package plan

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/modelgraph"
	"github.com/wavectl/wavectl/internal/task"
)

// BuildOptions configures plan construction.
type BuildOptions struct {
	// PhaseID labels the produced plan document.
	PhaseID string
	// ModelGraph, when non-nil, re-orders mapped tasks by model dependency
	// level after the file-lock scheduling pass.
	ModelGraph *modelgraph.Graph
}

// Build schedules the pending tasks of a list into waves and assembles the
// plan document. Completed tasks unblock their dependents but are never
// emitted. A detected model-graph cycle or an unresolvable scheduling state
// aborts with a planning error before any plan exists.
func Build(list *task.List, opts BuildOptions) (*Plan, error) {
	if opts.PhaseID == "" {
		opts.PhaseID = "default"
	}

	graph := BuildGraph(list)

	waves, err := schedule(list, graph)
	if err != nil {
		return nil, err
	}

	overridden := false
	if opts.ModelGraph != nil && len(opts.ModelGraph.Nodes) > 0 {
		waves, err = applyModelOrder(waves, opts.ModelGraph)
		if err != nil {
			return nil, err
		}
		overridden = true
	}

	p := &Plan{PhaseID: opts.PhaseID}
	for i, wt := range waves {
		number := i + 1
		w := Wave{
			Number:     number,
			Strategy:   strategyFor(wt),
			Rationale:  rationaleFor(number, len(wt), overridden),
			Checkpoint: Checkpoint{Enabled: true, Criteria: checkpointCriteria(number)},
		}
		for _, t := range wt {
			w.Tasks = append(w.Tasks, PlannedTask{
				ID:          t.ID,
				Role:        t.Role,
				Instruction: t.Instruction,
				FileLocks:   t.FileLocks,
				Rules:       t.Rules,
				DependsOn:   graph[t.ID],
				Handshake:   completionHandshake(t.Instruction),
			})
		}
		p.Waves = append(p.Waves, w)
	}

	return p, nil
}

// schedule runs the greedy level assignment. The assigned set grows only when
// a wave closes, so every predecessor of a task lands in a strictly earlier
// wave than the task itself.
func schedule(list *task.List, graph Graph) ([][]task.Task, error) {
	assigned := make(map[string]bool)
	remaining := 0
	for _, t := range list.Tasks {
		if t.Completed {
			assigned[t.ID] = true
		} else {
			remaining++
		}
	}

	var waves [][]task.Task
	placed := make(map[string]bool)

	for remaining > 0 {
		var wave []task.Task
		claimed := make(map[string]bool)

		for _, t := range list.Tasks {
			if t.Completed || placed[t.ID] {
				continue
			}

			ready := true
			for _, dep := range graph[t.ID] {
				if !assigned[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}

			conflict := false
			for _, f := range t.FileLocks {
				if claimed[f] {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}

			wave = append(wave, t)
			placed[t.ID] = true
			for _, f := range t.FileLocks {
				claimed[f] = true
			}
		}

		if len(wave) == 0 {
			var stuck []string
			for _, t := range list.Tasks {
				if !t.Completed && !placed[t.ID] {
					stuck = append(stuck, t.ID)
				}
			}
			return nil, errors.NewPlanDeadlockError(stuck)
		}

		for _, t := range wave {
			assigned[t.ID] = true
		}
		remaining -= len(wave)
		waves = append(waves, wave)
	}

	return waves, nil
}

// applyModelOrder replaces the wave number of every task that maps to a model
// node with the node's topological level, then rebuilds contiguous waves.
// Cycle detection runs first: a cyclic model graph aborts planning entirely.
func applyModelOrder(waves [][]task.Task, g *modelgraph.Graph) ([][]task.Task, error) {
	if cycle := modelgraph.DetectCycle(g); cycle != "" {
		return nil, errors.NewGraphCycleError(cycle)
	}

	waveOf := make(map[string]int)
	order := make(map[string]int)
	var all []task.Task
	idx := 0
	for i, wave := range waves {
		for _, t := range wave {
			waveOf[t.ID] = i + 1
			order[t.ID] = idx
			idx++
			all = append(all, t)
		}
	}

	mapping := mapTasksToNodes(all, g)

	var mapped []string
	seen := make(map[string]bool)
	for _, node := range mapping {
		if !seen[node] {
			seen[node] = true
			mapped = append(mapped, node)
		}
	}
	levels := modelgraph.AssignLevels(g, mapped)

	for id, node := range mapping {
		if lvl, ok := levels[node]; ok {
			waveOf[id] = lvl
		}
	}

	// Rebuild contiguous 1-based waves, keeping source order inside each.
	numbers := make([]int, 0, len(waveOf))
	byNumber := make(map[int][]task.Task)
	for _, t := range all {
		n := waveOf[t.ID]
		if len(byNumber[n]) == 0 {
			numbers = append(numbers, n)
		}
		byNumber[n] = append(byNumber[n], t)
	}
	sort.Ints(numbers)

	rebuilt := make([][]task.Task, 0, len(numbers))
	for _, n := range numbers {
		wave := byNumber[n]
		sort.Slice(wave, func(a, b int) bool { return order[wave[a].ID] < order[wave[b].ID] })
		rebuilt = append(rebuilt, wave)
	}

	return rebuilt, nil
}

// mapTasksToNodes resolves each task to a model node: exact lock-path match
// first, then the stem of a ".model"-suffixed lock, then a whole-word node
// name inside the instruction. The first matching lock wins before any
// instruction-text matching is tried.
func mapTasksToNodes(tasks []task.Task, g *modelgraph.Graph) map[string]string {
	fileToNode := g.FileToNode()

	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	nameRes := make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		nameRes[name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	}

	mapping := make(map[string]string)
	for _, t := range tasks {
		if node := matchByLocks(t.FileLocks, fileToNode, g); node != "" {
			mapping[t.ID] = node
			continue
		}
		for _, name := range names {
			if nameRes[name].MatchString(t.Instruction) {
				mapping[t.ID] = name
				break
			}
		}
	}

	return mapping
}

func matchByLocks(locks []string, fileToNode map[string]string, g *modelgraph.Graph) string {
	for _, lock := range locks {
		if node, ok := fileToNode[lock]; ok {
			return node
		}
		if strings.HasSuffix(lock, ".model") {
			stem := strings.TrimSuffix(lock[strings.LastIndex(lock, "/")+1:], ".model")
			if _, ok := g.Nodes[stem]; ok {
				return stem
			}
		}
	}
	return ""
}

func strategyFor(wave []task.Task) Strategy {
	if len(wave) <= 1 {
		return StrategySequentialMerge
	}
	claimed := make(map[string]bool)
	for _, t := range wave {
		for _, f := range t.FileLocks {
			if claimed[f] {
				return StrategySequentialMerge
			}
			claimed[f] = true
		}
	}
	return StrategyParallelSwarm
}

func rationaleFor(number, size int, overridden bool) string {
	if overridden {
		return fmt.Sprintf("Wave %d: %d task(s) ordered by the model dependency graph", number, size)
	}
	return fmt.Sprintf("Wave %d: %d independent task(s) with no file conflicts", number, size)
}
