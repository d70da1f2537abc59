package plan

import "github.com/wavectl/wavectl/internal/task"

// Graph maps a task ID to its ordered predecessor IDs: the explicit
// dependency references from the instruction text plus every earlier-indexed
// task locking one of the same files. Edges only ever point backwards in
// source order, so the graph is acyclic by construction.
type Graph map[string][]string

// BuildGraph derives the dependency graph for a parsed task list.
func BuildGraph(list *task.List) Graph {
	indexOf := make(map[string]int, len(list.Tasks))
	for i, t := range list.Tasks {
		indexOf[t.ID] = i
	}

	g := make(Graph, len(list.Tasks))
	for i, t := range list.Tasks {
		seen := make(map[string]bool)
		var preds []string

		for _, dep := range t.DependsOn {
			if !seen[dep] {
				seen[dep] = true
				preds = append(preds, dep)
			}
		}

		for _, f := range t.FileLocks {
			for _, otherID := range list.FileIndex[f] {
				if otherID == t.ID {
					continue
				}
				if indexOf[otherID] < i && !seen[otherID] {
					seen[otherID] = true
					preds = append(preds, otherID)
				}
			}
		}

		g[t.ID] = preds
	}

	return g
}
