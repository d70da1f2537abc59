package modelgraph

import "sort"

// AssignLevels computes a wave level for every node in subset using Kahn's
// algorithm restricted to edges between subset members. Nodes with no
// in-subset upstream start at level 1; each subsequent level is one past the
// maximum level of its in-subset parents. Nodes never reached by the
// propagation (possible when the restricted subgraph is cyclic) keep the
// default level 1 so callers always get a complete map back.
func AssignLevels(g *Graph, subset []string) map[string]int {
	members := make(map[string]bool, len(subset))
	for _, name := range subset {
		if _, ok := g.Nodes[name]; ok {
			members[name] = true
		}
	}

	levels := make(map[string]int, len(members))
	indegree := make(map[string]int, len(members))
	for name := range members {
		levels[name] = 1
		for _, up := range g.Nodes[name].Upstream {
			if members[up] {
				indegree[name]++
			}
		}
	}

	queue := make([]string, 0, len(members))
	for name := range members {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, down := range g.Nodes[current].Downstream {
			if !members[down] {
				continue
			}
			if next := levels[current] + 1; next > levels[down] {
				levels[down] = next
			}
			indegree[down]--
			if indegree[down] == 0 {
				queue = append(queue, down)
			}
		}
	}

	return levels
}
