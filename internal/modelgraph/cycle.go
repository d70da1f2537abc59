package modelgraph

import (
	"sort"
	"strings"
)

type color uint8

const (
	white color = iota // unvisited
	gray               // on the current DFS path
	black              // fully processed
)

// DetectCycle runs a three-color depth-first search over downstream edges
// using an explicit work stack, so stack depth stays bounded on large graphs.
// It returns the cycle as an ordered path string ("a -> b -> c -> a"), or ""
// when the graph is acyclic. This must run before any wave numbers derived
// from the graph are trusted.
func DetectCycle(g *Graph) string {
	colors := make(map[string]color, len(g.Nodes))
	parent := make(map[string]string, len(g.Nodes))

	roots := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		roots = append(roots, name)
	}
	sort.Strings(roots)

	type frame struct {
		node string
		next int
	}

	for _, root := range roots {
		if colors[root] != white {
			continue
		}

		stack := []frame{{node: root}}
		colors[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			downstream := g.Nodes[top.node].Downstream

			if top.next < len(downstream) {
				child := downstream[top.next]
				top.next++

				if _, known := g.Nodes[child]; !known {
					continue
				}

				switch colors[child] {
				case gray:
					return buildCyclePath(parent, top.node, child)
				case white:
					parent[child] = top.node
					colors[child] = gray
					stack = append(stack, frame{node: child})
				}
				continue
			}

			colors[top.node] = black
			stack = stack[:len(stack)-1]
		}
	}

	return ""
}

// buildCyclePath reconstructs the cycle ending at the back-edge from -> to.
func buildCyclePath(parent map[string]string, from, to string) string {
	if from == to {
		return from + " -> " + to
	}

	path := []string{to, from}
	current := from
	for {
		p, ok := parent[current]
		if !ok || p == to {
			break
		}
		current = p
		path = append(path, current)
	}
	path = append(path, to)

	// Reverse into traversal order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " -> ")
}
