// Package modelgraph builds the SQL model dependency graph used to override
// wave ordering: upstream models always land in an earlier wave than their
// downstream dependents.
package modelgraph

// Provenance records how a node was discovered.
type Provenance string

const (
	// SourceManifest means the node came from target/manifest.json.
	SourceManifest Provenance = "manifest"
	// SourceFallbackScan means the node came from scanning models/**/*.sql.
	SourceFallbackScan Provenance = "fallback-scan"
)

// Node is a single model in the dependency graph.
type Node struct {
	Name            string
	FilePath        string
	Materialization string // table | view | incremental | ephemeral
	HasDescription  bool
	HasUniqueKey    bool
	// Upstream holds the names of models this node selects from.
	Upstream []string
	// Downstream is always recomputed by inverting Upstream across the whole
	// graph; it is never read from the manifest.
	Downstream []string
	Source     Provenance
}

// Graph holds every model node keyed by name.
type Graph struct {
	Nodes map[string]*Node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// FileToNode returns a map of source file path → model name.
func (g *Graph) FileToNode() map[string]string {
	out := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.FilePath] = n.Name
	}
	return out
}

// invertEdges rebuilds every Downstream list from the Upstream lists.
func (g *Graph) invertEdges() {
	for _, n := range g.Nodes {
		n.Downstream = nil
	}
	for name, n := range g.Nodes {
		for _, up := range n.Upstream {
			if upNode, ok := g.Nodes[up]; ok {
				upNode.Downstream = append(upNode.Downstream, name)
			}
		}
	}
}
