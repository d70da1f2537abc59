package modelgraph

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Reference-call patterns used by the fallback source scan.
var (
	refRe       = regexp.MustCompile(`\{\{\s*ref\s*\(\s*['"](\w+)['"]\s*\)\s*\}\}`)
	sourceRe    = regexp.MustCompile(`\{\{\s*source\s*\(\s*['"](\w+)['"]\s*,\s*['"](\w+)['"]\s*\)\s*\}\}`)
	configRe    = regexp.MustCompile(`(?s)\{\{\s*config\s*\(.*?materialized\s*=\s*['"](\w+)['"].*?\)\s*\}\}`)
	uniqueKeyRe = regexp.MustCompile(`unique_key\s*=\s*['"](\w+)['"]`)
)

// manifestDoc mirrors the subset of target/manifest.json we read.
type manifestDoc struct {
	Nodes map[string]manifestNode `json:"nodes"`
}

type manifestNode struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	UniqueKey   any            `json:"unique_key"`
	Config      manifestConfig `json:"config"`
	DependsOn   struct {
		Nodes []string `json:"nodes"`
	} `json:"depends_on"`
	OriginalFilePath string `json:"original_file_path"`
}

type manifestConfig struct {
	Materialized string `json:"materialized"`
	UniqueKey    any    `json:"unique_key"`
}

// Load builds the model graph for the project at root. target/manifest.json
// is preferred; when absent the models directory is scanned for reference
// tokens. Downstream edges are derived afterwards in both cases.
func Load(root string) (*Graph, error) {
	g := NewGraph()

	manifestPath := filepath.Join(root, "target", "manifest.json")
	if _, err := os.Stat(manifestPath); err == nil {
		if err := g.loadManifest(manifestPath); err != nil {
			return nil, err
		}
	} else {
		if err := g.loadFromScan(root); err != nil {
			return nil, err
		}
	}

	g.invertEdges()
	return g, nil
}

// HasProject reports whether root looks like a model project at all: either a
// manifest or a models directory exists.
func HasProject(root string) bool {
	if _, err := os.Stat(filepath.Join(root, "target", "manifest.json")); err == nil {
		return true
	}
	if st, err := os.Stat(filepath.Join(root, "models")); err == nil && st.IsDir() {
		return true
	}
	return false
}

func (g *Graph) loadManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read model manifest: %w", err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal model manifest %s: %w", path, err)
	}

	for nodeID, node := range doc.Nodes {
		if !strings.HasPrefix(nodeID, "model.") {
			continue
		}
		if node.Name == "" {
			continue
		}

		materialization := node.Config.Materialized
		if materialization == "" {
			materialization = "view"
		}

		// Upstream names: model.* refs only, project prefix stripped.
		var upstream []string
		for _, depID := range node.DependsOn.Nodes {
			if !strings.HasPrefix(depID, "model.") {
				continue
			}
			parts := strings.Split(depID, ".")
			if len(parts) >= 3 {
				upstream = append(upstream, parts[len(parts)-1])
			}
		}

		filePath := node.OriginalFilePath
		if filePath == "" {
			filePath = filepath.Join("models", node.Name+".sql")
		}

		g.Nodes[node.Name] = &Node{
			Name:            node.Name,
			FilePath:        filePath,
			Materialization: materialization,
			HasDescription:  strings.TrimSpace(node.Description) != "",
			HasUniqueKey:    hasUniqueKey(node),
			Upstream:        upstream,
			Source:          SourceManifest,
		}
	}

	return nil
}

func hasUniqueKey(n manifestNode) bool {
	notEmpty := func(v any) bool {
		switch x := v.(type) {
		case nil:
			return false
		case string:
			return x != ""
		case []any:
			return len(x) > 0
		default:
			return true
		}
	}
	return notEmpty(n.Config.UniqueKey) || notEmpty(n.UniqueKey)
}

// loadFromScan walks models/**/*.sql extracting reference-call tokens.
func (g *Graph) loadFromScan(root string) error {
	modelsDir := filepath.Join(root, "models")
	if st, err := os.Stat(modelsDir); err != nil || !st.IsDir() {
		return nil
	}

	var files []string
	err := filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan models directory: %w", err)
	}
	sort.Strings(files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		content := string(data)

		name := strings.TrimSuffix(filepath.Base(path), ".sql")

		var upstream []string
		seen := make(map[string]bool)
		for _, m := range refRe.FindAllStringSubmatch(content, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				upstream = append(upstream, m[1])
			}
		}
		// Cross-project source() references are recorded for completeness but
		// do not create intra-graph edges.
		_ = sourceRe.FindAllStringSubmatch(content, -1)

		materialization := "view"
		if m := configRe.FindStringSubmatch(content); m != nil {
			materialization = m[1]
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		g.Nodes[name] = &Node{
			Name:            name,
			FilePath:        rel,
			Materialization: materialization,
			HasDescription:  false, // unknowable without schema files
			HasUniqueKey:    uniqueKeyRe.MatchString(content),
			Upstream:        upstream,
			Source:          SourceFallbackScan,
		}
	}

	return nil
}
