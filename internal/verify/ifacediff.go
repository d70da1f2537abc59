package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/wavectl/wavectl/internal/log"
)

// Symbols is the public API surface extracted from one file version.
type Symbols struct {
	// Functions maps a public function name to its signature text. Regex
	// extractors leave signatures empty; only names are compared then.
	Functions map[string]string
	Classes   map[string]bool
}

// SymbolExtractor pulls the public symbols out of source content. A non-nil
// error means the content could not be parsed at all.
type SymbolExtractor interface {
	Extract(content string) (Symbols, error)
}

var tsPatterns = compilePatterns([]string{
	`export\s+(?:async\s+)?function\s+(\w+)`,
	`export\s+const\s+(\w+)\s*=`,
	`export\s+(?:abstract\s+)?class\s+(\w+)`,
	`export\s+(?:default\s+)?interface\s+(\w+)`,
	`export\s+type\s+(\w+)`,
})

var rustPatterns = compilePatterns([]string{
	`pub\s+(?:async\s+)?fn\s+(\w+)`,
	`pub\s+struct\s+(\w+)`,
	`pub\s+trait\s+(\w+)`,
	`pub\s+enum\s+(\w+)`,
})

func compilePatterns(sources []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(sources))
	for i, s := range sources {
		out[i] = regexp.MustCompile(s)
	}
	return out
}

// extractorFor selects the extractor and language label by file extension.
func extractorFor(file string) (SymbolExtractor, string, string) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".py":
		return pythonExtractor{}, "python", "structural"
	case ".ts", ".tsx":
		return regexExtractor{patterns: tsPatterns}, "typescript", "regex"
	case ".js", ".jsx":
		return regexExtractor{patterns: tsPatterns}, "javascript", "regex"
	case ".rs":
		return regexExtractor{patterns: rustPatterns}, "rust", "regex"
	}
	return nil, "unknown", "none"
}

// CompareInterfaces diffs the public API surface of a file between two
// content versions. It never fails: an unparseable side degrades to an empty
// non-breaking report.
func CompareInterfaces(file, pre, post string) InterfaceReport {
	extractor, language, method := extractorFor(file)
	report := InterfaceReport{File: file, Language: language, Method: "none"}
	if extractor == nil {
		return report
	}

	preSyms, err := extractor.Extract(pre)
	if err != nil {
		log.DefaultLogger().Warn("could not parse pre-run content, skipping interface diff",
			"file", file, "error", err)
		return report
	}
	postSyms, err := extractor.Extract(post)
	if err != nil {
		log.DefaultLogger().Warn("could not parse post-run content, skipping interface diff",
			"file", file, "error", err)
		return report
	}
	report.Method = method

	for name, sig := range preSyms.Functions {
		postSig, ok := postSyms.Functions[name]
		switch {
		case !ok:
			report.Breaking = append(report.Breaking, name)
		case postSig != sig:
			report.Modified = append(report.Modified, SignatureChange{Name: name, Old: sig, New: postSig})
		}
	}
	for name := range preSyms.Classes {
		if !postSyms.Classes[name] {
			report.Breaking = append(report.Breaking, name)
		}
	}
	for name := range postSyms.Functions {
		if _, ok := preSyms.Functions[name]; !ok {
			report.NonBreaking = append(report.NonBreaking, name)
		}
	}
	for name := range postSyms.Classes {
		if !preSyms.Classes[name] {
			report.NonBreaking = append(report.NonBreaking, name)
		}
	}

	sort.Strings(report.Breaking)
	sort.Strings(report.NonBreaking)
	sort.Slice(report.Modified, func(i, j int) bool {
		return report.Modified[i].Name < report.Modified[j].Name
	})

	report.IsBreaking = len(report.Breaking) > 0 || len(report.Modified) > 0
	return report
}

// pythonExtractor walks a tree-sitter parse of the file, collecting public
// functions (with their header line as the signature) and classes. Nested
// definitions and methods are included, matching how a structural walk of the
// whole module behaves.
type pythonExtractor struct{}

func (pythonExtractor) Extract(content string) (Symbols, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(content)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return Symbols{}, fmt.Errorf("parse python source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if containsErrorNode(root) {
		return Symbols{}, fmt.Errorf("python source has syntax errors")
	}

	syms := Symbols{Functions: make(map[string]string), Classes: make(map[string]bool)}
	collectPythonSymbols(root, src, &syms)
	return syms, nil
}

func collectPythonSymbols(node *sitter.Node, src []byte, syms *Symbols) {
	switch node.Type() {
	case "function_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name := nameNode.Content(src)
			if !strings.HasPrefix(name, "_") {
				syms.Functions[name] = headerLine(node, src)
			}
		}
	case "class_definition":
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name := nameNode.Content(src)
			if !strings.HasPrefix(name, "_") {
				syms.Classes[name] = true
			}
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectPythonSymbols(node.NamedChild(i), src, syms)
	}
}

// headerLine returns the first line of a definition, the part that carries
// the call signature.
func headerLine(node *sitter.Node, src []byte) string {
	text := node.Content(src)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ":")
}

func containsErrorNode(node *sitter.Node) bool {
	if node.IsError() || node.IsMissing() {
		return true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if containsErrorNode(node.Child(i)) {
			return true
		}
	}
	return false
}

// regexExtractor matches exported-symbol declaration patterns line by line.
// It cannot observe signatures, so only symbol presence is compared.
type regexExtractor struct {
	patterns []*regexp.Regexp
}

func (e regexExtractor) Extract(content string) (Symbols, error) {
	syms := Symbols{Functions: make(map[string]string), Classes: make(map[string]bool)}
	for _, re := range e.patterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			syms.Functions[m[1]] = ""
		}
	}
	return syms, nil
}
