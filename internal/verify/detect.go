package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DetectTestCommand inspects the project root for a known build descriptor
// and returns the shell command that runs its test suite. Priority order:
// Python, JavaScript/TypeScript, Rust, Go. An empty string means no test
// framework was found and the fix loop is skipped entirely.
func DetectTestCommand(root string) string {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}

	if exists("pyproject.toml") || exists("setup.py") {
		return "python -m pytest"
	}

	if exists("package.json") {
		data, err := os.ReadFile(filepath.Join(root, "package.json"))
		if err != nil {
			return "npm test"
		}
		var pkg struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
			Scripts         map[string]string `json:"scripts"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			return "npm test"
		}
		if _, ok := pkg.Dependencies["vitest"]; ok {
			return "npx vitest run"
		}
		if _, ok := pkg.DevDependencies["vitest"]; ok {
			return "npx vitest run"
		}
		if _, ok := pkg.Scripts["test"]; ok {
			return "npm test"
		}
		return ""
	}

	if exists("Cargo.toml") {
		return "cargo test"
	}

	if exists("go.mod") {
		return "go test ./..."
	}

	return ""
}
