package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavectl/wavectl/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanFlagsProductionCode(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src/auth.py",
		"def login(user):\n"+
			"    # TODO: handle MFA\n"+
			"    return session(user)\n")

	s := NewPlaceholderScanner(config.Placeholder{})
	violations := s.Scan([]string{src})

	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, src, v.File)
	assert.Equal(t, 2, v.Line)
	assert.Equal(t, `\bTODO\b`, v.Pattern)
	assert.Equal(t, "TODO", v.Text)
	// Two lines of context either side, clipped at file boundaries.
	assert.Equal(t, []string{
		"def login(user):",
		"    # TODO: handle MFA",
		"    return session(user)",
	}, v.Context)
}

func TestScanSkipsTestFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "tests/test_auth.py", "# TODO: add edge cases\n"),
		writeFile(t, dir, "src/api.test.ts", "// FIXME flaky\n"),
		writeFile(t, dir, "src/__mocks__/db.py", "mock_db = None\n"),
		writeFile(t, dir, "internal/plan/plan_test.go", "// TODO table cases\n"),
	}

	s := NewPlaceholderScanner(config.Placeholder{})
	assert.Empty(t, s.Scan(files))
}

func TestScanOneViolationPerLine(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src/job.py", "# TODO FIXME both on one line\n")

	s := NewPlaceholderScanner(config.Placeholder{})
	violations := s.Scan([]string{src})

	require.Len(t, violations, 1)
	assert.Equal(t, `\bTODO\b`, violations[0].Pattern)
}

func TestScanRaiseNotImplemented(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src/report.py",
		"def export(fmt):\n"+
			"    raise NotImplementedError\n")

	s := NewPlaceholderScanner(config.Placeholder{})
	violations := s.Scan([]string{src})

	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].Line)
}

func TestScanConfiguredExtras(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src/gen.py", "# WIP do not ship\n")

	s := NewPlaceholderScanner(config.Placeholder{Patterns: []string{`\bWIP\b`}})
	violations := s.Scan([]string{src})

	require.Len(t, violations, 1)
	assert.Equal(t, `\bWIP\b`, violations[0].Pattern)
}

func TestScanDropsInvalidConfiguredPattern(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src/ok.py", "def fine():\n    return 1\n")

	s := NewPlaceholderScanner(config.Placeholder{Patterns: []string{`(`}})
	assert.Empty(t, s.Scan([]string{src}))
}

func TestIsExcluded(t *testing.T) {
	s := NewPlaceholderScanner(config.Placeholder{ExcludePaths: []string{"generated/", "*.pb.py"}})

	cases := []struct {
		path string
		want bool
	}{
		{"src/auth.py", false},
		{"tests/test_auth.py", true},
		{"deep/tests/helper.py", true},
		{"src/api.spec.tsx", true},
		{"src/widget_test.go", true},
		{"generated/schema.py", true},
		{"src/events.pb.py", true},
		{"src/contest.py", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.IsExcluded(tc.path), tc.path)
	}
}
