package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) *Git {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	g := New(dir)
	ctx := context.Background()

	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		_, err := g.run(ctx, args...)
		require.NoError(t, err)
	}
	return g
}

func commitFile(t *testing.T, g *Git, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(g.Dir, name), []byte(content), 0o644))
	require.True(t, g.CheckpointCommit(context.Background(), "add "+name))
}

func TestAvailable(t *testing.T) {
	g := initRepo(t)
	assert.True(t, g.Available(context.Background()))

	assert.False(t, New(t.TempDir()).Available(context.Background()))
}

func TestShowAndDiff(t *testing.T) {
	g := initRepo(t)
	ctx := context.Background()

	commitFile(t, g, "app.py", "def run():\n    return 1\n")

	content, ok := g.Show(ctx, "HEAD", "app.py")
	require.True(t, ok)
	assert.Contains(t, content, "def run()")

	_, ok = g.Show(ctx, "HEAD", "missing.py")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(g.Dir, "app.py"), []byte("def run():\n    return 2\n"), 0o644))

	patch := g.DiffPatch(ctx, "app.py")
	assert.Contains(t, patch, "-    return 1")
	assert.Contains(t, patch, "+    return 2")

	assert.Equal(t, []string{"app.py"}, g.NameOnly(ctx))
}

func TestDegradesOutsideRepository(t *testing.T) {
	g := New(t.TempDir())
	ctx := context.Background()

	assert.Empty(t, g.DiffPatch(ctx))
	assert.Empty(t, g.NameOnly(ctx))
	_, ok := g.Show(ctx, "HEAD", "x.py")
	assert.False(t, ok)
	assert.False(t, g.CheckpointCommit(ctx, "noop"))
}

func TestCheckpointCommitNothingStaged(t *testing.T) {
	g := initRepo(t)
	commitFile(t, g, "a.txt", "a\n")

	// Second commit with a clean tree must not succeed but must not panic.
	assert.False(t, g.CheckpointCommit(context.Background(), "empty"))
}
