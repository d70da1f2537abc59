// Package vcs is a thin wrapper over the git binary. Every call carries a
// context timeout; a missing binary or a non-repository degrades to empty
// results so the verification pipeline never fails on version control alone.
package vcs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/wavectl/wavectl/internal/log"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 30 * time.Second

// Git runs git commands inside a working directory.
type Git struct {
	// Dir is the repository root; empty means the process working directory.
	Dir string
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// New returns a Git bound to dir.
func New(dir string) *Git {
	return &Git{Dir: dir}
}

// Available reports whether the git binary exists and dir is a repository.
func (g *Git) Available(ctx context.Context) bool {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Show returns a file's content at the given ref ("HEAD:path" form). Missing
// file at that ref or any git failure returns "" with ok=false.
func (g *Git) Show(ctx context.Context, ref, path string) (string, bool) {
	out, err := g.run(ctx, "show", ref+":"+path)
	if err != nil {
		return "", false
	}
	return out, true
}

// DiffPatch returns the unified diff of the working tree against HEAD,
// optionally restricted to paths. Best effort: failures return "".
func (g *Git) DiffPatch(ctx context.Context, paths ...string) string {
	args := []string{"diff", "HEAD"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		log.DefaultLogger().Debug("git diff failed", "error", err)
		return ""
	}
	return out
}

// NameOnly returns the paths changed relative to HEAD.
func (g *Git) NameOnly(ctx context.Context) []string {
	out, err := g.run(ctx, "diff", "HEAD", "--name-only")
	if err != nil {
		return nil
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

// CheckpointCommit stages everything and commits with the given message.
// Best effort: an empty tree or any git failure is logged and swallowed.
func (g *Git) CheckpointCommit(ctx context.Context, message string) bool {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		log.DefaultLogger().Debug("git add failed", "error", err)
		return false
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		// Nothing staged is the common case, not a fault.
		log.DefaultLogger().Debug("git commit skipped", "error", err)
		return false
	}
	return true
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
