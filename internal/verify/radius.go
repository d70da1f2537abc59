package verify

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"github.com/zeebo/blake3"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/vcs"
)

// ComputeFileChanges diffs the locked paths against the last commit once and
// parses the patch into per-file line stats. Locked files that exist but have
// no diff still appear with zero counts so the manifest records them.
func ComputeFileChanges(ctx context.Context, git *vcs.Git, root string, paths []string) []FileChange {
	patch := git.DiffPatch(ctx, paths...)

	statsFor := make(map[string]FileChange)
	if patch != "" {
		fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
		if err != nil {
			log.DefaultLogger().Warn("could not parse diff output", "error", err)
		} else {
			for _, fd := range fileDiffs {
				fc := FileChange{Path: stripDiffPrefix(fd.NewName)}
				if fc.Path == "" || fc.Path == "/dev/null" {
					fc.Path = stripDiffPrefix(fd.OrigName)
				}
				for _, hunk := range fd.Hunks {
					for _, line := range strings.Split(string(hunk.Body), "\n") {
						switch {
						case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
							fc.LinesAdded++
						case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
							fc.LinesRemoved++
						}
					}
				}
				statsFor[fc.Path] = fc
			}
		}
	}

	var out []FileChange
	for _, p := range paths {
		fc, changed := statsFor[p]
		if !changed {
			if _, err := os.Stat(filepath.Join(root, p)); err != nil {
				continue
			}
			fc = FileChange{Path: p}
		}
		fc.Digest = contentDigest(filepath.Join(root, p))
		out = append(out, fc)
	}
	return out
}

func stripDiffPrefix(name string) string {
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}

// contentDigest returns the BLAKE3 hex digest of a file's current content,
// or "" when unreadable.
func contentDigest(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RadiusEvaluator applies the configured change budget.
type RadiusEvaluator struct {
	cfg config.ChangeRadius
}

// NewRadiusEvaluator builds an evaluator from config.
func NewRadiusEvaluator(cfg config.ChangeRadius) *RadiusEvaluator {
	return &RadiusEvaluator{cfg: cfg}
}

// Evaluate tallies the blast radius along four axes: distinct files, summed
// line delta, interface symbol changes, and changed files locked by tasks in
// a different wave than the one being verified. Any exceeded axis marks the
// radius exceeded with that axis recorded.
func (e *RadiusEvaluator) Evaluate(changes []FileChange, reports []InterfaceReport, p *plan.Plan, verifyTaskID string) RadiusReport {
	r := RadiusReport{
		FilesChanged:          len(changes),
		BudgetFiles:           e.cfg.MaxFiles,
		BudgetLines:           e.cfg.MaxLines,
		AllowInterfaceChanges: e.cfg.AllowInterfaceChanges,
	}

	for _, fc := range changes {
		r.LinesChanged += fc.LinesAdded + fc.LinesRemoved
	}
	for _, rep := range reports {
		r.InterfaceChanges += len(rep.Breaking) + len(rep.NonBreaking)
	}

	if p != nil {
		r.CrossWaveFiles = crossWaveConflicts(changes, p, verifyTaskID)
	}

	if r.FilesChanged > e.cfg.MaxFiles {
		r.Violations = append(r.Violations, "files")
	}
	if r.LinesChanged > e.cfg.MaxLines {
		r.Violations = append(r.Violations, "lines")
	}
	if r.InterfaceChanges > 0 && !e.cfg.AllowInterfaceChanges {
		r.Violations = append(r.Violations, "interface")
	}
	if len(r.CrossWaveFiles) > 0 {
		r.Violations = append(r.Violations, "cross_wave")
	}

	r.Exceeded = len(r.Violations) > 0
	return r
}

// crossWaveConflicts returns changed paths locked by a task in a different
// wave than the verification task. Only the current plan snapshot is
// consulted.
func crossWaveConflicts(changes []FileChange, p *plan.Plan, verifyTaskID string) []string {
	ownWave := p.WaveOf(verifyTaskID)

	changed := make(map[string]bool, len(changes))
	for _, fc := range changes {
		changed[fc.Path] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, w := range p.Waves {
		if w.Number == ownWave {
			continue
		}
		for _, t := range w.Tasks {
			for _, lock := range t.FileLocks {
				if changed[lock] && !seen[lock] {
					seen[lock] = true
					out = append(out, lock)
				}
			}
		}
	}
	return out
}
