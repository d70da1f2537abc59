package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/vcs"
)

// manifestRoot is where verification artifacts live, relative to the project
// root.
const manifestRoot = ".wavectl/verify"

// ManifestDir returns the artifact directory for one verification, relative
// to the project root.
func ManifestDir(verifyID string) string {
	return filepath.Join(manifestRoot, verifyID)
}

// ManifestWriter persists the three per-run artifacts: manifest.json,
// diff.patch, and summary.md. Every write is best effort; a failure is
// logged and never overrides the decided result.
type ManifestWriter struct {
	Root string // project root
	Git  *vcs.Git
}

// Write emits all three artifacts for a completed result.
func (w *ManifestWriter) Write(ctx context.Context, res *Result) {
	dir := filepath.Join(w.Root, ManifestDir(res.VerifyID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.DefaultLogger().Warn("cannot create manifest directory", "dir", dir, "error", err)
		return
	}

	w.writeJSON(dir, res)
	w.writeDiffPatch(ctx, dir, res)
	w.writeSummary(dir, res)
}

func (w *ManifestWriter) writeJSON(dir string, res *Result) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.DefaultLogger().Warn("cannot marshal manifest", "verify_id", res.VerifyID, "error", err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), append(data, '\n'), 0o644); err != nil {
		log.DefaultLogger().Warn("cannot write manifest.json", "error", err)
	}
}

func (w *ManifestWriter) writeDiffPatch(ctx context.Context, dir string, res *Result) {
	patch := ""
	if len(res.FilesChanged) > 0 && w.Git != nil {
		paths := make([]string, 0, len(res.FilesChanged))
		for _, fc := range res.FilesChanged {
			paths = append(paths, fc.Path)
		}
		patch = w.Git.DiffPatch(ctx, paths...)
	}
	if err := os.WriteFile(filepath.Join(dir, "diff.patch"), []byte(patch), 0o644); err != nil {
		log.DefaultLogger().Warn("cannot write diff.patch", "error", err)
	}
}

func (w *ManifestWriter) writeSummary(dir string, res *Result) {
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(renderSummary(res)), 0o644); err != nil {
		log.DefaultLogger().Warn("cannot write summary.md", "error", err)
	}
}

// renderSummary builds the human-readable report the next task agent reads.
func renderSummary(res *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Verification Report: %s - %s\n\n", res.VerifyID, res.Status)

	tier := res.Tier1
	if res.TierUsed == 2 {
		tier = res.Tier2
	}
	fmt.Fprintf(&b, "**Task**: %s | **Tier**: %d | **Result**: %s\n", res.TaskID, res.TierUsed, res.Status)
	fmt.Fprintf(&b, "**Time**: %s | **Duration**: %.1fs | **Cost**: $%.3f\n\n",
		res.Timestamp.Format("2006-01-02 15:04:05"), tier.Duration.Seconds(), tier.CostUSD)

	if len(res.FilesChanged) > 0 {
		b.WriteString("### Changes Made\n")
		for _, fc := range res.FilesChanged {
			fmt.Fprintf(&b, "- `%s`: %d added, %d removed\n", fc.Path, fc.LinesAdded, fc.LinesRemoved)
		}
		b.WriteString("\n")
	}

	var breaking, nonBreaking []string
	for _, r := range res.InterfaceReports {
		breaking = append(breaking, r.Breaking...)
		nonBreaking = append(nonBreaking, r.NonBreaking...)
	}
	if len(breaking) > 0 || len(nonBreaking) > 0 {
		b.WriteString("### Interface Changes\n")
		for _, s := range breaking {
			fmt.Fprintf(&b, "- **Breaking**: `%s` removed or renamed\n", s)
		}
		for _, s := range nonBreaking {
			fmt.Fprintf(&b, "- Non-breaking: `%s` (new)\n", s)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Cascade\n")
	if res.CascadeTriggered {
		annotated := strings.Join(res.CascadeAnnotated, ", ")
		if annotated == "" {
			annotated = "none"
		}
		fmt.Fprintf(&b, "Cascade triggered; annotated tasks: %s.\n", annotated)
		fmt.Fprintf(&b, "See `%s/` for details.\n", ManifestDir(res.VerifyID))
	} else if res.Radius != nil {
		fmt.Fprintf(&b, "No cascade triggered (radius within budget: %d file(s), %d lines, %d interface change(s)).\n",
			res.Radius.FilesChanged, res.Radius.LinesChanged, res.Radius.InterfaceChanges)
	} else {
		b.WriteString("No cascade triggered.\n")
	}
	b.WriteString("\n")

	if len(res.Placeholders) > 0 {
		b.WriteString("### Placeholder Violations\n")
		for _, v := range res.Placeholders {
			fmt.Fprintf(&b, "- `%s:%d` matched `%s`\n", v.File, v.Line, v.Pattern)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Action Required\n")
	if res.Status == StatusPass {
		fmt.Fprintf(&b, "None; tests pass. Review the diff at `%s/diff.patch` if needed.\n",
			ManifestDir(res.VerifyID))
	} else {
		fmt.Fprintf(&b, "Wave halted: %s\nReview the full change history in `%s/`.\n",
			res.Reason, ManifestDir(res.VerifyID))
	}

	return b.String()
}
