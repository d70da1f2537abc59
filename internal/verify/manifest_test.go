package verify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavectl/wavectl/internal/vcs"
)

func sampleResult() *Result {
	return &Result{
		TaskID:    "T001",
		VerifyID:  "VERIFY-T001",
		RunID:     "run-1",
		Status:    StatusPass,
		TierUsed:  1,
		Tier1:     TierOutcome{Attempted: true, Model: "qwen3-coder:30b", Iterations: 3, Duration: 41 * time.Second, Status: StatusPass},
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		FilesChanged: []FileChange{
			{Path: "src/auth.py", LinesAdded: 12, LinesRemoved: 4},
		},
	}
}

func TestManifestWriteEmitsAllArtifacts(t *testing.T) {
	root := t.TempDir()
	w := &ManifestWriter{Root: root, Git: vcs.New(root)}

	w.Write(context.Background(), sampleResult())

	dir := filepath.Join(root, ".wavectl", "verify", "VERIFY-T001")
	for _, name := range []string{"manifest.json", "diff.patch", "summary.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "VERIFY-T001", decoded.VerifyID)
	assert.Equal(t, StatusPass, decoded.Status)
	assert.Equal(t, 12, decoded.FilesChanged[0].LinesAdded)
}

func TestRenderSummaryPass(t *testing.T) {
	summary := renderSummary(sampleResult())

	assert.Contains(t, summary, "## Verification Report: VERIFY-T001 - PASS")
	assert.Contains(t, summary, "**Task**: T001 | **Tier**: 1 | **Result**: PASS")
	assert.Contains(t, summary, "`src/auth.py`: 12 added, 4 removed")
	assert.Contains(t, summary, "None; tests pass.")
}

func TestRenderSummaryFailureCarriesReason(t *testing.T) {
	res := sampleResult()
	res.Status = StatusFail
	res.HaltWave = true
	res.Reason = "both tiers exhausted for T001, manual intervention required"
	res.TierUsed = 2
	res.Tier2 = TierOutcome{Attempted: true, CostUSD: 1.5, Duration: 90 * time.Second, Status: StatusFail}

	summary := renderSummary(res)

	assert.Contains(t, summary, "FAIL")
	assert.Contains(t, summary, "**Tier**: 2")
	assert.Contains(t, summary, "$1.500")
	assert.Contains(t, summary, "Wave halted: both tiers exhausted")
}

func TestRenderSummaryCascadeSection(t *testing.T) {
	res := sampleResult()
	res.CascadeTriggered = true
	res.CascadeAnnotated = []string{"T002", "T003"}
	res.InterfaceReports = []InterfaceReport{
		{File: "src/auth.py", Breaking: []string{"refund"}, NonBreaking: []string{"void"}},
	}

	summary := renderSummary(res)

	assert.Contains(t, summary, "Cascade triggered; annotated tasks: T002, T003.")
	assert.Contains(t, summary, "**Breaking**: `refund` removed or renamed")
	assert.Contains(t, summary, "Non-breaking: `void` (new)")
}
