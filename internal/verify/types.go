// Package verify implements the validation pipeline that runs behind every
// injected verification task: placeholder scan, tiered fix loop, interface
// diff, change-radius budget, cascade warnings, and the result manifest.
package verify

import "time"

// Status is the terminal outcome of a pipeline run or a single tier.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
	// StatusNone marks a tier that never produced a verdict.
	StatusNone Status = ""
)

// TierOutcome records one tier of the fix loop.
type TierOutcome struct {
	Attempted  bool          `json:"attempted"`
	Skipped    bool          `json:"skipped"`
	Model      string        `json:"model"`
	Endpoint   string        `json:"endpoint,omitempty"`
	Iterations int           `json:"iterations"`
	CostUSD    float64       `json:"cost_usd"`
	Duration   time.Duration `json:"duration_ns"`
	Status     Status        `json:"final_status"`
	Errors     []string      `json:"error_messages,omitempty"`
}

// Passed reports whether this tier produced a passing verdict.
func (t TierOutcome) Passed() bool {
	return t.Attempted && !t.Skipped && t.Status == StatusPass
}

// PlaceholderViolation is one forbidden pattern hit in production code.
type PlaceholderViolation struct {
	File    string   `json:"file_path"`
	Line    int      `json:"line_number"` // 1-based
	Pattern string   `json:"matched_pattern"`
	Text    string   `json:"matched_text"`
	Context []string `json:"context_lines"`
}

// SignatureChange records a public function whose call signature changed.
type SignatureChange struct {
	Name string `json:"name"`
	Old  string `json:"old_sig"`
	New  string `json:"new_sig"`
}

// InterfaceReport compares the public API surface of one file before and
// after the fix loop ran.
type InterfaceReport struct {
	File        string            `json:"file_path"`
	Language    string            `json:"language"`
	Breaking    []string          `json:"breaking_changes"`
	NonBreaking []string          `json:"non_breaking_changes"`
	Modified    []SignatureChange `json:"modified_signatures"`
	IsBreaking  bool              `json:"is_breaking"`
	// Method is "structural", "regex", or "none".
	Method string `json:"detection_method"`
}

// FileChange is the per-file line delta relative to the last commit.
type FileChange struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
	// Digest is the BLAKE3 hex digest of the file's current content, empty
	// when the file no longer exists.
	Digest string `json:"digest,omitempty"`
}

// RadiusReport is the measured blast radius of a verification run.
type RadiusReport struct {
	FilesChanged          int      `json:"files_changed_count"`
	LinesChanged          int      `json:"lines_changed_total"`
	InterfaceChanges      int      `json:"interface_changes_count"`
	BudgetFiles           int      `json:"budget_files"`
	BudgetLines           int      `json:"budget_lines"`
	AllowInterfaceChanges bool     `json:"allow_interface_changes"`
	CrossWaveFiles        []string `json:"cross_wave_files,omitempty"`
	Exceeded              bool     `json:"budget_exceeded"`
	// Violations lists the exceeded axes: files, lines, interface, cross_wave.
	Violations []string `json:"violations,omitempty"`
}

// Result is the immutable outcome of one verification run.
type Result struct {
	TaskID   string `json:"task_id"`
	VerifyID string `json:"verify_id"`
	RunID    string `json:"run_id"`

	Status   Status `json:"result"`
	HaltWave bool   `json:"should_halt_wave"`
	Reason   string `json:"fix_reason,omitempty"`

	TierUsed int         `json:"tier_used"`
	Tier1    TierOutcome `json:"tier1"`
	Tier2    TierOutcome `json:"tier2"`

	Placeholders     []PlaceholderViolation `json:"placeholder_violations,omitempty"`
	FilesChanged     []FileChange           `json:"files_changed,omitempty"`
	InterfaceReports []InterfaceReport      `json:"interface_changes,omitempty"`
	Radius           *RadiusReport          `json:"radius,omitempty"`

	CascadeTriggered bool     `json:"cascade_triggered"`
	CascadeAnnotated []string `json:"cascade_tasks_annotated,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
