package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/tui"
)

// Cascade choices presented in human-gated mode.
const (
	cascadeChoiceAuto     = "auto-apply: annotate the task list and proceed"
	cascadeChoiceAnnotate = "annotate-then-halt: annotate the task list, then halt for review"
	cascadeChoiceHalt     = "halt: stop immediately without annotating"
)

// Cascade warns still-pending tasks when a verification run's change radius
// exceeded its budget.
type Cascade struct {
	List *task.ListFile
	Mode string // config.ModeAuto or config.ModeHumanGated

	// selectPrompt is replaceable for tests; defaults to the interactive
	// three-way prompt.
	selectPrompt func(message string, options []string) (string, error)
}

// NewCascade builds a cascade bound to the task list file.
func NewCascade(list *task.ListFile, mode string) *Cascade {
	return &Cascade{List: list, Mode: mode, selectPrompt: interactiveSelect}
}

// interactiveSelect refuses outright when no usable terminal is attached, so
// human-gated runs in CI fall through to the conservative halt.
func interactiveSelect(message string, options []string) (string, error) {
	if !tui.ShouldPrompt() {
		return "", fmt.Errorf("non-interactive environment")
	}
	return tui.PromptForSelect(message, options)
}

// Run annotates every still-pending task in other waves of the plan. In
// human-gated mode the user first chooses between auto-apply,
// annotate-then-halt, and halt; the halting choices return a wave-halt error
// after any requested annotation is applied.
func (c *Cascade) Run(p *plan.Plan, verifyID string, radius RadiusReport, reports []InterfaceReport, currentTaskID string) (annotated []string, err error) {
	affected := pendingElsewhere(p, currentTaskID, verifyID)

	if c.Mode == config.ModeHumanGated {
		choice, promptErr := c.promptChoice(verifyID, radius, reports, affected)
		if promptErr != nil {
			// No usable terminal: treat as halt, the conservative choice.
			log.DefaultLogger().Warn("cascade prompt unavailable, halting wave", "error", promptErr)
			return nil, errors.NewWaveHaltError(errors.ErrCodeHaltCascade,
				fmt.Sprintf("wave halted: human-gated cascade from %s could not prompt", verifyID))
		}
		switch choice {
		case cascadeChoiceHalt:
			return nil, errors.NewWaveHaltError(errors.ErrCodeHaltCascade,
				fmt.Sprintf("wave halted by user (human-gated cascade from %s)", verifyID))
		case cascadeChoiceAnnotate:
			annotated = c.annotate(affected, verifyID, reports)
			return annotated, errors.NewWaveHaltError(errors.ErrCodeHaltCascade,
				fmt.Sprintf("wave halted for manual review (cascade from %s), annotations added", verifyID))
		}
	}

	return c.annotate(affected, verifyID, reports), nil
}

// annotate appends the warning block after each affected pending task line.
// Already-annotated tasks are skipped, so repeated runs are no-ops.
func (c *Cascade) annotate(taskIDs []string, verifyID string, reports []InterfaceReport) []string {
	block := warningBlock(verifyID, reports, time.Now().UTC())
	marker := cascadeMarker(verifyID)

	var annotated []string
	for _, id := range taskIDs {
		applied, err := c.List.AnnotateAfter(id, marker, block)
		if err != nil {
			log.DefaultLogger().Warn("could not annotate task", "task", id, "error", err)
			continue
		}
		if applied {
			annotated = append(annotated, id)
		}
	}
	return annotated
}

func (c *Cascade) promptChoice(verifyID string, radius RadiusReport, reports []InterfaceReport, affected []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Cascade warning from %s: change radius exceeded (%s).",
		verifyID, strings.Join(radius.Violations, ", "))
	if files := changedFileList(reports); files != "" {
		fmt.Fprintf(&b, " Changed: %s.", files)
	}
	if len(affected) > 0 {
		fmt.Fprintf(&b, " Pending tasks that may be affected: %s.", strings.Join(affected, ", "))
	}

	return c.selectPrompt(b.String(), []string{
		cascadeChoiceAuto,
		cascadeChoiceAnnotate,
		cascadeChoiceHalt,
	})
}

// cascadeMarker identifies this verification's warning inside an annotation
// region, so re-applying the same cascade is a no-op while a different
// verification can still add its own warning.
func cascadeMarker(verifyID string) string {
	return fmt.Sprintf("Verification %s modified", verifyID)
}

// warningBlock renders the annotation appended below a pending task line.
func warningBlock(verifyID string, reports []InterfaceReport, now time.Time) string {
	timestamp := now.Format("2006-01-02T15:04:05Z")

	files := changedFileList(reports)
	if files == "" {
		files = "unknown"
	}

	var ifaceNames []string
	for _, r := range reports {
		ifaceNames = append(ifaceNames, r.Breaking...)
		ifaceNames = append(ifaceNames, r.NonBreaking...)
	}
	ifaceSuffix := ""
	if len(ifaceNames) > 0 {
		ifaceSuffix = fmt.Sprintf(" (interface changes: %s)", strings.Join(ifaceNames, ", "))
	}

	return fmt.Sprintf(
		"  > **[CASCADE WARNING - %s]**\n"+
			"  > Verification %s modified: %s%s\n"+
			"  > Verify your implementation against the updated interface before marking complete.\n"+
			"  > See: `%s/summary.md`",
		timestamp, verifyID, files, ifaceSuffix, ManifestDir(verifyID))
}

func changedFileList(reports []InterfaceReport) string {
	var quoted []string
	for _, r := range reports {
		quoted = append(quoted, "`"+r.File+"`")
	}
	return strings.Join(quoted, ", ")
}

// pendingElsewhere lists every plan task outside the verification's own
// identity that could still be affected.
func pendingElsewhere(p *plan.Plan, currentTaskID, verifyID string) []string {
	if p == nil {
		return nil
	}
	var out []string
	for _, w := range p.Waves {
		for _, t := range w.Tasks {
			if t.ID == currentTaskID || t.ID == verifyID {
				continue
			}
			out = append(out, t.ID)
		}
	}
	return out
}
