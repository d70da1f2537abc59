// Package runner executes a wave plan: it dispatches each wave's tasks,
// gates on the wave checkpoint, records progress, and drives the
// verification pipeline for injected verifier tasks.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/vcs"
	"github.com/wavectl/wavectl/internal/verify"
)

// progressFile records completed waves, relative to the project root.
const progressFile = ".wavectl/progress.md"

// Verifier runs the validation pipeline for one verifier task. Satisfied by
// *verify.Runner.
type Verifier interface {
	Run(ctx context.Context, t plan.PlannedTask) (*verify.Result, error)
}

// Executor walks the plan wave by wave. Task execution itself is delegated
// to external agents working off the task list; the executor announces the
// dispatch, then gates each wave on its checkpoint.
type Executor struct {
	Root string
	Plan *plan.Plan
	List *task.ListFile
	Git  *vcs.Git
	Out  io.Writer

	// Verifier is nil when verification is disabled.
	Verifier Verifier

	now func() time.Time
}

// New builds an executor rooted at the project directory.
func New(root string, p *plan.Plan, list *task.ListFile, verifier Verifier) *Executor {
	return &Executor{
		Root:     root,
		Plan:     p,
		List:     list,
		Git:      vcs.New(root),
		Out:      os.Stdout,
		Verifier: verifier,
		now:      time.Now,
	}
}

// Execute runs every wave in order. A verifier halt stops at the current
// wave and surfaces the halt error; an incomplete checkpoint is an ordinary
// failure.
func (e *Executor) Execute(ctx context.Context) error {
	fmt.Fprintf(e.Out, "Phase %s: %d wave(s)\n", e.Plan.PhaseID, len(e.Plan.Waves))

	for _, w := range e.Plan.Waves {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.executeWave(ctx, w); err != nil {
			return err
		}
	}

	fmt.Fprintln(e.Out, "All waves complete.")
	return nil
}

func (e *Executor) executeWave(ctx context.Context, w plan.Wave) error {
	fmt.Fprintf(e.Out, "\nWave %d (%s): %s\n", w.Number, w.Strategy, w.Rationale)

	for _, t := range w.Tasks {
		switch t.Role {
		case task.RoleVerifier:
			if err := e.runVerifier(ctx, w, t); err != nil {
				return err
			}
		default:
			e.announce(w.Strategy, t)
		}
	}

	if !w.Checkpoint.Enabled {
		fmt.Fprintf(e.Out, "  checkpoint disabled, continuing\n")
		return nil
	}
	return e.checkpoint(ctx, w)
}

// announce prints the dispatch line for a developer task. Actual execution
// happens out of process; the agent reports back by checking the task off in
// the task list.
func (e *Executor) announce(strategy plan.Strategy, t plan.PlannedTask) {
	mode := "sequential"
	if strategy == plan.StrategyParallelSwarm {
		mode = "parallel"
	}
	fmt.Fprintf(e.Out, "  [%s] %s (%s): %s\n", mode, t.ID, t.Role, truncate(t.Instruction, 60))
}

func (e *Executor) runVerifier(ctx context.Context, w plan.Wave, t plan.PlannedTask) error {
	if e.Verifier == nil {
		fmt.Fprintf(e.Out, "  [verify] %s skipped (verification disabled)\n", t.ID)
		return nil
	}

	fmt.Fprintf(e.Out, "  [verify] %s: validating %s\n", t.ID, strings.Join(t.FileLocks, ", "))
	res, err := e.Verifier.Run(ctx, t)
	if res != nil {
		fmt.Fprintf(e.Out, "  [verify] %s: %s (tier %d)\n", t.ID, res.Status, res.TierUsed)
	}
	if err != nil {
		if errors.IsHalt(err) {
			fmt.Fprintf(e.Out, "  wave %d halted by %s\n", w.Number, t.ID)
		}
		return err
	}
	return nil
}

// checkpoint verifies every developer task of the wave is checked off, then
// records the wave in the progress log and makes a best-effort git commit.
func (e *Executor) checkpoint(ctx context.Context, w plan.Wave) error {
	fmt.Fprintf(e.Out, "  checkpoint: %s\n", w.Checkpoint.Criteria)

	incomplete, err := e.incompleteTasks(w)
	if err != nil {
		return err
	}
	if len(incomplete) > 0 {
		return errors.New(errors.ErrCodeWaveIncomplete,
			fmt.Sprintf("wave %d checkpoint failed: task(s) not marked complete: %s",
				w.Number, strings.Join(incomplete, ", "))).
			WithSuggestion("Mark the listed tasks [x] in the task list, then re-run")
	}
	fmt.Fprintf(e.Out, "  all wave %d tasks verified complete\n", w.Number)

	if err := e.appendProgress(w); err != nil {
		log.DefaultLogger().Warn("could not update progress log", "error", err)
	}

	if e.Git.CheckpointCommit(ctx, fmt.Sprintf("[CHECKPOINT] Wave %d complete", w.Number)) {
		fmt.Fprintf(e.Out, "  git checkpoint committed\n")
	}
	return nil
}

// incompleteTasks re-parses the task list and returns developer tasks of the
// wave still unchecked. Tasks missing from the list count as incomplete.
func (e *Executor) incompleteTasks(w plan.Wave) ([]string, error) {
	content, err := e.List.Read()
	if err != nil {
		return nil, err
	}
	parsed := task.Parse(content)

	var incomplete []string
	for _, t := range w.Tasks {
		if t.Role == task.RoleVerifier {
			continue
		}
		got := parsed.ByID(t.ID)
		if got == nil || !got.Completed {
			incomplete = append(incomplete, t.ID)
		}
	}
	return incomplete, nil
}

// appendProgress appends a wave-completion entry to the progress log,
// creating it on first use.
func (e *Executor) appendProgress(w plan.Wave) error {
	path := filepath.Join(e.Root, progressFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString("# Progress\n")
	}
	fmt.Fprintf(&b, "\n## Wave %d Complete - %s\n\n", w.Number, e.now().UTC().Format("2006-01-02 15:04:05"))
	for _, t := range w.Tasks {
		fmt.Fprintf(&b, "- %s: %s\n", t.ID, t.Instruction)
	}

	_, err = f.WriteString(b.String())
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
