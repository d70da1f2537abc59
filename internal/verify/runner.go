package verify

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/errors"
	"github.com/wavectl/wavectl/internal/log"
	"github.com/wavectl/wavectl/internal/plan"
	"github.com/wavectl/wavectl/internal/task"
	"github.com/wavectl/wavectl/internal/vcs"
)

// Runner executes the full validation pipeline for one verification task.
// The pipeline is a state machine, terminal on the first applicable exit,
// except that the manifest is always emitted.
type Runner struct {
	Config *config.Config
	Root   string
	Git    *vcs.Git
	List   *task.ListFile
	Plan   *plan.Plan

	scanner  *PlaceholderScanner
	tiers    *TierRunner
	cascade  *Cascade
	manifest *ManifestWriter

	// detect is replaceable for tests.
	detect func(root string) string
}

// NewRunner wires a pipeline from configuration.
func NewRunner(cfg *config.Config, root string, list *task.ListFile, p *plan.Plan) *Runner {
	git := vcs.New(root)
	return &Runner{
		Config:   cfg,
		Root:     root,
		Git:      git,
		List:     list,
		Plan:     p,
		scanner:  NewPlaceholderScanner(cfg.Verify.Placeholder),
		tiers:    NewTierRunner(cfg.Verify.Tier1, cfg.Verify.Tier2),
		cascade:  NewCascade(list, cfg.Verify.Mode),
		manifest: &ManifestWriter{Root: root, Git: git},
	}
}

// Run executes the pipeline for a verification task and returns its
// immutable result. A result with HaltWave set means the caller must stop
// the current wave; the returned error carries the halt condition when one
// exists, never an ordinary FAIL.
func (r *Runner) Run(ctx context.Context, t plan.PlannedTask) (*Result, error) {
	verifyID := t.ID
	if !strings.HasPrefix(verifyID, task.VerifyPrefix) {
		verifyID = task.VerifyPrefix + verifyID
	}

	res := &Result{
		TaskID:    strings.TrimPrefix(verifyID, task.VerifyPrefix),
		VerifyID:  verifyID,
		RunID:     uuid.NewString(),
		Status:    StatusPass,
		Timestamp: time.Now().UTC(),
	}

	logger := log.DefaultLogger().With("verify_id", verifyID)

	// Claimed files, resolved against the project root for scanning.
	var files []string
	for _, f := range t.FileLocks {
		if f != "" && strings.Contains(f, ".") {
			files = append(files, f)
		}
	}

	haltErr := r.runPipeline(ctx, t, res, files, logger)

	// Manifest emission always happens, even after FAIL or ERROR.
	r.manifest.Write(ctx, res)

	return res, haltErr
}

func (r *Runner) runPipeline(ctx context.Context, t plan.PlannedTask, res *Result, files []string, logger *log.Logger) error {
	// Step 1: placeholder scan.
	absFiles := make([]string, len(files))
	for i, f := range files {
		absFiles[i] = filepath.Join(r.Root, f)
	}
	res.Placeholders = r.scanner.Scan(absFiles)
	if len(res.Placeholders) > 0 && r.Config.Verify.Placeholder.FailOnDetect {
		logger.Warn("placeholder violations detected", "count", len(res.Placeholders))
		res.Status = StatusFail
		res.HaltWave = true
		res.Reason = fmt.Sprintf("%d placeholder violation(s) found in production code, fix before wave checkpoint",
			len(res.Placeholders))
		return errors.NewWaveHaltError(errors.ErrCodeHaltPlaceholder, res.Reason)
	}

	// Step 2: test-command detection.
	detect := r.detect
	if detect == nil {
		detect = DetectTestCommand
	}
	testCmd := detect(r.Root)
	if testCmd == "" {
		logger.Info("no test framework found, nothing to verify")
		return nil
	}

	// Step 3: tiered fix loop.
	objective := t.Instruction
	if objective == "" {
		objective = fmt.Sprintf("Verify task %s output passes tests", res.TaskID)
	}

	res.Tier1 = r.tiers.RunTier1(ctx, objective, testCmd)
	if res.Tier1.Passed() {
		res.TierUsed = 1
		logger.Info("tier 1 passed", "iterations", res.Tier1.Iterations)
	} else {
		logger.Info("escalating to tier 2", "tier1_skipped", res.Tier1.Skipped)
		res.Tier2 = r.tiers.RunTier2(ctx, objective, testCmd)
		res.TierUsed = 2
		if res.Tier2.Passed() {
			logger.Info("tier 2 passed", "iterations", res.Tier2.Iterations)
		} else {
			res.Status = StatusFail
			res.HaltWave = true
			res.Reason = fmt.Sprintf("both tiers exhausted for %s, manual intervention required", res.TaskID)
			logger.Warn("both tiers exhausted, wave will halt")
			return errors.NewWaveHaltError(errors.ErrCodeHaltTiers, res.Reason)
		}
	}

	// Steps 4-6 never fail the pipeline on their own; an internal error
	// downgrades the result to ERROR but the manifest still gets written.
	if err := r.runRadiusPhase(ctx, res, files); err != nil {
		if errors.IsHalt(err) {
			res.Status = StatusFail
			res.HaltWave = true
			res.Reason = err.Error()
			return err
		}
		res.Status = StatusError
		res.HaltWave = true
		res.Reason = fmt.Sprintf("verification pipeline error: %v", err)
		logger.WithError(asCoded(err)).Error("pipeline internal error")
		return errors.NewWaveHaltError(errors.ErrCodeHaltInternal, res.Reason)
	}

	return nil
}

// runRadiusPhase covers interface diff, change-radius evaluation, and
// cascade. A returned halt error is the human-gated cascade stopping the
// wave; any other error is internal.
func (r *Runner) runRadiusPhase(ctx context.Context, res *Result, files []string) error {
	if len(files) == 0 {
		return nil
	}

	// Step 4: interface diff per claimed file that still exists.
	for _, f := range files {
		post, err := os.ReadFile(filepath.Join(r.Root, f))
		if err != nil {
			continue
		}
		pre, _ := r.Git.Show(ctx, "HEAD", f)
		res.InterfaceReports = append(res.InterfaceReports, CompareInterfaces(f, pre, string(post)))
	}

	// Step 5: change radius.
	res.FilesChanged = ComputeFileChanges(ctx, r.Git, r.Root, files)
	evaluator := NewRadiusEvaluator(r.Config.Verify.Radius)
	radius := evaluator.Evaluate(res.FilesChanged, res.InterfaceReports, r.Plan, res.VerifyID)
	res.Radius = &radius

	if !radius.Exceeded {
		return nil
	}

	// Step 6: cascade.
	res.CascadeTriggered = true
	annotated, err := r.cascade.Run(r.Plan, res.VerifyID, radius, res.InterfaceReports, res.TaskID)
	res.CascadeAnnotated = annotated
	return err
}

func asCoded(err error) *errors.Error {
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		return coded
	}
	return errors.Wrap(errors.ErrCodeVerifyInternal, "verification pipeline error", err)
}
