package verify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wavectl/wavectl/internal/config"
	"github.com/wavectl/wavectl/internal/log"
)

const (
	// fixAgentBinary is the external bounded fix-and-test agent.
	fixAgentBinary = "micro-agent"

	probeTimeout = 5 * time.Second
	tier1Timeout = 5 * time.Minute
	tier2Timeout = 10 * time.Minute

	// cloudCredentialEnv gates tier 2 entirely.
	cloudCredentialEnv = "ANTHROPIC_API_KEY"
)

var (
	iterationsRe = regexp.MustCompile(`(?i)Iterations:\s*(\d+)`)
	costRe       = regexp.MustCompile(`(?i)Cost:\s*\$?([\d.]+)`)
	durationRe   = regexp.MustCompile(`(?i)Duration:\s*([\d.]+)s`)
)

// TierRunner drives the two-tier fix loop. Tier 1 talks to a local model
// server; tier 2 escalates to the cloud model and only activates when tier 1
// skipped or failed.
type TierRunner struct {
	Tier1 config.Tier1
	Tier2 config.Tier2

	// lookupEnv and runCommand are replaceable for tests.
	lookupEnv  func(string) (string, bool)
	runCommand func(ctx context.Context, env []string, args ...string) (stdout string, stderr string, exitCode int, err error)
	probe      func(ctx context.Context, endpoint string) bool
}

// NewTierRunner builds a runner from config.
func NewTierRunner(t1 config.Tier1, t2 config.Tier2) *TierRunner {
	return &TierRunner{
		Tier1:      t1,
		Tier2:      t2,
		lookupEnv:  os.LookupEnv,
		runCommand: runAgentCommand,
		probe:      probeLocalEndpoint,
	}
}

// RunTier1 runs the fix agent against the local model server. If the server
// does not answer a quick model-list probe the tier is skipped so the caller
// escalates immediately.
func (r *TierRunner) RunTier1(ctx context.Context, objective, testCmd string) TierOutcome {
	out := TierOutcome{
		Attempted: true,
		Model:     r.Tier1.Model,
		Endpoint:  r.Tier1.EndpointURL,
	}

	if !r.probe(ctx, r.Tier1.EndpointURL) {
		log.DefaultLogger().Warn("local model server unreachable, skipping to tier 2",
			"endpoint", r.Tier1.EndpointURL)
		out.Skipped = true
		return out
	}

	args := []string{
		fixAgentBinary,
		"--objective", objective,
		"--test", testCmd,
		"--max-iterations", strconv.Itoa(r.Tier1.MaxIterations),
		"--no-escalate",
		"--artisan", "ollama:" + r.Tier1.Model,
	}
	env := append(os.Environ(), "OLLAMA_BASE_URL="+r.Tier1.EndpointURL)

	runCtx, cancel := context.WithTimeout(ctx, tier1Timeout)
	defer cancel()

	log.DefaultLogger().Info("running tier 1 fix loop",
		"model", r.Tier1.Model, "max_iterations", r.Tier1.MaxIterations)
	start := time.Now()
	stdout, stderr, exitCode, err := r.runCommand(runCtx, env, args...)
	elapsed := time.Since(start)

	fillOutcome(&out, stdout, stderr, exitCode, err, elapsed)
	return out
}

// RunTier2 runs the fix agent against the cloud model. Without the
// credential env var the tier reports itself unavailable with a FAIL verdict.
func (r *TierRunner) RunTier2(ctx context.Context, objective, testCmd string) TierOutcome {
	out := TierOutcome{Model: r.Tier2.Model}

	if _, ok := r.lookupEnv(cloudCredentialEnv); !ok {
		out.Skipped = true
		out.Status = StatusFail
		out.Errors = append(out.Errors, cloudCredentialEnv+" not set, tier 2 unavailable")
		return out
	}
	out.Attempted = true

	args := []string{
		fixAgentBinary,
		"--objective", objective,
		"--test", testCmd,
		"--max-iterations", strconv.Itoa(r.Tier2.MaxIterations),
		"--artisan", r.Tier2.Model,
		"--max-budget", strconv.FormatFloat(r.Tier2.MaxBudgetUSD, 'f', -1, 64),
		"--max-duration", strconv.Itoa(r.Tier2.MaxDurationMin),
	}

	runCtx, cancel := context.WithTimeout(ctx, tier2Timeout)
	defer cancel()

	log.DefaultLogger().Info("running tier 2 fix loop",
		"model", r.Tier2.Model, "max_iterations", r.Tier2.MaxIterations,
		"max_budget_usd", r.Tier2.MaxBudgetUSD)
	start := time.Now()
	stdout, stderr, exitCode, err := r.runCommand(runCtx, os.Environ(), args...)
	elapsed := time.Since(start)

	fillOutcome(&out, stdout, stderr, exitCode, err, elapsed)
	return out
}

// fillOutcome parses agent output into the outcome. A timeout or start
// failure counts as a failed attempt for the tier, never a crash.
func fillOutcome(out *TierOutcome, stdout, stderr string, exitCode int, err error, elapsed time.Duration) {
	out.Iterations, out.CostUSD, out.Duration = parseAgentMetrics(stdout)
	if out.Duration == 0 {
		out.Duration = elapsed
	}

	switch {
	case err != nil:
		out.Status = StatusFail
		out.Errors = append(out.Errors, err.Error())
	case exitCode == 0:
		out.Status = StatusPass
	default:
		out.Status = StatusFail
		if s := bytes.TrimSpace([]byte(stderr)); len(s) > 0 {
			out.Errors = append(out.Errors, string(s))
		}
	}
}

// parseAgentMetrics extracts summary lines like "Iterations: 3 total",
// "Cost: $0.123 total", "Duration: 45.2s" from agent stdout.
func parseAgentMetrics(stdout string) (iterations int, costUSD float64, duration time.Duration) {
	if m := iterationsRe.FindStringSubmatch(stdout); m != nil {
		iterations, _ = strconv.Atoi(m[1])
	}
	if m := costRe.FindStringSubmatch(stdout); m != nil {
		costUSD, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := durationRe.FindStringSubmatch(stdout); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			duration = time.Duration(secs * float64(time.Second))
		}
	}
	return iterations, costUSD, duration
}

// probeLocalEndpoint asks the local server for its model list through the
// OpenAI-compatible surface every current server exposes.
func probeLocalEndpoint(ctx context.Context, endpoint string) bool {
	cfg := openai.DefaultConfig("local")
	cfg.BaseURL = endpoint + "/v1"
	client := openai.NewClientWithConfig(cfg)

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := client.ListModels(probeCtx)
	return err == nil
}

// runAgentCommand executes the fix agent, capturing output. The exit code is
// recovered from ExitError; anything else (binary missing, context timeout)
// surfaces as err.
func runAgentCommand(ctx context.Context, env []string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("fix agent timed out: %w", ctx.Err())
		}
		return stdout.String(), stderr.String(), -1, fmt.Errorf("fix agent failed to start: %w", err)
	}
	return stdout.String(), stderr.String(), 0, nil
}
