package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavectl/wavectl/internal/config"
)

func testTierRunner() *TierRunner {
	r := NewTierRunner(
		config.Tier1{Model: "qwen3-coder:30b", EndpointURL: "http://127.0.0.1:11434", MaxIterations: 5},
		config.Tier2{Model: "claude-sonnet-4-20250514", MaxIterations: 10, MaxBudgetUSD: 2.0, MaxDurationMin: 10},
	)
	r.probe = func(context.Context, string) bool { return true }
	r.lookupEnv = func(string) (string, bool) { return "key", true }
	return r
}

func TestRunTier1Pass(t *testing.T) {
	r := testTierRunner()
	var gotArgs []string
	var gotEnv []string
	r.runCommand = func(_ context.Context, env []string, args ...string) (string, string, int, error) {
		gotArgs = args
		gotEnv = env
		return "All tests pass.\nIterations: 3 total\nCost: $0.00\nDuration: 41.5s\n", "", 0, nil
	}

	out := r.RunTier1(context.Background(), "fix failing tests", "python -m pytest")

	assert.True(t, out.Passed())
	assert.Equal(t, 3, out.Iterations)
	assert.Equal(t, time.Duration(41.5*float64(time.Second)), out.Duration)
	assert.Equal(t, "qwen3-coder:30b", out.Model)
	assert.Contains(t, gotArgs, "--no-escalate")
	assert.Contains(t, gotArgs, "ollama:qwen3-coder:30b")
	assert.Contains(t, gotEnv, "OLLAMA_BASE_URL=http://127.0.0.1:11434")
}

func TestRunTier1SkipsWhenEndpointUnreachable(t *testing.T) {
	r := testTierRunner()
	r.probe = func(context.Context, string) bool { return false }
	r.runCommand = func(context.Context, []string, ...string) (string, string, int, error) {
		t.Fatal("fix agent must not run when the endpoint is unreachable")
		return "", "", 0, nil
	}

	out := r.RunTier1(context.Background(), "objective", "go test ./...")

	assert.True(t, out.Attempted)
	assert.True(t, out.Skipped)
	assert.False(t, out.Passed())
}

func TestRunTier1FailCarriesStderr(t *testing.T) {
	r := testTierRunner()
	r.runCommand = func(context.Context, []string, ...string) (string, string, int, error) {
		return "Iterations: 5 total\n", "2 tests still failing\n", 1, nil
	}

	out := r.RunTier1(context.Background(), "objective", "go test ./...")

	assert.False(t, out.Passed())
	assert.Equal(t, StatusFail, out.Status)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "2 tests still failing", out.Errors[0])
	assert.Equal(t, 5, out.Iterations)
}

func TestRunTier2SkipsWithoutCredential(t *testing.T) {
	r := testTierRunner()
	r.lookupEnv = func(string) (string, bool) { return "", false }
	r.runCommand = func(context.Context, []string, ...string) (string, string, int, error) {
		t.Fatal("fix agent must not run without the cloud credential")
		return "", "", 0, nil
	}

	out := r.RunTier2(context.Background(), "objective", "go test ./...")

	assert.False(t, out.Attempted)
	assert.True(t, out.Skipped)
	assert.Equal(t, StatusFail, out.Status)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "ANTHROPIC_API_KEY")
}

func TestRunTier2PassWithBudgetFlags(t *testing.T) {
	r := testTierRunner()
	var gotArgs []string
	r.runCommand = func(_ context.Context, _ []string, args ...string) (string, string, int, error) {
		gotArgs = args
		return "Iterations: 7 total\nCost: $1.23 total\n", "", 0, nil
	}

	out := r.RunTier2(context.Background(), "objective", "python -m pytest")

	assert.True(t, out.Passed())
	assert.InDelta(t, 1.23, out.CostUSD, 1e-9)
	assert.Contains(t, gotArgs, "--max-budget")
	assert.Contains(t, gotArgs, "--max-duration")
	assert.NotContains(t, gotArgs, "--no-escalate")
}

func TestFillOutcomeStartFailure(t *testing.T) {
	r := testTierRunner()
	r.runCommand = func(context.Context, []string, ...string) (string, string, int, error) {
		return "", "", -1, errors.New("fix agent failed to start: executable not found")
	}

	out := r.RunTier1(context.Background(), "objective", "go test ./...")

	assert.Equal(t, StatusFail, out.Status)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "failed to start")
	// Wall-clock elapsed fills in when the agent printed no duration.
	assert.Greater(t, out.Duration, time.Duration(0))
}

func TestParseAgentMetrics(t *testing.T) {
	cases := []struct {
		name       string
		stdout     string
		iterations int
		cost       float64
		duration   time.Duration
	}{
		{
			name:       "full summary",
			stdout:     "Iterations: 4 total\nCost: $0.510 total\nDuration: 12.5s\n",
			iterations: 4,
			cost:       0.51,
			duration:   12500 * time.Millisecond,
		},
		{
			name:       "case insensitive without dollar sign",
			stdout:     "iterations: 2\ncost: 0.05\nduration: 3s\n",
			iterations: 2,
			cost:       0.05,
			duration:   3 * time.Second,
		},
		{name: "no metrics", stdout: "tests pass\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			iterations, cost, duration := parseAgentMetrics(tc.stdout)
			assert.Equal(t, tc.iterations, iterations)
			assert.InDelta(t, tc.cost, cost, 1e-9)
			assert.Equal(t, tc.duration, duration)
		})
	}
}
