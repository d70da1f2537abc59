// Package config loads wavectl.yml, the per-project configuration for the
// wave planner and the verification pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up at the project root.
const DefaultFileName = "wavectl.yml"

// Cascade handling modes.
const (
	ModeAuto       = "auto"
	ModeHumanGated = "human-gated"
)

// Tier1 configures the local fix agent (free, small iteration cap).
type Tier1 struct {
	Model         string `yaml:"model"`
	EndpointURL   string `yaml:"endpoint_url"`
	MaxIterations int    `yaml:"max_iterations"`
}

// Tier2 configures the cloud fix agent (paid, larger caps).
type Tier2 struct {
	Model          string  `yaml:"model"`
	MaxIterations  int     `yaml:"max_iterations"`
	MaxBudgetUSD   float64 `yaml:"max_budget_usd"`
	MaxDurationMin int     `yaml:"max_duration_min"`
}

// ChangeRadius configures the three-axis blast-radius budget.
type ChangeRadius struct {
	MaxFiles              int  `yaml:"max_files"`
	MaxLines              int  `yaml:"max_lines"`
	AllowInterfaceChanges bool `yaml:"allow_interface_changes"`
}

// Placeholder configures the forbidden-marker scanner.
type Placeholder struct {
	FailOnDetect bool     `yaml:"fail_on_detect"`
	Patterns     []string `yaml:"patterns"`
	ExcludePaths []string `yaml:"exclude_paths"`
}

// Injection configures how verification tasks are inserted into the plan.
type Injection struct {
	Enabled bool `yaml:"enabled"`
	// Granularity is one of "per-task", "per-wave", "per-n".
	Granularity string `yaml:"granularity"`
	// BatchSize is n for the "per-n" granularity.
	BatchSize int `yaml:"batch_size"`
}

// Config is the full wavectl.yml schema.
type Config struct {
	Project string `yaml:"project"`

	Verify struct {
		Enabled bool `yaml:"enabled"`
		// Mode is "auto" or "human-gated" and controls cascade handling.
		Mode        string       `yaml:"mode"`
		Tier1       Tier1        `yaml:"tier1"`
		Tier2       Tier2        `yaml:"tier2"`
		Radius      ChangeRadius `yaml:"change_radius"`
		Placeholder Placeholder  `yaml:"placeholder"`
		Injection   Injection    `yaml:"injection"`
	} `yaml:"verify"`
}

// Default returns the configuration used when no wavectl.yml exists.
func Default() *Config {
	cfg := &Config{Project: "default"}
	cfg.Verify.Enabled = true
	cfg.Verify.Mode = "auto"
	cfg.Verify.Tier1 = Tier1{
		Model:         "qwen3-coder:30b",
		EndpointURL:   "http://127.0.0.1:11434",
		MaxIterations: 5,
	}
	cfg.Verify.Tier2 = Tier2{
		Model:          "claude-sonnet-4-20250514",
		MaxIterations:  10,
		MaxBudgetUSD:   2.0,
		MaxDurationMin: 10,
	}
	cfg.Verify.Radius = ChangeRadius{
		MaxFiles: 3,
		MaxLines: 150,
	}
	cfg.Verify.Placeholder = Placeholder{
		FailOnDetect: true,
	}
	cfg.Verify.Injection = Injection{
		Enabled:     true,
		Granularity: "per-wave",
		BatchSize:   2,
	}
	return cfg
}

// Load reads wavectl.yml from the given project root. A missing file yields
// the defaults; a malformed file is an error.
func Load(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, DefaultFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to wavectl.yml under the given project root.
func Save(cfg *Config, projectRoot string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(projectRoot, DefaultFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks enum fields and numeric caps.
func (c *Config) Validate() error {
	switch c.Verify.Mode {
	case ModeAuto, ModeHumanGated:
	default:
		return fmt.Errorf("invalid verify.mode %q (want auto or human-gated)", c.Verify.Mode)
	}

	switch c.Verify.Injection.Granularity {
	case "per-task", "per-wave", "per-n":
	default:
		return fmt.Errorf("invalid verify.injection.granularity %q (want per-task, per-wave or per-n)",
			c.Verify.Injection.Granularity)
	}

	if c.Verify.Injection.Granularity == "per-n" && c.Verify.Injection.BatchSize < 1 {
		return fmt.Errorf("verify.injection.batch_size must be >= 1 for per-n granularity")
	}

	if c.Verify.Tier1.MaxIterations < 0 || c.Verify.Tier2.MaxIterations < 0 {
		return fmt.Errorf("tier iteration caps must not be negative")
	}

	return nil
}
