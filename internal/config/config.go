// Package config loads the engine configuration from the data directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the data directory
const FileName = "config.yml"

// ErrInvalid marks configuration validation failures
var ErrInvalid = errors.New("invalid config")

// Config holds everything tunable about the engine. Scoring weights are
// deliberately not configurable; downstream thresholds are tuned against them.
type Config struct {
	// WorkingDir is where the Claude CLI executes.
	WorkingDir string `yaml:"working_dir"`

	// Calendar shape.
	WorkStartHour int `yaml:"work_start_hour"`
	WorkEndHour   int `yaml:"work_end_hour"`
	BlockMinutes  int `yaml:"block_minutes"`
	BlocksPerTask int `yaml:"blocks_per_task"`

	// ScheduleDaysAhead is the auto-schedule horizon.
	ScheduleDaysAhead int `yaml:"schedule_days_ahead"`

	// CandidateLimit caps how many prioritized tasks the decision loop sees.
	CandidateLimit int `yaml:"candidate_limit"`

	// Cron expressions (with seconds field) for daemon mode.
	DecisionCron string `yaml:"decision_cron"`
	ScheduleCron string `yaml:"schedule_cron"`

	// Optional escalation notification webhooks.
	DiscordWebhook string `yaml:"discord_webhook,omitempty"`
	SlackWebhook   string `yaml:"slack_webhook,omitempty"`
}

// Default returns the stock configuration
func Default() *Config {
	return &Config{
		WorkingDir:        ".",
		WorkStartHour:     9,
		WorkEndHour:       17,
		BlockMinutes:      30,
		BlocksPerTask:     1,
		ScheduleDaysAhead: 7,
		CandidateLimit:    5,
		// Every half hour during working hours on weekdays.
		DecisionCron: "0 0,30 9-16 * * MON-FRI",
		// Refresh the calendar before the working day starts.
		ScheduleCron: "0 30 8 * * MON-FRI",
	}
}

// Load reads the config file from dataDir, falling back to defaults when the
// file does not exist.
func Load(dataDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dataDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to dataDir
func (c *Config) Save(dataDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(filepath.Join(dataDir, FileName), data, 0600)
}

// Validate checks the config for errors
func (c *Config) Validate() error {
	if c.WorkStartHour < 0 || c.WorkStartHour > 23 {
		return fmt.Errorf("%w: work_start_hour must be between 0 and 23", ErrInvalid)
	}
	if c.WorkEndHour < 1 || c.WorkEndHour > 24 {
		return fmt.Errorf("%w: work_end_hour must be between 1 and 24", ErrInvalid)
	}
	if c.WorkStartHour >= c.WorkEndHour {
		return fmt.Errorf("%w: work_start_hour must be before work_end_hour", ErrInvalid)
	}
	if c.BlockMinutes <= 0 || c.BlockMinutes > 60*8 {
		return fmt.Errorf("%w: block_minutes must be between 1 and 480", ErrInvalid)
	}
	if c.BlocksPerTask < 1 {
		return fmt.Errorf("%w: blocks_per_task must be >= 1", ErrInvalid)
	}
	if c.ScheduleDaysAhead < 1 {
		return fmt.Errorf("%w: schedule_days_ahead must be >= 1", ErrInvalid)
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("%w: candidate_limit must be >= 1", ErrInvalid)
	}
	return nil
}

// DataDir resolves the engine data directory: CHLOE_DATA when set, otherwise
// ~/.chloe.
func DataDir() (string, error) {
	if dir := os.Getenv("CHLOE_DATA"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".chloe"), nil
}
