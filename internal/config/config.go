// Package config loads and validates the verity configuration via viper.
// Configuration comes from (in increasing precedence) built-in defaults, a
// .verity.yaml file discovered in the workspace or home config dir, and
// VERITY_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete verity configuration
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Findings  FindingsConfig  `mapstructure:"findings"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// WorkspaceConfig locates the coordination state on disk
type WorkspaceConfig struct {
	// Dir is the workspace root. State lives under {dir}/.verity.
	Dir string `mapstructure:"dir"`
}

// FindingsConfig controls severity computation at record time
type FindingsConfig struct {
	// DeltaMediumThreshold is the fractional delta between independently
	// computed values above which a finding is at least medium severity.
	DeltaMediumThreshold float64 `mapstructure:"delta_medium_threshold"`
}

// QueueConfig controls task queue behavior
type QueueConfig struct {
	// ClaimLeaseMinutes is how long an in_progress claim is honored
	// before the eligibility scan treats the task as pending again.
	// Zero disables leasing (abandoned claims never expire).
	ClaimLeaseMinutes int `mapstructure:"claim_lease_minutes"`
}

// LoggingConfig controls the debug log
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	// DebounceMs coalesces bursts of filesystem events before re-rendering.
	DebounceMs int `mapstructure:"debounce_ms"`
}

// ClaimLease returns the claim lease as a duration. Zero means disabled.
func (c *QueueConfig) ClaimLease() time.Duration {
	return time.Duration(c.ClaimLeaseMinutes) * time.Minute
}

// Debounce returns the watch debounce as a duration.
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Dir: "."},
		Findings:  FindingsConfig{DeltaMediumThreshold: 0.05},
		Queue:     QueueConfig{ClaimLeaseMinutes: 0},
		Logging:   LoggingConfig{Level: "INFO"},
		Watch:     WatchConfig{DebounceMs: 250},
	}
}

// SetDefaults registers the built-in defaults with viper. Call before
// viper.ReadInConfig so that defaults apply even without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("workspace.dir", defaults.Workspace.Dir)
	viper.SetDefault("findings.delta_medium_threshold", defaults.Findings.DeltaMediumThreshold)
	viper.SetDefault("queue.claim_lease_minutes", defaults.Queue.ClaimLeaseMinutes)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
}

// Load unmarshals the viper state into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the directory searched for the user-level config file.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "verity")
}
