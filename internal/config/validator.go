package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/verity-dev/verity/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "findings.delta_medium_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation
// errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Workspace.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "workspace.dir",
			Value:   c.Workspace.Dir,
			Message: "must not be empty",
		})
	}

	if c.Findings.DeltaMediumThreshold < 0 || c.Findings.DeltaMediumThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "findings.delta_medium_threshold",
			Value:   c.Findings.DeltaMediumThreshold,
			Message: "must be a fraction between 0 and 1",
		})
	}

	if c.Queue.ClaimLeaseMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.claim_lease_minutes",
			Value:   c.Queue.ClaimLeaseMinutes,
			Message: "must not be negative",
		})
	}

	if !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %v", logging.ValidLevels()),
		})
	}

	if c.Watch.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: "must not be negative",
		})
	}

	return errors
}
