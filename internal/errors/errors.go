// Package errors provides centralized error definitions for the verity
// codebase. It defines the four failure classes of the coordination layer —
// configuration errors, ownership violations, invalid state transitions, and
// dependency violations — plus sentinel errors and the standard library
// re-exports so callers only need one errors import.
//
// All failures are local and synchronous: every error is scoped to one
// operation and leaves all other workspace state untouched. Nothing in this
// package is retried automatically; the next invocation simply re-evaluates
// current state.
package errors

import (
	"errors"
	"fmt"

	"github.com/verity-dev/verity/internal/role"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Queue-related sentinel errors
var (
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrQueueNotFound indicates that a role's queue file does not exist.
	ErrQueueNotFound = New("queue not found")
	// ErrDanglingReference indicates a blocking or requirement reference
	// that resolves to no known entity.
	ErrDanglingReference = New("dangling reference")
)

// Finding-related sentinel errors
var (
	// ErrFindingNotFound indicates that a finding could not be found.
	ErrFindingNotFound = New("finding not found")
	// ErrInvalidDisposition indicates a disposition transition outside
	// the allowed edges.
	ErrInvalidDisposition = New("invalid disposition transition")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrMalformedRecord indicates a record that could not be decoded.
	ErrMalformedRecord = New("malformed record")
)

// -----------------------------------------------------------------------------
// Configuration Errors
// -----------------------------------------------------------------------------

// ConfigError reports a configuration defect discovered at the point of
// read: a dangling reference or a malformed record. These fail fast and
// are never silently skipped.
type ConfigError struct {
	// Path is the file or record location where the defect was found.
	Path string
	// Detail describes the defect.
	Detail string
	cause  error
}

// NewConfigError creates a ConfigError wrapping the given cause.
func NewConfigError(path, detail string, cause error) *ConfigError {
	return &ConfigError{Path: path, Detail: detail, cause: cause}
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("configuration error: %s", e.Detail)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// -----------------------------------------------------------------------------
// Ownership Violations
// -----------------------------------------------------------------------------

// OwnershipError reports an attempt by a role to mutate a field it does not
// own. The violating role and the field are both identified so the rejection
// is auditable. The entity is left unchanged.
type OwnershipError struct {
	// Actor is the role that attempted the mutation.
	Actor role.Role
	// Owner is the role that owns the field.
	Owner role.Role
	// Entity identifies the entity (task ID, finding ID, ...).
	Entity string
	// Field is the field the actor attempted to mutate.
	Field string
}

// NewOwnershipError creates an OwnershipError.
func NewOwnershipError(actor, owner role.Role, entity, field string) *OwnershipError {
	return &OwnershipError{Actor: actor, Owner: owner, Entity: entity, Field: field}
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("ownership violation: role %s may not mutate %s of %s (owned by %s)",
		e.Actor, e.Field, e.Entity, e.Owner)
}

// -----------------------------------------------------------------------------
// Invalid State Transitions
// -----------------------------------------------------------------------------

// TransitionError reports a status or disposition transition outside the
// allowed edges. Transitions are rejected, never clamped to the nearest
// valid state.
type TransitionError struct {
	// Entity identifies the entity (task ID, finding ID, ...).
	Entity string
	// From is the current state.
	From string
	// To is the requested state.
	To string
}

// NewTransitionError creates a TransitionError.
func NewTransitionError(entity, from, to string) *TransitionError {
	return &TransitionError{Entity: entity, From: from, To: to}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.Entity, e.From, e.To)
}

// -----------------------------------------------------------------------------
// Dependency Violations
// -----------------------------------------------------------------------------

// DependencyError reports an attempt to complete a task whose blocking
// reference is not done. Dependencies are checked at completion time, not
// just claim time, to catch retracted or reopened upstream work.
type DependencyError struct {
	// TaskID is the task whose completion was rejected.
	TaskID string
	// BlockerRole and BlockerID identify the unmet blocking reference.
	BlockerRole role.Role
	BlockerID   string
	// BlockerStatus is the blocker's status at the moment of the check.
	BlockerStatus string
}

// NewDependencyError creates a DependencyError.
func NewDependencyError(taskID string, blockerRole role.Role, blockerID, blockerStatus string) *DependencyError {
	return &DependencyError{
		TaskID:        taskID,
		BlockerRole:   blockerRole,
		BlockerID:     blockerID,
		BlockerStatus: blockerStatus,
	}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency violation: task %s blocked by %s.%s (status %s, want done)",
		e.TaskID, e.BlockerRole, e.BlockerID, e.BlockerStatus)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsConfig returns true if the error is a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return As(err, &ce) || Is(err, ErrDanglingReference) || Is(err, ErrMalformedRecord)
}

// IsOwnership returns true if the error is an ownership violation.
func IsOwnership(err error) bool {
	var oe *OwnershipError
	return As(err, &oe)
}

// IsTransition returns true if the error is an invalid state transition.
func IsTransition(err error) bool {
	var te *TransitionError
	return As(err, &te) || Is(err, ErrInvalidDisposition)
}

// IsDependency returns true if the error is a dependency violation.
func IsDependency(err error) bool {
	var de *DependencyError
	return As(err, &de)
}
