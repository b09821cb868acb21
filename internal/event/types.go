// Package event defines event types for decoupling components in verity.
// The session runner publishes an event for every workspace state change so
// that logging and the watch command can observe an invocation without the
// core packages depending on them.
package event

import (
	"time"

	"github.com/verity-dev/verity/internal/role"
)

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.claimed", "signal.role")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers published by the coordination layer.
const (
	TypeTaskClaimed     = "task.claimed"
	TypeTaskCompleted   = "task.completed"
	TypeTaskAssigned    = "task.assigned"
	TypeFindingRecorded = "finding.recorded"
	TypeFindingDisposed = "finding.disposed"
	TypeMailboxMessage  = "mailbox.message"
	TypeRoleSignal      = "signal.role"
	TypeAggregateSignal = "signal.aggregate"
	TypeInvocationEnded = "invocation.ended"
)

// TaskClaimedEvent is emitted when a role claims a pending task.
type TaskClaimedEvent struct {
	baseEvent
	Role   role.Role
	TaskID string
}

// NewTaskClaimedEvent creates a TaskClaimedEvent.
func NewTaskClaimedEvent(r role.Role, taskID string) TaskClaimedEvent {
	return TaskClaimedEvent{baseEvent: newBaseEvent(TypeTaskClaimed), Role: r, TaskID: taskID}
}

// TaskCompletedEvent is emitted when a role completes an in-progress task.
type TaskCompletedEvent struct {
	baseEvent
	Role   role.Role
	TaskID string
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(r role.Role, taskID string) TaskCompletedEvent {
	return TaskCompletedEvent{baseEvent: newBaseEvent(TypeTaskCompleted), Role: r, TaskID: taskID}
}

// TaskAssignedEvent is emitted when the lead appends a new task to a queue,
// including the corrective-action path from the finding registry.
type TaskAssignedEvent struct {
	baseEvent
	Role   role.Role // queue the task was appended to
	TaskID string
	// Finding is set when the assignment originated from a
	// corrective-action disposition.
	Finding string
}

// NewTaskAssignedEvent creates a TaskAssignedEvent.
func NewTaskAssignedEvent(r role.Role, taskID, finding string) TaskAssignedEvent {
	return TaskAssignedEvent{baseEvent: newBaseEvent(TypeTaskAssigned), Role: r, TaskID: taskID, Finding: finding}
}

// FindingRecordedEvent is emitted when the verification role records a finding.
type FindingRecordedEvent struct {
	baseEvent
	FindingID   string
	Requirement string
	Severity    string
}

// NewFindingRecordedEvent creates a FindingRecordedEvent.
func NewFindingRecordedEvent(findingID, requirement, severity string) FindingRecordedEvent {
	return FindingRecordedEvent{
		baseEvent:   newBaseEvent(TypeFindingRecorded),
		FindingID:   findingID,
		Requirement: requirement,
		Severity:    severity,
	}
}

// FindingDisposedEvent is emitted when the lead moves a finding's disposition.
type FindingDisposedEvent struct {
	baseEvent
	FindingID string
	From      string
	To        string
}

// NewFindingDisposedEvent creates a FindingDisposedEvent.
func NewFindingDisposedEvent(findingID, from, to string) FindingDisposedEvent {
	return FindingDisposedEvent{baseEvent: newBaseEvent(TypeFindingDisposed), FindingID: findingID, From: from, To: to}
}

// MailboxMessageEvent is emitted when a message is sent to a mailbox.
type MailboxMessageEvent struct {
	baseEvent
	MessageID string
	From      role.Role
	To        role.Role
	Kind      string
}

// NewMailboxMessageEvent creates a MailboxMessageEvent.
func NewMailboxMessageEvent(messageID string, from, to role.Role, kind string) MailboxMessageEvent {
	return MailboxMessageEvent{
		baseEvent: newBaseEvent(TypeMailboxMessage),
		MessageID: messageID,
		From:      from,
		To:        to,
		Kind:      kind,
	}
}

// RoleSignalEvent is emitted when a role's completion signal is written.
type RoleSignalEvent struct {
	baseEvent
	Role role.Role
}

// NewRoleSignalEvent creates a RoleSignalEvent.
func NewRoleSignalEvent(r role.Role) RoleSignalEvent {
	return RoleSignalEvent{baseEvent: newBaseEvent(TypeRoleSignal), Role: r}
}

// AggregateSignalEvent is emitted when the aggregate completion signal is
// written. At most one invocation ever observes the write; later attempts
// are idempotent no-ops and publish nothing.
type AggregateSignalEvent struct {
	baseEvent
}

// NewAggregateSignalEvent creates an AggregateSignalEvent.
func NewAggregateSignalEvent() AggregateSignalEvent {
	return AggregateSignalEvent{baseEvent: newBaseEvent(TypeAggregateSignal)}
}

// InvocationEndedEvent is emitted at the end of every session invocation.
type InvocationEndedEvent struct {
	baseEvent
	Role  role.Role
	Phase string
}

// NewInvocationEndedEvent creates an InvocationEndedEvent.
func NewInvocationEndedEvent(r role.Role, phase string) InvocationEndedEvent {
	return InvocationEndedEvent{baseEvent: newBaseEvent(TypeInvocationEnded), Role: r, Phase: phase}
}
