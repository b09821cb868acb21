package taskqueue

import (
	"time"

	"github.com/verity-dev/verity/internal/role"
)

// Status represents the current state of a queued task.
type Status string

const (
	// StatusPending indicates the task is waiting to be claimed.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task has been claimed by its owning
	// role and work is underway.
	StatusInProgress Status = "in_progress"

	// StatusDone indicates the task finished. Done is terminal.
	StatusDone Status = "done"
)

// String returns the string representation of the task status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// BlockingRef points at another role's task that must be done before the
// referencing task may complete.
type BlockingRef struct {
	Role   role.Role `json:"role"`
	TaskID string    `json:"task_id"`
}

// Transition is one entry in a task's append-only status history.
type Transition struct {
	From Status    `json:"from"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
	By   role.Role `json:"by"`
}

// Task is a unit of work owned by exactly one role. All fields except
// Status (and the claim/completion timestamps that accompany it) are
// write-once at creation by the lead role; only the owning role may move
// the status.
type Task struct {
	// ID is the task identifier (e.g. DES-003, VER-007).
	ID string `json:"id"`

	// Role is the owning role. Only this role may mutate Status.
	Role role.Role `json:"role"`

	// Title is a free-form short description.
	Title string `json:"title"`

	// Requirements lists the requirement IDs this task traces to.
	Requirements []string `json:"requirements"`

	// Deliverable describes the expected artifact. The coordination
	// layer treats it as an opaque reference (script path, report name).
	Deliverable string `json:"deliverable,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// BlockedBy lists tasks on other roles' queues that must be done
	// before this task may complete.
	BlockedBy []BlockingRef `json:"blocked_by,omitempty"`

	// CreatedAt orders the queue. Creation order is authoritative for
	// claim selection; there is no priority reordering.
	CreatedAt time.Time `json:"created_at"`

	// ClaimedAt is when the task was claimed, if it has been.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// CompletedAt is when the task reached done.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// History records every status transition. Tasks are never deleted;
	// their past states stay on the record.
	History []Transition `json:"history,omitempty"`
}

// References returns true if the task's requirement list includes reqID.
func (t *Task) References(reqID string) bool {
	for _, r := range t.Requirements {
		if r == reqID {
			return true
		}
	}
	return false
}

// Queue is one role's ordered task list. Slice order is creation order.
type Queue struct {
	Role  role.Role `json:"role"`
	Tasks []*Task   `json:"tasks"`
}

// Counts is a snapshot of a queue's state counts.
type Counts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
}

// Counts returns the queue's current state counts.
func (q *Queue) Counts() Counts {
	var c Counts
	if q == nil {
		return c
	}
	c.Total = len(q.Tasks)
	for _, task := range q.Tasks {
		switch task.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusDone:
			c.Done++
		}
	}
	return c
}

// Get returns the task with the given ID, or nil if not found.
func (q *Queue) Get(taskID string) *Task {
	if q == nil {
		return nil
	}
	for _, task := range q.Tasks {
		if task.ID == taskID {
			return task
		}
	}
	return nil
}
