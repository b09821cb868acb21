package taskqueue

import (
	"fmt"
	"time"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/role"
)

// Set holds all three roles' queues and implements the operations that need
// cross-queue visibility: eligibility resolution, claiming, and completion.
// A nil queue for a role means the role's queue file is absent.
//
// Set is not safe for concurrent use within a process; cross-process safety
// comes from the flock held around load/store (see persist.go).
type Set struct {
	queues map[role.Role]*Queue

	// lease is the claim lease duration. When positive, an in_progress
	// task whose claim is older than the lease is treated by the
	// eligibility scan exactly as pending. Zero disables leasing.
	lease time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// Option configures a Set.
type Option func(*Set)

// WithClaimLease enables the claim lease with the given duration.
func WithClaimLease(d time.Duration) Option {
	return func(s *Set) {
		if d > 0 {
			s.lease = d
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSet creates a Set from per-role queues. Missing roles get nil queues.
func NewSet(queues map[role.Role]*Queue, opts ...Option) *Set {
	if queues == nil {
		queues = make(map[role.Role]*Queue)
	}
	s := &Set{
		queues: queues,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queue returns the queue for the given role, or nil if absent.
func (s *Set) Queue(r role.Role) *Queue {
	return s.queues[r]
}

// effectiveStatus returns the status the eligibility scan should see.
// An in_progress task with an expired claim lease counts as pending.
func (s *Set) effectiveStatus(t *Task) Status {
	if s.lease > 0 && t.Status == StatusInProgress && t.ClaimedAt != nil {
		if s.now().Sub(*t.ClaimedAt) > s.lease {
			return StatusPending
		}
	}
	return t.Status
}

// resolveBlocker looks up a blocking reference. A reference to a missing
// queue or task is a configuration error, surfaced rather than skipped:
// silently treating it as unblocked would let verification run ahead of its
// design dependency.
func (s *Set) resolveBlocker(taskID string, ref BlockingRef) (*Task, error) {
	q := s.queues[ref.Role]
	if q == nil {
		return nil, errors.NewConfigError(
			fmt.Sprintf("queues/%s", ref.Role),
			fmt.Sprintf("task %s blocked by %s.%s but the %s queue does not exist",
				taskID, ref.Role, ref.TaskID, ref.Role),
			errors.ErrDanglingReference,
		)
	}
	blocker := q.Get(ref.TaskID)
	if blocker == nil {
		return nil, errors.NewConfigError(
			fmt.Sprintf("queues/%s", ref.Role),
			fmt.Sprintf("task %s blocked by %s.%s which does not exist",
				taskID, ref.Role, ref.TaskID),
			errors.ErrDanglingReference,
		)
	}
	return blocker, nil
}

// blockersDone reports whether every blocking reference of the task points
// at a done task. Lease expiry never applies to blockers: a blocker is done
// or it is not.
func (s *Set) blockersDone(t *Task) (bool, error) {
	for _, ref := range t.BlockedBy {
		blocker, err := s.resolveBlocker(t.ID, ref)
		if err != nil {
			return false, err
		}
		if blocker.Status != StatusDone {
			return false, nil
		}
	}
	return true, nil
}

// NextEligible scans the role's queue in creation order and returns the
// first pending task whose every blocking reference resolves to a done
// task. Returns nil if no task is eligible. Pure query: no side effects.
func (s *Set) NextEligible(r role.Role) (*Task, error) {
	q := s.queues[r]
	if q == nil {
		return nil, nil
	}
	for _, task := range q.Tasks {
		if s.effectiveStatus(task) != StatusPending {
			continue
		}
		done, err := s.blockersDone(task)
		if err != nil {
			return nil, err
		}
		if done {
			return task, nil
		}
	}
	return nil, nil
}

// Claim transitions a pending task to in_progress. Only the owning role may
// claim. A lease-expired in_progress task may be re-claimed when leasing is
// enabled. Enforcing at most one claim per invocation is the session
// runner's job; the queue only validates the transition itself.
func (s *Set) Claim(acting role.Role, taskID string) error {
	task, err := s.find(acting, taskID)
	if err != nil {
		return err
	}
	if task.Role != acting {
		return errors.NewOwnershipError(acting, task.Role, task.ID, "status")
	}
	prev := s.effectiveStatus(task)
	if prev != StatusPending {
		return errors.NewTransitionError(task.ID, string(task.Status), string(StatusInProgress))
	}

	now := s.now()
	task.History = append(task.History, Transition{
		From: task.Status, To: StatusInProgress, At: now, By: acting,
	})
	task.Status = StatusInProgress
	task.ClaimedAt = &now
	return nil
}

// Complete transitions an in_progress task to done. Only the owning role
// may complete. Every blocking reference is re-checked at the moment of the
// call: a blocker that has been retracted or reopened since claim time
// rejects the completion with a dependency violation.
func (s *Set) Complete(acting role.Role, taskID string) error {
	task, err := s.find(acting, taskID)
	if err != nil {
		return err
	}
	if task.Role != acting {
		return errors.NewOwnershipError(acting, task.Role, task.ID, "status")
	}
	if task.Status != StatusInProgress {
		return errors.NewTransitionError(task.ID, string(task.Status), string(StatusDone))
	}

	for _, ref := range task.BlockedBy {
		blocker, err := s.resolveBlocker(task.ID, ref)
		if err != nil {
			return err
		}
		if blocker.Status != StatusDone {
			return errors.NewDependencyError(task.ID, ref.Role, ref.TaskID, string(blocker.Status))
		}
	}

	now := s.now()
	task.History = append(task.History, Transition{
		From: task.Status, To: StatusDone, At: now, By: acting,
	})
	task.Status = StatusDone
	task.CompletedAt = &now
	return nil
}

// Append adds a new task to the queue of task.Role. Task creation is the
// lead role's privilege; the corrective-action side effect in the finding
// registry goes through this same narrow API under the lead's authority.
func (s *Set) Append(acting role.Role, task *Task) error {
	if acting != role.Lead {
		return errors.NewOwnershipError(acting, role.Lead, task.ID, "queue")
	}
	if task.ID == "" {
		return fmt.Errorf("%w: task ID is required", errors.ErrInvalidInput)
	}
	if !task.Role.Valid() {
		return fmt.Errorf("%w: task %s has no owning role", errors.ErrInvalidInput, task.ID)
	}
	for _, r := range role.All {
		if existing := s.queues[r].Get(task.ID); existing != nil {
			return fmt.Errorf("%w: task ID %s already exists on the %s queue",
				errors.ErrInvalidInput, task.ID, r)
		}
	}
	for _, ref := range task.BlockedBy {
		if !ref.Role.Valid() {
			return fmt.Errorf("%w: task %s blocking reference names unknown role %q",
				errors.ErrInvalidInput, task.ID, ref.Role)
		}
	}

	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.Status != StatusPending {
		return errors.NewTransitionError(task.ID, "", string(task.Status))
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = s.now()
	}

	q := s.queues[task.Role]
	if q == nil {
		q = &Queue{Role: task.Role}
		s.queues[task.Role] = q
	}
	q.Tasks = append(q.Tasks, task)
	return nil
}

// find locates a task across the set by owner-first lookup. The acting
// role's queue is scanned first so error messages stay precise when IDs
// collide historically.
func (s *Set) find(acting role.Role, taskID string) (*Task, error) {
	if task := s.queues[acting].Get(taskID); task != nil {
		return task, nil
	}
	for _, r := range role.All {
		if r == acting {
			continue
		}
		if task := s.queues[r].Get(taskID); task != nil {
			return task, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errors.ErrTaskNotFound, taskID)
}
