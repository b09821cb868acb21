// Package phase classifies a role's operating mode for one invocation.
// Nothing here persists: the phase is recomputed from the task queue every
// time, so the classification can never drift from the queue itself.
package phase

import (
	"github.com/verity-dev/verity/internal/taskqueue"
)

// Phase is a role's operating mode for the current invocation.
type Phase string

const (
	// Waiting means the role's queue is empty or absent; nothing to do
	// yet.
	Waiting Phase = "waiting"

	// Active means at least one task is pending or in progress.
	Active Phase = "active"

	// Drained means every task on the queue is done. A drained role
	// emits its completion signal and checks the aggregate condition.
	Drained Phase = "drained"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Detect classifies the queue. A nil queue (absent file) classifies as
// Waiting. Pure function: no side effects, no stored state.
func Detect(q *taskqueue.Queue) Phase {
	if q == nil || len(q.Tasks) == 0 {
		return Waiting
	}
	for _, task := range q.Tasks {
		if !task.Status.IsTerminal() {
			return Active
		}
	}
	return Drained
}
