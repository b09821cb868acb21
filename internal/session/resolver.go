package session

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/requirements"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/taskqueue"
)

// refResolver answers reference checks for the finding registry against
// a snapshot of the requirements file and the verification queue. Each
// CLI invocation records at most one finding, so a snapshot taken at
// open time is current for the whole call.
type refResolver struct {
	reqs         *requirements.Set
	verification *taskqueue.Queue
}

func (w *Workspace) newResolver() (*refResolver, error) {
	reqs, err := w.Requirements()
	if err != nil {
		return nil, err
	}
	queues, err := w.LoadQueues()
	if err != nil {
		return nil, err
	}
	return &refResolver{reqs: reqs, verification: queues.Queue(role.Verification)}, nil
}

func (r *refResolver) HasRequirement(id string) bool {
	return r.reqs.Has(id)
}

func (r *refResolver) HasVerificationTask(id string) bool {
	if r.verification == nil {
		return false
	}
	return r.verification.Get(id) != nil
}

// correctiveAppender creates the one design task a corrective_action
// disposition requires. The task is appended under the lead role's
// authority, which is also the only role allowed to reach the
// corrective_action disposition in the first place.
type correctiveAppender struct {
	ws *Workspace
}

var designIDPattern = regexp.MustCompile(`^DES-(\d+)$`)

// nextDesignID picks the next sequential DES-NNN identifier, skipping
// past any IDs already on the design queue.
func nextDesignID(q *taskqueue.Queue) string {
	max := 0
	if q != nil {
		for _, t := range q.Tasks {
			m := designIDPattern.FindStringSubmatch(t.ID)
			if m == nil {
				continue
			}
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("DES-%03d", max+1)
}

func (a *correctiveAppender) AppendCorrectiveTask(findingID, requirement string) (string, error) {
	var taskID string
	err := a.ws.UpdateQueues(func(s *taskqueue.Set) error {
		taskID = nextDesignID(s.Queue(role.Design))
		return s.Append(role.Lead, &taskqueue.Task{
			ID:           taskID,
			Role:         role.Design,
			Title:        fmt.Sprintf("Corrective action for %s", findingID),
			Requirements: []string{requirement},
			Deliverable:  fmt.Sprintf("Revised design resolving %s against %s", findingID, requirement),
		})
	})
	if err != nil {
		return "", err
	}
	if bus := a.ws.Bus(); bus != nil {
		bus.Publish(event.NewTaskAssignedEvent(role.Design, taskID, findingID))
	}
	return taskID, nil
}
