package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/logging"
	"github.com/verity-dev/verity/internal/mailbox"
	"github.com/verity-dev/verity/internal/phase"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/taskqueue"
)

// Report summarizes one invocation.
type Report struct {
	// Invocation is the unique ID of this invocation.
	Invocation string

	// Role is the role that was invoked.
	Role role.Role

	// Phase is the role's queue phase observed during the invocation.
	Phase phase.Phase

	// Inbox holds the messages drained from the role's mailbox, in
	// arrival order. They are archived before any task is claimed.
	Inbox []mailbox.Message

	// Claimed is the task claimed this invocation, or nil.
	Claimed *taskqueue.Task

	// SignalEmitted reports whether the role's completion signal exists
	// after the invocation.
	SignalEmitted bool

	// AggregateEmitted reports whether the aggregate completion signal
	// exists after the invocation.
	AggregateEmitted bool
}

// Runner drives role invocations over a workspace.
type Runner struct {
	ws  *Workspace
	log *logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(log *logging.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner returns a runner over the workspace.
func NewRunner(ws *Workspace, opts ...RunnerOption) *Runner {
	r := &Runner{ws: ws, log: logging.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke runs one invocation for the given role and returns what
// happened. The sequence is fixed: drain the inbox, classify the queue
// phase, then either claim at most one eligible task (active) or emit
// completion signals (drained). A role with no eligible task stops
// immediately rather than waiting; progress resumes on a later
// invocation once upstream work lands.
func (r *Runner) Invoke(ctx context.Context, acting role.Role) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := role.Parse(string(acting)); err != nil {
		return nil, err
	}

	report := &Report{
		Invocation: uuid.NewString(),
		Role:       acting,
	}
	log := r.log.WithRole(string(acting)).WithInvocation(report.Invocation)
	log.Info("invocation started")
	start := time.Now()

	// Inbox first. Disposition decisions and corrective-action notices
	// must be seen before a stale task selection can miss them.
	mb := r.ws.Mailbox()
	inbox, err := mb.Receive(acting)
	if err != nil {
		return nil, err
	}
	for _, msg := range inbox {
		if err := mb.Archive(acting, msg.ID); err != nil {
			return nil, err
		}
		log.Debug("message archived", "message", msg.ID, "from", msg.From, "type", msg.Type)
	}
	report.Inbox = inbox

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase detection and the claim happen under one queue lock so the
	// phase cannot shift between observation and action.
	err = r.ws.UpdateQueues(func(s *taskqueue.Set) error {
		report.Phase = phase.Detect(s.Queue(acting))
		if report.Phase != phase.Active {
			return nil
		}
		next, err := s.NextEligible(acting)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if err := s.Claim(acting, next.ID); err != nil {
			return err
		}
		claimed := *next
		report.Claimed = &claimed
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch report.Phase {
	case phase.Waiting:
		log.Info("queue empty, nothing to do")
	case phase.Active:
		if report.Claimed != nil {
			if bus := r.ws.Bus(); bus != nil {
				bus.Publish(event.NewTaskClaimedEvent(acting, report.Claimed.ID))
			}
			log.Info("task claimed", "task", report.Claimed.ID)
		} else {
			log.Info("no eligible task, dependencies unmet")
		}
	case phase.Drained:
		signals := r.ws.Signals()
		if err := signals.EmitRole(acting); err != nil {
			return nil, err
		}
		report.SignalEmitted = true
		aggregate, err := signals.EmitAggregate()
		if err != nil {
			return nil, err
		}
		report.AggregateEmitted = aggregate
		log.Info("queue drained, completion signaled", "aggregate", aggregate)
	}

	if bus := r.ws.Bus(); bus != nil {
		bus.Publish(event.NewInvocationEndedEvent(acting, report.Phase.String()))
	}
	log.Info("invocation finished", "phase", report.Phase.String(), "elapsed", time.Since(start).String())
	return report, nil
}
