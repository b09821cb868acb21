package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/taskqueue"
)

var assignFlags struct {
	taskRole    string
	id          string
	title       string
	reqs        []string
	deliverable string
	blockedBy   []string
}

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Create a task on a role's queue (lead only)",
	Long: `Create a new task on the named role's queue. Only the lead assigns
work. Blocking references use the form role:task-id, e.g.
--blocked-by design:DES-002; the referenced task must be done before
this one becomes eligible.`,
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().StringVar(&assignFlags.taskRole, "role", "", "owning role of the new task (required)")
	assignCmd.Flags().StringVar(&assignFlags.id, "id", "", "task identifier, e.g. DES-003 (required)")
	assignCmd.Flags().StringVar(&assignFlags.title, "title", "", "short task title (required)")
	assignCmd.Flags().StringSliceVar(&assignFlags.reqs, "req", nil, "requirement reference (repeatable, required)")
	assignCmd.Flags().StringVar(&assignFlags.deliverable, "deliverable", "", "expected artifact")
	assignCmd.Flags().StringSliceVar(&assignFlags.blockedBy, "blocked-by", nil, "blocking reference role:task-id (repeatable)")
	_ = assignCmd.MarkFlagRequired("role")
	_ = assignCmd.MarkFlagRequired("id")
	_ = assignCmd.MarkFlagRequired("title")
	_ = assignCmd.MarkFlagRequired("req")
	rootCmd.AddCommand(assignCmd)
}

func parseBlockingRef(s string) (taskqueue.BlockingRef, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return taskqueue.BlockingRef{}, fmt.Errorf("%w: blocking reference %q (want role:task-id)", errors.ErrInvalidInput, s)
	}
	r, err := role.Parse(parts[0])
	if err != nil {
		return taskqueue.BlockingRef{}, err
	}
	return taskqueue.BlockingRef{Role: r, TaskID: parts[1]}, nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	owner, err := role.Parse(assignFlags.taskRole)
	if err != nil {
		return err
	}
	var blocked []taskqueue.BlockingRef
	for _, s := range assignFlags.blockedBy {
		ref, err := parseBlockingRef(s)
		if err != nil {
			return err
		}
		blocked = append(blocked, ref)
	}

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	// Requirement references must resolve before the task lands.
	reqs, err := ws.Requirements()
	if err != nil {
		return err
	}
	for _, id := range assignFlags.reqs {
		if !reqs.Has(id) {
			return errors.NewConfigError(ws.RequirementsPath(),
				fmt.Sprintf("unknown requirement %s", id), errors.ErrDanglingReference)
		}
	}

	task := &taskqueue.Task{
		ID:           assignFlags.id,
		Role:         owner,
		Title:        assignFlags.title,
		Requirements: assignFlags.reqs,
		Deliverable:  assignFlags.deliverable,
		BlockedBy:    blocked,
	}
	err = ws.UpdateQueues(func(s *taskqueue.Set) error {
		return s.Append(role.Lead, task)
	})
	if err != nil {
		return err
	}
	ws.Bus().Publish(event.NewTaskAssignedEvent(owner, task.ID, ""))

	fmt.Printf("Task %s assigned to %s queue.\n", task.ID, owner)
	return nil
}
