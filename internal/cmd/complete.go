package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/taskqueue"
)

var completeCmd = &cobra.Command{
	Use:   "complete <role> <task-id>",
	Short: "Mark a claimed task done",
	Long: `Mark the named role's in-progress task done. Every blocking
reference is re-checked at this moment, not just at claim time, so
reopened upstream work rejects the completion.`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	acting, err := role.Parse(args[0])
	if err != nil {
		return err
	}
	taskID := args[1]

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	err = ws.UpdateQueues(func(s *taskqueue.Set) error {
		return s.Complete(acting, taskID)
	})
	if err != nil {
		return err
	}
	ws.Bus().Publish(event.NewTaskCompletedEvent(acting, taskID))

	fmt.Printf("Task %s done.\n", taskID)
	return nil
}
