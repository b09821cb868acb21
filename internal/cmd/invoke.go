package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/phase"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/session"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <role>",
	Short: "Run one invocation for a role",
	Long: `Run a single invocation for the named role: drain its mailbox, then
either claim the next eligible task from its queue or, if the queue has
drained, emit its completion signal. Each invocation claims at most one
task and then stops; re-invoke to make further progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	acting, err := role.Parse(args[0])
	if err != nil {
		return err
	}

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	report, err := session.NewRunner(ws, session.WithLogger(log)).Invoke(cmd.Context(), acting)
	if err != nil {
		return err
	}

	fmt.Printf("Invocation %s (%s)\n", report.Invocation, report.Role)
	fmt.Printf("Phase: %s\n", report.Phase)
	for _, msg := range report.Inbox {
		fmt.Printf("Processed message %s from %s (%s): %s\n", msg.ID, msg.From, msg.Type, msg.Body)
	}

	switch {
	case report.Claimed != nil:
		fmt.Printf("Claimed task %s: %s\n", report.Claimed.ID, report.Claimed.Title)
	case report.Phase == phase.Active:
		fmt.Println("No eligible task; upstream dependencies are not done yet.")
	case report.Phase == phase.Waiting:
		fmt.Println("Queue is empty.")
	case report.Phase == phase.Drained:
		fmt.Println("Queue drained; completion signal emitted.")
		if report.AggregateEmitted {
			fmt.Println("All roles complete; aggregate signal emitted.")
		}
	}
	return nil
}
