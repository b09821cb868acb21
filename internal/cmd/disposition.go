package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/role"
)

var dispositionRationale string

var dispositionCmd = &cobra.Command{
	Use:   "disposition <finding-id> <status>",
	Short: "Move a finding's disposition (lead only)",
	Long: `Move a finding to a new disposition. Only the lead dispositions
findings, and only forward: open may move to accepted, rejected,
waived, or corrective_action; accepted, waived, and corrective_action
may move to closed; nothing moves back. A corrective_action disposition
also creates one design task referencing the finding's requirement.`,
	Args: cobra.ExactArgs(2),
	RunE: runDisposition,
}

func init() {
	dispositionCmd.Flags().StringVar(&dispositionRationale, "rationale", "", "reason for the decision")
	rootCmd.AddCommand(dispositionCmd)
}

func runDisposition(cmd *cobra.Command, args []string) error {
	findingID := args[0]
	to := findings.Disposition(args[1])

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	registry, err := ws.Registry()
	if err != nil {
		return err
	}

	f, err := registry.Disposition(role.Lead, findingID, to, dispositionRationale)
	if err != nil {
		return err
	}

	fmt.Printf("Finding %s is now %s.\n", f.ID, f.Disposition)
	if to == findings.DispositionCorrectiveAction {
		last := f.History[len(f.History)-1]
		fmt.Printf("Corrective task %s created on the design queue.\n", last.CorrectiveTask)
	}
	return nil
}
