package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/role"
)

var recordFlags struct {
	req          string
	task         string
	result       string
	delta        float64
	margin       float64
	thresholdMet bool
	evidence     string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a verification finding",
	Long: `Append a new finding to the registry with disposition open. Only the
verification role records findings. Severity is computed, not supplied:
a violated requirement threshold is always high, and a delta above the
configured cutoff is at least medium.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordFlags.req, "req", "", "requirement reference (required)")
	recordCmd.Flags().StringVar(&recordFlags.task, "task", "", "verification task reference (required)")
	recordCmd.Flags().StringVar(&recordFlags.result, "result", "", "result: pass, partial, or fail (required)")
	recordCmd.Flags().Float64Var(&recordFlags.delta, "delta", 0, "fractional delta between independently computed values")
	recordCmd.Flags().Float64Var(&recordFlags.margin, "margin", 0, "margin of the verified value against the requirement threshold")
	recordCmd.Flags().BoolVar(&recordFlags.thresholdMet, "threshold-met", true, "whether the requirement threshold was met")
	recordCmd.Flags().StringVar(&recordFlags.evidence, "evidence", "", "evidence summary")
	_ = recordCmd.MarkFlagRequired("req")
	_ = recordCmd.MarkFlagRequired("task")
	_ = recordCmd.MarkFlagRequired("result")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
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

	in := findings.RecordInput{
		Requirement:      recordFlags.req,
		VerificationTask: recordFlags.task,
		Result:           findings.Result(recordFlags.result),
		ThresholdMet:     recordFlags.thresholdMet,
		Evidence:         recordFlags.evidence,
	}
	// Absent numeric inputs stay nil so severity computation can tell
	// "no delta available" apart from "delta of zero".
	if cmd.Flags().Changed("delta") {
		d := recordFlags.delta
		in.Delta = &d
	}
	if cmd.Flags().Changed("margin") {
		m := recordFlags.margin
		in.Margin = &m
	}

	f, err := registry.Record(role.Verification, in)
	if err != nil {
		return err
	}

	fmt.Printf("Finding %s recorded against %s (severity %s, disposition %s).\n",
		f.ID, f.Requirement, f.Severity, f.Disposition)
	return nil
}
