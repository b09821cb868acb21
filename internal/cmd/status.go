package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/phase"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Long: `Display each role's queue phase and task counts, pending mailbox
messages, completion signals, and findings awaiting disposition.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var phaseDots = map[phase.Phase]string{
	phase.Waiting: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("○"),
	phase.Active:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Render("●"),
	phase.Drained: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("●"),
}

var severityStyles = map[findings.Severity]lipgloss.Style{
	findings.SeverityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	findings.SeverityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	findings.SeverityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

func runStatus(cmd *cobra.Command, args []string) error {
	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}
	return printStatus(os.Stdout, ws)
}

// printStatus renders the status report. The watch command reuses it on
// every workspace change.
func printStatus(w io.Writer, ws *session.Workspace) error {
	queues, err := ws.LoadQueues()
	if err != nil {
		return err
	}
	mb := ws.Mailbox()

	fmt.Fprintln(w, "Roles:")
	for _, r := range role.All {
		q := queues.Queue(r)
		ph := phase.Detect(q)
		var counts string
		if q != nil {
			c := q.Counts()
			counts = fmt.Sprintf("%d pending, %d in progress, %d done", c.Pending, c.InProgress, c.Done)
		} else {
			counts = "no queue"
		}
		pending, err := mb.Receive(r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s %-13s %-8s %s", phaseDots[ph], r, ph, counts)
		if len(pending) > 0 {
			fmt.Fprintf(w, ", %d unread message(s)", len(pending))
		}
		fmt.Fprintln(w)
	}

	registry, err := ws.Registry()
	if err != nil {
		return err
	}
	state, err := registry.Load()
	if err != nil {
		return err
	}
	var open []string
	for _, f := range state.Findings {
		if !f.Disposition.Terminal() {
			sev := severityStyles[f.Severity].Render(string(f.Severity))
			open = append(open, fmt.Sprintf("  %s  %s on %s (%s, %s)",
				sev, f.ID, f.Requirement, f.Result, f.Disposition))
		}
	}
	if len(open) > 0 {
		fmt.Fprintf(w, "\nFindings awaiting disposition (%d):\n", len(open))
		for _, line := range open {
			fmt.Fprintln(w, line)
		}
	}

	roles, aggregate, err := ws.Signals().Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprint(w, "\nCompletion signals: ")
	any := false
	for _, r := range role.All {
		if roles[r] {
			if any {
				fmt.Fprint(w, ", ")
			}
			fmt.Fprint(w, r)
			any = true
		}
	}
	if !any {
		fmt.Fprint(w, "none")
	}
	if aggregate {
		fmt.Fprint(w, " (all roles complete)")
	}
	fmt.Fprintln(w)
	return nil
}
