package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/trace"
)

var traceMatch string

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Show the traceability ledger",
	Long: `Derive and print the traceability ledger: one row per requirement
with its design task, verification task, findings, and computed status.
The ledger is recomputed from the queues and the finding registry on
every run; nothing is cached.`,
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceMatch, "match", "", "only show requirements matching this glob, e.g. 'REQ-0*'")
	rootCmd.AddCommand(traceCmd)
}

var (
	traceHeaderStyle = lipgloss.NewStyle().Bold(true)
	traceDimStyle    = lipgloss.NewStyle().Faint(true)

	traceStatusStyles = map[trace.Status]lipgloss.Style{
		trace.StatusOpen:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		trace.StatusAssigned: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		trace.StatusVerified: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		trace.StatusPartial:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		trace.StatusClosed:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
	}
)

func runTrace(cmd *cobra.Command, args []string) error {
	var matcher glob.Glob
	if traceMatch != "" {
		var err error
		matcher, err = glob.Compile(traceMatch)
		if err != nil {
			return fmt.Errorf("invalid --match pattern: %w", err)
		}
	}

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	reqs, err := ws.Requirements()
	if err != nil {
		return err
	}
	queues, err := ws.LoadQueues()
	if err != nil {
		return err
	}
	registry, err := ws.Registry()
	if err != nil {
		return err
	}
	state, err := registry.Load()
	if err != nil {
		return err
	}

	entries, err := trace.Build(reqs, queues, state)
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-22s %-22s %-10s %s\n",
		traceHeaderStyle.Render("REQUIREMENT"),
		traceHeaderStyle.Render("DESIGN"),
		traceHeaderStyle.Render("VERIFICATION"),
		traceHeaderStyle.Render("STATUS"),
		traceHeaderStyle.Render("FINDINGS"))

	shown := 0
	for _, e := range entries {
		if matcher != nil && !matcher.Match(e.Requirement) {
			continue
		}
		shown++
		fmt.Printf("%-12s %-22s %-22s %-10s %s\n",
			e.Requirement,
			traceTaskCell(e.DesignTask, e.DesignDone),
			traceTaskCell(e.VerificationTask, e.VerificationDone),
			traceStatusStyles[e.Status].Render(string(e.Status)),
			strings.Join(e.Findings, ", "))
	}
	if shown == 0 {
		fmt.Println(traceDimStyle.Render("no matching requirements"))
	}
	return nil
}

func traceTaskCell(id string, done bool) string {
	if id == "" {
		return traceDimStyle.Render("-")
	}
	if done {
		return id + " (done)"
	}
	return id
}
