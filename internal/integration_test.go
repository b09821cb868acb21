// Package internal contains an integration test that drives the full
// coordination workflow across the real stores: assignment, dependency
// ordering, finding disposition with corrective action, ledger
// derivation, and completion signaling.
package internal

import (
	"context"
	"os"
	"testing"

	"github.com/verity-dev/verity/internal/config"
	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/mailbox"
	"github.com/verity-dev/verity/internal/phase"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/session"
	"github.com/verity-dev/verity/internal/taskqueue"
	"github.com/verity-dev/verity/internal/trace"
)

func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Workspace.Dir = t.TempDir()
	ws := session.NewWorkspace(cfg)
	if err := ws.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	reqYAML := `requirements:
  - id: REQ-001
    shall: the thruster shall produce at least 1.0 N of thrust
    threshold: ">= 1.0 N"
  - id: REQ-002
    shall: the feed system shall prime within 5 s
`
	if err := os.WriteFile(ws.RequirementsPath(), []byte(reqYAML), 0o644); err != nil {
		t.Fatalf("write requirements: %v", err)
	}

	// Lead assigns work: one task per role, verification blocked on design.
	assign := func(task *taskqueue.Task) {
		t.Helper()
		err := ws.UpdateQueues(func(s *taskqueue.Set) error {
			return s.Append(role.Lead, task)
		})
		if err != nil {
			t.Fatalf("assign %s: %v", task.ID, err)
		}
	}
	assign(&taskqueue.Task{ID: "LEAD-001", Role: role.Lead, Title: "approve thrust baseline", Requirements: []string{"REQ-001"}})
	assign(&taskqueue.Task{ID: "DES-001", Role: role.Design, Title: "size thrust chamber", Requirements: []string{"REQ-001"}})
	assign(&taskqueue.Task{
		ID: "VER-001", Role: role.Verification, Title: "verify thrust", Requirements: []string{"REQ-001"},
		BlockedBy: []taskqueue.BlockingRef{{Role: role.Design, TaskID: "DES-001"}},
	})

	runner := session.NewRunner(ws)
	invoke := func(r role.Role) *session.Report {
		t.Helper()
		report, err := runner.Invoke(ctx, r)
		if err != nil {
			t.Fatalf("invoke %s: %v", r, err)
		}
		return report
	}
	completeTask := func(r role.Role, id string) {
		t.Helper()
		err := ws.UpdateQueues(func(s *taskqueue.Set) error {
			return s.Complete(r, id)
		})
		if err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	}

	// Verification cannot start before design finishes.
	if report := invoke(role.Verification); report.Claimed != nil {
		t.Fatalf("verification claimed %s before its design dependency", report.Claimed.ID)
	}

	// Design works its task to done.
	if report := invoke(role.Design); report.Claimed == nil || report.Claimed.ID != "DES-001" {
		t.Fatalf("design claim = %+v, want DES-001", report.Claimed)
	}
	completeTask(role.Design, "DES-001")

	// Verification is now unblocked, runs, and records a failing finding.
	if report := invoke(role.Verification); report.Claimed == nil || report.Claimed.ID != "VER-001" {
		t.Fatalf("verification claim = %+v, want VER-001", report.Claimed)
	}
	completeTask(role.Verification, "VER-001")

	registry, err := ws.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	failing, err := registry.Record(role.Verification, findings.RecordInput{
		Requirement:      "REQ-001",
		VerificationTask: "VER-001",
		Result:           findings.ResultFail,
		ThresholdMet:     false,
		Evidence:         "measured 0.82 N against a 1.0 N floor",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if failing.Severity != findings.SeverityHigh {
		t.Errorf("violated threshold severity = %q, want high", failing.Severity)
	}
	if _, err := ws.Mailbox().Send(mailbox.Message{
		From: role.Verification, To: role.Lead,
		Type: mailbox.MessageFindingNotice,
		Body: "thrust below floor, see " + failing.ID,
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Lead drains the notice before touching its queue.
	leadReport := invoke(role.Lead)
	if len(leadReport.Inbox) != 1 {
		t.Fatalf("lead drained %d messages, want 1", len(leadReport.Inbox))
	}
	if leadReport.Claimed == nil || leadReport.Claimed.ID != "LEAD-001" {
		t.Fatalf("lead claim = %+v, want LEAD-001", leadReport.Claimed)
	}
	completeTask(role.Lead, "LEAD-001")

	// Corrective action flows the failure back into design work.
	if _, err := registry.Disposition(role.Lead, failing.ID, findings.DispositionCorrectiveAction, "rework chamber sizing"); err != nil {
		t.Fatalf("Disposition: %v", err)
	}
	if report := invoke(role.Design); report.Claimed == nil || report.Claimed.ID != "DES-002" {
		t.Fatalf("design claim after corrective action = %+v, want DES-002", report.Claimed)
	}
	completeTask(role.Design, "DES-002")

	// Rework verified clean; the lead closes everything out.
	registry2, err := ws.Registry()
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	delta := 0.012
	passing, err := registry2.Record(role.Verification, findings.RecordInput{
		Requirement:      "REQ-001",
		VerificationTask: "VER-001",
		Result:           findings.ResultPass,
		Delta:            &delta,
		ThresholdMet:     true,
		Evidence:         "measured 1.07 N after rework",
	})
	if err != nil {
		t.Fatalf("Record rework: %v", err)
	}
	if passing.Severity != findings.SeverityLow {
		t.Errorf("passing severity = %q, want low", passing.Severity)
	}
	if _, err := registry2.Disposition(role.Lead, failing.ID, findings.DispositionClosed, "resolved by rework"); err != nil {
		t.Fatalf("close failing finding: %v", err)
	}
	if _, err := registry2.Disposition(role.Lead, passing.ID, findings.DispositionAccepted, "meets threshold"); err != nil {
		t.Fatalf("accept passing finding: %v", err)
	}

	// Ledger: REQ-001 closes out, REQ-002 never got work.
	reqs, err := ws.Requirements()
	if err != nil {
		t.Fatalf("Requirements: %v", err)
	}
	queues, err := ws.LoadQueues()
	if err != nil {
		t.Fatalf("LoadQueues: %v", err)
	}
	state, err := registry2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries, err := trace.Build(reqs, queues, state)
	if err != nil {
		t.Fatalf("trace.Build: %v", err)
	}
	if entries[0].Status != trace.StatusClosed {
		t.Errorf("REQ-001 status = %q, want closed", entries[0].Status)
	}
	if entries[1].Status != trace.StatusOpen {
		t.Errorf("REQ-002 status = %q, want open", entries[1].Status)
	}

	// Every queue is drained; the last role to notice emits the aggregate.
	var aggregate bool
	for _, r := range role.All {
		report := invoke(r)
		if report.Phase != phase.Drained {
			t.Fatalf("%s phase = %q, want drained", r, report.Phase)
		}
		aggregate = report.AggregateEmitted
	}
	if !aggregate {
		t.Error("aggregate signal not emitted after every role drained")
	}
}
