package findings

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
)

// fakeResolver accepts a fixed set of requirement and task IDs.
type fakeResolver struct {
	requirements map[string]bool
	tasks        map[string]bool
}

func (r *fakeResolver) HasRequirement(id string) bool      { return r.requirements[id] }
func (r *fakeResolver) HasVerificationTask(id string) bool { return r.tasks[id] }

// fakeAppender records corrective task creations.
type fakeAppender struct {
	created []string // "findingID/requirement"
	fail    bool
}

func (a *fakeAppender) AppendCorrectiveTask(findingID, requirement string) (string, error) {
	if a.fail {
		return "", errors.New("queue write failed")
	}
	a.created = append(a.created, findingID+"/"+requirement)
	return fmt.Sprintf("DES-CA-%03d", len(a.created)), nil
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *fakeAppender) {
	t.Helper()
	appender := &fakeAppender{}
	resolver := &fakeResolver{
		requirements: map[string]bool{"REQ-001": true, "REQ-002": true, "REQ-009": true},
		tasks:        map[string]bool{"VER-001": true, "VER-004": true},
	}
	all := append([]Option{
		WithResolver(resolver),
		WithTaskAppender(appender),
	}, opts...)
	reg := NewRegistry(filepath.Join(t.TempDir(), "registry.jsonl"), all...)
	return reg, appender
}

func TestRecordAssignsSequentialIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for i, req := range []string{"REQ-001", "REQ-002"} {
		f, err := reg.Record(role.Verification, RecordInput{
			Requirement:      req,
			VerificationTask: "VER-001",
			Result:           ResultPass,
			ThresholdMet:     true,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		want := fmt.Sprintf("FND-%03d", i+1)
		if f.ID != want {
			t.Errorf("ID = %s, want %s", f.ID, want)
		}
		if f.Disposition != DispositionOpen {
			t.Errorf("new finding disposition = %s, want open", f.Disposition)
		}
	}
}

func TestRecordOnlyVerification(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, r := range []role.Role{role.Lead, role.Design} {
		_, err := reg.Record(r, RecordInput{
			Requirement:      "REQ-001",
			VerificationTask: "VER-001",
			Result:           ResultPass,
			ThresholdMet:     true,
		})
		if !errors.IsOwnership(err) {
			t.Errorf("Record as %s: expected ownership error, got %v", r, err)
		}
	}

	state, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(state.Findings) != 0 {
		t.Error("rejected records must not reach the log")
	}
}

func TestRecordRejectsDanglingReferences(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Record(role.Verification, RecordInput{
		Requirement:      "REQ-404",
		VerificationTask: "VER-001",
		Result:           ResultFail,
	})
	if !errors.Is(err, errors.ErrDanglingReference) {
		t.Errorf("unknown requirement: expected dangling reference, got %v", err)
	}

	_, err = reg.Record(role.Verification, RecordInput{
		Requirement:      "REQ-001",
		VerificationTask: "VER-404",
		Result:           ResultFail,
	})
	if !errors.Is(err, errors.ErrDanglingReference) {
		t.Errorf("unknown task: expected dangling reference, got %v", err)
	}
}

func TestRecordComputesAndStoresSeverity(t *testing.T) {
	reg, _ := newTestRegistry(t)

	// Threshold violated with delta zero: high, never merely a
	// discrepancy.
	f, err := reg.Record(role.Verification, RecordInput{
		Requirement:      "REQ-001",
		VerificationTask: "VER-001",
		Result:           ResultFail,
		Delta:            fp(0.0),
		Margin:           fp(-0.12),
		ThresholdMet:     false,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if f.Severity != SeverityHigh {
		t.Errorf("severity = %s, want high for violated threshold", f.Severity)
	}

	// Severity is stored at record time: reload and confirm.
	state, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if state.Get(f.ID).Severity != SeverityHigh {
		t.Error("stored severity differs from computed severity")
	}
}

func TestDispositionLeadOnly(t *testing.T) {
	reg, _ := newTestRegistry(t)
	f := mustRecord(t, reg, "REQ-001", ResultFail)

	for _, r := range []role.Role{role.Design, role.Verification} {
		_, err := reg.Disposition(r, f.ID, DispositionAccepted, "")
		if !errors.IsOwnership(err) {
			t.Errorf("Disposition as %s: expected ownership error, got %v", r, err)
		}
	}

	state, _ := reg.Load()
	if state.Get(f.ID).Disposition != DispositionOpen {
		t.Error("rejected disposition mutated the finding")
	}
}

func TestDispositionForwardOnly(t *testing.T) {
	reg, _ := newTestRegistry(t)
	f := mustRecord(t, reg, "REQ-001", ResultFail)

	// open -> closed is not an edge: closed is reachable only through a
	// decision.
	if _, err := reg.Disposition(role.Lead, f.ID, DispositionClosed, ""); !errors.IsTransition(err) {
		t.Fatalf("open -> closed: expected transition error, got %v", err)
	}

	if _, err := reg.Disposition(role.Lead, f.ID, DispositionAccepted, "risk accepted"); err != nil {
		t.Fatalf("open -> accepted: %v", err)
	}
	if _, err := reg.Disposition(role.Lead, f.ID, DispositionClosed, "verified closure"); err != nil {
		t.Fatalf("accepted -> closed: %v", err)
	}

	// closed -> anything is rejected.
	for _, to := range []Disposition{DispositionOpen, DispositionAccepted, DispositionWaived} {
		if _, err := reg.Disposition(role.Lead, f.ID, to, ""); !errors.IsTransition(err) {
			t.Errorf("closed -> %s: expected transition error, got %v", to, err)
		}
	}
}

func TestDispositionMonotonicity(t *testing.T) {
	reg, _ := newTestRegistry(t)
	f := mustRecord(t, reg, "REQ-002", ResultPartial)

	if _, err := reg.Disposition(role.Lead, f.ID, DispositionWaived, "margin acceptable for mission"); err != nil {
		t.Fatalf("Disposition: %v", err)
	}
	if _, err := reg.Disposition(role.Lead, f.ID, DispositionClosed, ""); err != nil {
		t.Fatalf("Disposition: %v", err)
	}

	state, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := state.Get(f.ID)

	// The replayed history must be a path through the transition graph.
	prev := DispositionOpen
	for _, change := range got.History {
		if change.From != prev {
			t.Errorf("history break: change from %s but previous state was %s", change.From, prev)
		}
		if !CanTransition(change.From, change.To) {
			t.Errorf("history contains illegal edge %s -> %s", change.From, change.To)
		}
		prev = change.To
	}
	if got.Disposition != DispositionClosed {
		t.Errorf("final disposition = %s, want closed", got.Disposition)
	}
}

func TestCorrectiveActionCreatesExactlyOneDesignTask(t *testing.T) {
	reg, appender := newTestRegistry(t)
	f := mustRecord(t, reg, "REQ-009", ResultFail)

	updated, err := reg.Disposition(role.Lead, f.ID, DispositionCorrectiveAction, "rework nozzle sizing")
	if err != nil {
		t.Fatalf("Disposition: %v", err)
	}

	if len(appender.created) != 1 {
		t.Fatalf("expected exactly 1 corrective task, got %d", len(appender.created))
	}
	if appender.created[0] != f.ID+"/REQ-009" {
		t.Errorf("corrective task = %s, want %s/REQ-009", appender.created[0], f.ID)
	}
	if updated.History[len(updated.History)-1].CorrectiveTask == "" {
		t.Error("corrective task ID not recorded in disposition history")
	}
}

func TestCorrectiveActionFailureLeavesFindingOpen(t *testing.T) {
	reg, appender := newTestRegistry(t)
	appender.fail = true
	f := mustRecord(t, reg, "REQ-009", ResultFail)

	_, err := reg.Disposition(role.Lead, f.ID, DispositionCorrectiveAction, "")
	if err == nil {
		t.Fatal("expected error when corrective task creation fails")
	}

	state, _ := reg.Load()
	if state.Get(f.ID).Disposition != DispositionOpen {
		t.Error("failed corrective action moved the disposition")
	}
}

func TestStateFoldIsDeterministic(t *testing.T) {
	reg, _ := newTestRegistry(t)
	f1 := mustRecord(t, reg, "REQ-001", ResultFail)
	mustRecord(t, reg, "REQ-002", ResultPass)
	if _, err := reg.Disposition(role.Lead, f1.ID, DispositionAccepted, "x"); err != nil {
		t.Fatalf("Disposition: %v", err)
	}

	// Two independent folds over the same log must agree record for
	// record.
	a, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(a.Findings) != len(b.Findings) {
		t.Fatalf("fold sizes differ: %d vs %d", len(a.Findings), len(b.Findings))
	}
	for i := range a.Findings {
		fa, fb := a.Findings[i], b.Findings[i]
		if fa.ID != fb.ID || fa.Disposition != fb.Disposition || fa.Severity != fb.Severity {
			t.Errorf("fold mismatch at %d: %+v vs %+v", i, fa, fb)
		}
		if len(fa.History) != len(fb.History) {
			t.Errorf("history length mismatch for %s", fa.ID)
		}
	}
}

func TestStateFor(t *testing.T) {
	reg, _ := newTestRegistry(t)
	mustRecord(t, reg, "REQ-001", ResultFail)
	mustRecord(t, reg, "REQ-002", ResultPass)
	mustRecord(t, reg, "REQ-001", ResultPartial)

	state, err := reg.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	matches := state.For("REQ-001")
	if len(matches) != 2 {
		t.Fatalf("For(REQ-001) = %d findings, want 2", len(matches))
	}
	if matches[0].ID != "FND-001" || matches[1].ID != "FND-003" {
		t.Errorf("record order not preserved: %s, %s", matches[0].ID, matches[1].ID)
	}
}

func TestRegistryPublishesEvents(t *testing.T) {
	bus := event.NewBus()
	var types []string
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.EventType()) })

	reg, _ := newTestRegistry(t, WithBus(bus))
	f := mustRecord(t, reg, "REQ-001", ResultFail)
	if _, err := reg.Disposition(role.Lead, f.ID, DispositionRejected, "duplicate of FND-000"); err != nil {
		t.Fatalf("Disposition: %v", err)
	}

	want := []string{event.TypeFindingRecorded, event.TypeFindingDisposed}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func mustRecord(t *testing.T, reg *Registry, requirement string, result Result) *Finding {
	t.Helper()
	f, err := reg.Record(role.Verification, RecordInput{
		Requirement:      requirement,
		VerificationTask: "VER-001",
		Result:           result,
		ThresholdMet:     result != ResultFail,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return f
}
