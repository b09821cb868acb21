// Package trace derives the traceability ledger: one row per requirement
// mapping it to its design task, its verification evidence, and a computed
// status.
//
// The ledger is never stored or incrementally patched. Build recomputes
// every row from the requirement set, the task queues, and the finding
// state, so two independent builds over identical histories always agree —
// that determinism is what makes the ledger auditable rather than another
// opaque log.
package trace

import (
	"fmt"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/requirements"
	"github.com/verity-dev/verity/internal/role"
	"github.com/verity-dev/verity/internal/taskqueue"
)

// Status is the derived status of a requirement.
type Status string

const (
	// StatusOpen means no design task exists for the requirement yet.
	StatusOpen Status = "open"

	// StatusAssigned means a design task exists but verification has
	// not completed.
	StatusAssigned Status = "assigned"

	// StatusVerified means verification completed and every finding was
	// accepted or closed with result pass.
	StatusVerified Status = "verified"

	// StatusPartial means the best achieved result is partial, or a
	// finding was waived rather than resolved.
	StatusPartial Status = "partial"

	// StatusWaived marks a requirement whose every finding was waived.
	// It is a presentation alias of partial compliance; the derivation
	// folds it into StatusPartial (see Build).
	StatusWaived Status = "waived"

	// StatusClosed means design and verification are both done and no
	// finding remains in a non-terminal disposition.
	StatusClosed Status = "closed"
)

// Entry is one ledger row.
type Entry struct {
	// Requirement is the requirement ID.
	Requirement string `json:"requirement"`

	// DesignTask is the ID of the first design task referencing the
	// requirement, or empty if none exists.
	DesignTask string `json:"design_task,omitempty"`

	// DesignDone reports whether that design task is done.
	DesignDone bool `json:"design_done"`

	// VerificationTask is the ID of the first verification task
	// referencing the requirement, or empty.
	VerificationTask string `json:"verification_task,omitempty"`

	// VerificationDone reports whether that verification task is done.
	VerificationDone bool `json:"verification_done"`

	// Findings lists the IDs of findings referencing the requirement,
	// in record order.
	Findings []string `json:"findings,omitempty"`

	// Status is the computed requirement status.
	Status Status `json:"status"`
}

// Build derives the full ledger. Rows come out in requirement file order.
// A task referencing an unknown requirement is a configuration error,
// surfaced rather than skipped.
func Build(reqs *requirements.Set, qs *taskqueue.Set, fs *findings.State) ([]Entry, error) {
	if err := checkTaskRefs(reqs, qs); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(reqs.Requirements))
	for _, id := range reqs.IDs() {
		entries = append(entries, buildEntry(id, qs, fs))
	}
	return entries, nil
}

// checkTaskRefs verifies that every requirement reference on every queue
// resolves against the requirement set.
func checkTaskRefs(reqs *requirements.Set, qs *taskqueue.Set) error {
	for _, r := range role.All {
		q := qs.Queue(r)
		if q == nil {
			continue
		}
		for _, task := range q.Tasks {
			for _, ref := range task.Requirements {
				if !reqs.Has(ref) {
					return errors.NewConfigError(
						fmt.Sprintf("queues/%s", r),
						fmt.Sprintf("task %s references unknown requirement %s", task.ID, ref),
						errors.ErrDanglingReference,
					)
				}
			}
		}
	}
	return nil
}

// firstReferencing returns the first task on the role's queue referencing
// the requirement, in creation order.
func firstReferencing(qs *taskqueue.Set, r role.Role, reqID string) *taskqueue.Task {
	q := qs.Queue(r)
	if q == nil {
		return nil
	}
	for _, task := range q.Tasks {
		if task.References(reqID) {
			return task
		}
	}
	return nil
}

// buildEntry computes one ledger row. The status rules are evaluated top
// down; the first that holds wins.
func buildEntry(reqID string, qs *taskqueue.Set, fs *findings.State) Entry {
	entry := Entry{Requirement: reqID}

	design := firstReferencing(qs, role.Design, reqID)
	if design != nil {
		entry.DesignTask = design.ID
		entry.DesignDone = design.Status == taskqueue.StatusDone
	}
	verification := firstReferencing(qs, role.Verification, reqID)
	if verification != nil {
		entry.VerificationTask = verification.ID
		entry.VerificationDone = verification.Status == taskqueue.StatusDone
	}

	reqFindings := fs.For(reqID)
	for _, f := range reqFindings {
		entry.Findings = append(entry.Findings, f.ID)
	}

	allTerminal := true
	allTerminalPass := true
	anyWaived := false
	bestResult := findings.Result("")
	for _, f := range reqFindings {
		if !f.Disposition.Terminal() {
			allTerminal = false
		}
		resolved := f.Disposition == findings.DispositionClosed ||
			f.Disposition == findings.DispositionAccepted
		if !resolved || f.Result != findings.ResultPass {
			allTerminalPass = false
		}
		if wasWaived(f) {
			anyWaived = true
		}
		if betterResult(f.Result, bestResult) {
			bestResult = f.Result
		}
	}

	switch {
	case entry.DesignDone && entry.VerificationDone && allTerminal:
		entry.Status = StatusClosed
	case entry.VerificationDone && allTerminalPass:
		entry.Status = StatusVerified
	case bestResult == findings.ResultPartial || anyWaived:
		entry.Status = StatusPartial
	case design != nil && !entry.VerificationDone:
		entry.Status = StatusAssigned
	default:
		entry.Status = StatusOpen
	}
	return entry
}

// wasWaived reports whether the finding is waived now or passed through
// waived on its way to closed.
func wasWaived(f *findings.Finding) bool {
	if f.Disposition == findings.DispositionWaived {
		return true
	}
	for _, ch := range f.History {
		if ch.To == findings.DispositionWaived {
			return true
		}
	}
	return false
}

// betterResult ranks pass above partial above fail.
func betterResult(a, b findings.Result) bool {
	rank := func(r findings.Result) int {
		switch r {
		case findings.ResultPass:
			return 3
		case findings.ResultPartial:
			return 2
		case findings.ResultFail:
			return 1
		}
		return 0
	}
	return rank(a) > rank(b)
}
