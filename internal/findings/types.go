package findings

import (
	"time"
)

// Result is the outcome of one verification task.
type Result string

const (
	ResultPass    Result = "pass"
	ResultPartial Result = "partial"
	ResultFail    Result = "fail"
)

// Valid returns true for a known result value.
func (r Result) Valid() bool {
	return r == ResultPass || r == ResultPartial || r == ResultFail
}

// Severity classifies how serious a finding is. It is computed once at
// record time and stored, so historical findings stay stable even if the
// threshold logic changes later.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Disposition is the resolution state of a finding. Dispositions move only
// forward: open branches to one of four decisions, and three of those may
// then close. Nothing ever reopens.
type Disposition string

const (
	DispositionOpen             Disposition = "open"
	DispositionAccepted         Disposition = "accepted"
	DispositionRejected         Disposition = "rejected"
	DispositionWaived           Disposition = "waived"
	DispositionCorrectiveAction Disposition = "corrective_action"
	DispositionClosed           Disposition = "closed"
)

// Terminal returns true if the disposition no longer blocks requirement
// closure. Open findings and corrective actions keep their requirement
// open; a decision (accepted, rejected, waived) or a close resolves it.
func (d Disposition) Terminal() bool {
	switch d {
	case DispositionOpen, DispositionCorrectiveAction:
		return false
	}
	return true
}

// transitions is the complete edge set of the disposition state machine.
// Any edge not listed here is invalid and rejected, never clamped.
var transitions = map[Disposition][]Disposition{
	DispositionOpen: {
		DispositionAccepted,
		DispositionRejected,
		DispositionWaived,
		DispositionCorrectiveAction,
	},
	DispositionAccepted:         {DispositionClosed},
	DispositionWaived:           {DispositionClosed},
	DispositionCorrectiveAction: {DispositionClosed},
}

// CanTransition reports whether from -> to is a legal disposition edge.
func CanTransition(from, to Disposition) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DispositionChange is one entry in a finding's disposition history.
type DispositionChange struct {
	From      Disposition `json:"from"`
	To        Disposition `json:"to"`
	Rationale string      `json:"rationale,omitempty"`
	At        time.Time   `json:"at"`
	// CorrectiveTask is the design task created by a corrective_action
	// transition, when applicable.
	CorrectiveTask string `json:"corrective_task,omitempty"`
}

// Finding is the recorded outcome of one verification task. Findings are
// append-only: they are never deleted, and after record time only the
// disposition moves.
type Finding struct {
	// ID is the finding identifier (e.g. FND-003), assigned at record time.
	ID string `json:"id"`

	// Requirement references the requirement the finding is against.
	Requirement string `json:"requirement"`

	// VerificationTask references the verification task that produced
	// the finding.
	VerificationTask string `json:"verification_task"`

	// Result is the verification outcome.
	Result Result `json:"result"`

	// Delta is the fractional difference between the two independently
	// computed values for the same quantity, when both exist
	// (0.03 means 3%).
	Delta *float64 `json:"delta,omitempty"`

	// Margin is the verified value's margin against the requirement
	// threshold, when applicable. Negative margin means the threshold
	// is violated.
	Margin *float64 `json:"margin,omitempty"`

	// ThresholdMet records whether the requirement threshold held.
	ThresholdMet bool `json:"threshold_met"`

	// Evidence is an opaque reference to the verification artifact
	// (script output, report) backing the finding.
	Evidence string `json:"evidence,omitempty"`

	// Severity is computed at record time from delta and threshold
	// compliance, then stored.
	Severity Severity `json:"severity"`

	// Disposition is the current resolution state.
	Disposition Disposition `json:"disposition"`

	// RecordedAt is when the finding was recorded.
	RecordedAt time.Time `json:"recorded_at"`

	// History records every disposition change.
	History []DispositionChange `json:"history,omitempty"`
}
