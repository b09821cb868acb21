// Package findings implements the verification outcome registry and its
// disposition state machine.
//
// The registry is an append-only JSONL event log with two record kinds:
// "recorded" (a new finding, disposition open) and "disposition" (one legal
// move along the disposition graph). Current state is a fold over the log,
// recomputed on every operation, so any two replicas of the log produce
// identical state and crash recovery needs no logic beyond re-reading it.
//
// Severity is computed once at record time from the delta between the two
// independently produced values and the threshold compliance, then stored.
// A violated requirement threshold is always high severity; changing the
// delta cutoff later never rewrites history.
//
// The only cross-entity side effect in the whole coordination model lives
// here: a corrective_action disposition creates one new task on the design
// role's queue through the narrow TaskAppender interface, under the lead's
// authority. No general write-to-another-queue mechanism exists.
package findings
