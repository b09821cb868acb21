// Package taskqueue implements the per-role task queues and the dependency
// resolver of the verity coordination layer.
//
// Each role owns one ordered queue of tasks; slice order is creation order
// and is authoritative for claim selection. A task may carry blocking
// references to other roles' tasks, and may only reach done once every
// blocker is done. Dependencies are checked both when selecting the next
// eligible task and again at completion time, so upstream work that was
// retracted after claim still rejects the completion.
//
// Ownership is enforced structurally: mutating operations take the acting
// role, and a role moving another role's task status is rejected with an
// ownership violation, leaving the task unchanged.
//
// Queues persist as one JSON document per role under the workspace's
// queues/ directory. Writes are atomic (temp file plus rename) and guarded
// by a flock(2) lock so that roles invoked at overlapping wall-clock times
// serialize their read-modify-write cycles.
package taskqueue
