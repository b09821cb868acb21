// Package mailbox provides inter-role communication for verity workspaces.
//
// The three roles never share memory and never run as persistent processes,
// so every request, disposition notice, and failure report travels through
// a file-addressed mailbox. Each role has a dedicated inbox directory under
// the workspace's mailbox/ tree.
//
//	.verity/mailbox/
//	    lead/index.jsonl          -- messages to the lead
//	    lead/archive.jsonl        -- processed-message markers
//	    design/index.jsonl        -- messages to design
//	    verification/index.jsonl  -- messages to verification
//
// Messages are persisted as JSONL (one JSON object per line) in an
// append-only log. A message is never mutated after send; once a recipient
// has acted on it, the message is archived by appending its ID to the
// recipient's archive log. The index itself is never rewritten, so the
// full communication history stays auditable.
//
// There is no delivery-failure mode: the channel is durable storage, not a
// transient queue. Send can only fail on the underlying filesystem.
//
// A role must drain its inbox before claiming new work (enforced by the
// session runner), so disposition decisions and corrective-action requests
// are never missed by a stale task selection.
package mailbox
