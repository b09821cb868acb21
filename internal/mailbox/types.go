package mailbox

import (
	"time"

	"github.com/verity-dev/verity/internal/role"
)

// MessageType identifies the kind of inter-role message.
type MessageType string

const (
	// MessageRequest asks the recipient role to act (e.g. the lead
	// requesting a rework estimate from design).
	MessageRequest MessageType = "request"

	// MessageStatus provides a progress update.
	MessageStatus MessageType = "status"

	// MessageFindingNotice informs the lead that a finding was recorded.
	MessageFindingNotice MessageType = "finding_notice"

	// MessageResponse answers a prior request.
	MessageResponse MessageType = "response"

	// MessageApproval communicates an accepting disposition decision.
	MessageApproval MessageType = "approval"

	// MessageRejection communicates a rejecting disposition decision.
	MessageRejection MessageType = "rejection"
)

// Message represents a single inter-role communication. Messages are never
// mutated after send; once processed they are archived, not deleted.
type Message struct {
	ID           string      `json:"id"`
	From         role.Role   `json:"from"`
	To           role.Role   `json:"to"`
	Type         MessageType `json:"type"`
	Requirements []string    `json:"requirements,omitempty"`
	Tasks        []string    `json:"tasks,omitempty"`
	Body         string      `json:"body"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Valid message types for validation.
var validMessageTypes = map[MessageType]bool{
	MessageRequest:       true,
	MessageStatus:        true,
	MessageFindingNotice: true,
	MessageResponse:      true,
	MessageApproval:      true,
	MessageRejection:     true,
}

// ValidateMessageType returns true if the given type is a known message type.
func ValidateMessageType(t MessageType) bool {
	return validMessageTypes[t]
}
