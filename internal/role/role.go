// Package role defines the three workflow actors and their identities.
// Every entity in the workspace (task, message, finding, signal) is owned
// by exactly one role, and all mutation APIs take the acting role so that
// ownership violations can be rejected at the call site.
package role

import "fmt"

// Role identifies one of the three independently invoked workflow actors.
type Role string

const (
	// Lead is the requirements owner: it decomposes requirements into
	// tasks, assigns work, and dispositions findings.
	Lead Role = "lead"

	// Design produces artifacts against assigned tasks.
	Design Role = "design"

	// Verification independently checks design artifacts and records
	// findings.
	Verification Role = "verification"
)

// All lists every role in a stable order. Iteration order matters for
// deterministic output (status tables, signal checks).
var All = []Role{Lead, Design, Verification}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid returns true if the role is one of the three known actors.
func (r Role) Valid() bool {
	return r == Lead || r == Design || r == Verification
}

// Parse converts a string into a Role, rejecting unknown values.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want lead, design, or verification)", s)
	}
	return r, nil
}
