// Package requirements loads the lead-authored requirement set. Requirement
// text is immutable after creation: amendments are new requirements, not
// edits, so downstream findings and trace entries always reference stable
// text. Requirement status is never stored here; it is derived by the
// traceability ledger.
package requirements

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/verity-dev/verity/internal/errors"
)

// Requirement is one shall-statement with an immutable identifier.
type Requirement struct {
	// ID is the requirement identifier (e.g. REQ-001).
	ID string `yaml:"id"`

	// Shall is the requirement text.
	Shall string `yaml:"shall"`

	// Threshold describes the quantitative acceptance criterion as
	// opaque text (e.g. "thrust = 1.0 N ± 0.05 N"). The coordination
	// layer records it but never interprets it.
	Threshold string `yaml:"threshold,omitempty"`
}

// Set is the ordered collection of requirements for a workspace.
type Set struct {
	Requirements []Requirement `yaml:"requirements"`

	byID map[string]*Requirement
}

// Load reads and validates a requirements YAML file. Duplicate or empty IDs
// are configuration errors.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes requirements YAML. The path parameter is used only for
// error reporting.
func Parse(path string, data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.NewConfigError(path, "requirements file cannot be decoded", errors.ErrMalformedRecord)
	}

	s.byID = make(map[string]*Requirement, len(s.Requirements))
	for i := range s.Requirements {
		req := &s.Requirements[i]
		if req.ID == "" {
			return nil, errors.NewConfigError(path, "requirement with empty ID", errors.ErrMalformedRecord)
		}
		if req.Shall == "" {
			return nil, errors.NewConfigError(path,
				fmt.Sprintf("requirement %s has no shall-statement", req.ID),
				errors.ErrMalformedRecord)
		}
		if _, dup := s.byID[req.ID]; dup {
			return nil, errors.NewConfigError(path,
				fmt.Sprintf("duplicate requirement ID %s", req.ID),
				errors.ErrMalformedRecord)
		}
		s.byID[req.ID] = req
	}
	return &s, nil
}

// Get returns the requirement with the given ID, or nil if unknown.
func (s *Set) Get(id string) *Requirement {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// Has returns true if the requirement ID exists.
func (s *Set) Has(id string) bool {
	return s.Get(id) != nil
}

// IDs returns the requirement IDs in file order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.Requirements))
	for _, req := range s.Requirements {
		ids = append(ids, req.ID)
	}
	return ids
}

// Save writes the set back to disk. Only used by `verity init` to seed a
// new workspace; requirement text is never rewritten afterwards.
func (s *Set) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
