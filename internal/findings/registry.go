package findings

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
)

// RefResolver validates the references carried by a new finding. The
// registry never reaches into the requirement set or the task queues
// directly; the caller supplies this narrow view.
type RefResolver interface {
	// HasRequirement reports whether the requirement ID exists.
	HasRequirement(id string) bool
	// HasVerificationTask reports whether the verification queue holds
	// the task ID.
	HasVerificationTask(id string) bool
}

// TaskAppender is the narrow API through which a corrective_action
// disposition creates a new task on the design role's queue. It is the
// model's only cross-entity side effect; keeping it an interface keeps the
// single-writer rule intact everywhere else.
type TaskAppender interface {
	// AppendCorrectiveTask creates one design task referencing the given
	// requirement and returns its ID.
	AppendCorrectiveTask(findingID, requirement string) (string, error)
}

// event record kinds in the registry log.
const (
	kindRecorded    = "recorded"
	kindDisposition = "disposition"
)

// logRecord is one line of the append-only registry log. Exactly one of
// Finding (kind=recorded) or the disposition fields (kind=disposition) is
// populated.
type logRecord struct {
	Kind string `json:"kind"`

	// recorded
	Finding *Finding `json:"finding,omitempty"`

	// disposition
	FindingID      string      `json:"finding_id,omitempty"`
	To             Disposition `json:"to,omitempty"`
	Rationale      string      `json:"rationale,omitempty"`
	CorrectiveTask string      `json:"corrective_task,omitempty"`
	At             time.Time   `json:"at,omitempty"`
}

// Registry is the append-only finding log plus its disposition state
// machine. Current state is always a deterministic fold over the log —
// nothing is cached between operations, which makes the registry trivially
// resumable after a crash.
type Registry struct {
	path     string
	mu       sync.Mutex
	resolver RefResolver
	appender TaskAppender
	bus      *event.Bus

	// deltaCutoff is the fractional delta above which severity is at
	// least medium. Zero means the built-in default.
	deltaCutoff float64

	now func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithResolver attaches reference validation for Record.
func WithResolver(r RefResolver) Option {
	return func(reg *Registry) { reg.resolver = r }
}

// WithTaskAppender attaches the corrective-action task sink.
func WithTaskAppender(a TaskAppender) Option {
	return func(reg *Registry) { reg.appender = a }
}

// WithBus attaches an event bus for finding.recorded and finding.disposed
// events.
func WithBus(bus *event.Bus) Option {
	return func(reg *Registry) { reg.bus = bus }
}

// WithDeltaCutoff overrides the medium-severity delta cutoff.
func WithDeltaCutoff(cutoff float64) Option {
	return func(reg *Registry) { reg.deltaCutoff = cutoff }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) {
		if now != nil {
			reg.now = now
		}
	}
}

// NewRegistry creates a Registry whose log lives at path (the file is
// created on first record).
func NewRegistry(path string, opts ...Option) *Registry {
	r := &Registry{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State is the folded view of the registry log.
type State struct {
	// Findings holds every finding in record order.
	Findings []*Finding

	byID map[string]*Finding
}

// Get returns the finding with the given ID, or nil.
func (s *State) Get(id string) *Finding {
	if s == nil {
		return nil
	}
	return s.byID[id]
}

// For returns the findings referencing the given requirement, in record
// order.
func (s *State) For(requirement string) []*Finding {
	if s == nil {
		return nil
	}
	var out []*Finding
	for _, f := range s.Findings {
		if f.Requirement == requirement {
			out = append(out, f)
		}
	}
	return out
}

// Load folds the registry log into its current state. A missing log file
// yields an empty state; a record that cannot be decoded or replayed is a
// configuration error.
func (r *Registry) Load() (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() (*State, error) {
	state := &State{byID: make(map[string]*Finding)}

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, fmt.Errorf("findings: open registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.NewConfigError(r.path, "registry record cannot be decoded", errors.ErrMalformedRecord)
		}
		if err := replay(state, &rec, r.path); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("findings: scan registry: %w", err)
	}
	return state, nil
}

// replay applies one log record to the folded state.
func replay(state *State, rec *logRecord, path string) error {
	switch rec.Kind {
	case kindRecorded:
		if rec.Finding == nil || rec.Finding.ID == "" {
			return errors.NewConfigError(path, "recorded event without finding", errors.ErrMalformedRecord)
		}
		if _, dup := state.byID[rec.Finding.ID]; dup {
			return errors.NewConfigError(path,
				fmt.Sprintf("finding %s recorded twice", rec.Finding.ID),
				errors.ErrMalformedRecord)
		}
		cp := *rec.Finding
		state.Findings = append(state.Findings, &cp)
		state.byID[cp.ID] = &cp
	case kindDisposition:
		f := state.byID[rec.FindingID]
		if f == nil {
			return errors.NewConfigError(path,
				fmt.Sprintf("disposition event for unknown finding %s", rec.FindingID),
				errors.ErrMalformedRecord)
		}
		if !CanTransition(f.Disposition, rec.To) {
			return errors.NewConfigError(path,
				fmt.Sprintf("log replay: finding %s cannot move %s -> %s", f.ID, f.Disposition, rec.To),
				errors.ErrMalformedRecord)
		}
		f.History = append(f.History, DispositionChange{
			From:           f.Disposition,
			To:             rec.To,
			Rationale:      rec.Rationale,
			At:             rec.At,
			CorrectiveTask: rec.CorrectiveTask,
		})
		f.Disposition = rec.To
	default:
		return errors.NewConfigError(path,
			fmt.Sprintf("unknown registry record kind %q", rec.Kind),
			errors.ErrMalformedRecord)
	}
	return nil
}

// RecordInput carries the fields of a new finding supplied by the
// verification role. Severity and disposition are computed, not supplied.
type RecordInput struct {
	Requirement      string
	VerificationTask string
	Result           Result
	Delta            *float64
	Margin           *float64
	ThresholdMet     bool
	Evidence         string
}

// Record appends a new finding with disposition open. Only the
// verification role records findings. Requirement and verification-task
// references must resolve; a dangling reference is rejected.
func (r *Registry) Record(acting role.Role, in RecordInput) (*Finding, error) {
	if acting != role.Verification {
		return nil, errors.NewOwnershipError(acting, role.Verification, in.VerificationTask, "findings")
	}
	if !in.Result.Valid() {
		return nil, fmt.Errorf("%w: result %q", errors.ErrInvalidInput, in.Result)
	}
	if r.resolver == nil {
		return nil, errors.New("findings: no reference resolver configured")
	}
	if in.Requirement == "" || !r.resolver.HasRequirement(in.Requirement) {
		return nil, fmt.Errorf("findings: requirement %q: %w", in.Requirement, errors.ErrDanglingReference)
	}
	if in.VerificationTask == "" || !r.resolver.HasVerificationTask(in.VerificationTask) {
		return nil, fmt.Errorf("findings: verification task %q: %w", in.VerificationTask, errors.ErrDanglingReference)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.loadLocked()
	if err != nil {
		return nil, err
	}

	f := &Finding{
		ID:               fmt.Sprintf("FND-%03d", len(state.Findings)+1),
		Requirement:      in.Requirement,
		VerificationTask: in.VerificationTask,
		Result:           in.Result,
		Delta:            in.Delta,
		Margin:           in.Margin,
		ThresholdMet:     in.ThresholdMet,
		Evidence:         in.Evidence,
		Severity:         ComputeSeverity(in.Delta, in.ThresholdMet, r.deltaCutoff),
		Disposition:      DispositionOpen,
		RecordedAt:       r.now(),
	}

	if err := r.append(&logRecord{Kind: kindRecorded, Finding: f}); err != nil {
		return nil, err
	}

	if r.bus != nil {
		r.bus.Publish(event.NewFindingRecordedEvent(f.ID, f.Requirement, string(f.Severity)))
	}
	return f, nil
}

// Disposition moves a finding's disposition along one legal edge. Only the
// lead role dispositions findings. A corrective_action transition also
// creates exactly one new task on the design role's queue via the
// configured TaskAppender.
func (r *Registry) Disposition(acting role.Role, findingID string, to Disposition, rationale string) (*Finding, error) {
	if acting != role.Lead {
		return nil, errors.NewOwnershipError(acting, role.Lead, findingID, "disposition")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	f := state.Get(findingID)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrFindingNotFound, findingID)
	}
	if !CanTransition(f.Disposition, to) {
		return nil, errors.NewTransitionError(f.ID, string(f.Disposition), string(to))
	}

	rec := &logRecord{
		Kind:      kindDisposition,
		FindingID: f.ID,
		To:        to,
		Rationale: rationale,
		At:        r.now(),
	}

	// The corrective-action side effect runs before the log append: if
	// the design task cannot be created, the disposition does not move
	// and the registry stays unchanged.
	if to == DispositionCorrectiveAction {
		if r.appender == nil {
			return nil, errors.New("findings: corrective_action requires a task appender")
		}
		taskID, err := r.appender.AppendCorrectiveTask(f.ID, f.Requirement)
		if err != nil {
			return nil, fmt.Errorf("findings: create corrective task: %w", err)
		}
		rec.CorrectiveTask = taskID
	}

	if err := r.append(rec); err != nil {
		return nil, err
	}

	from := f.Disposition
	f.History = append(f.History, DispositionChange{
		From:           from,
		To:             to,
		Rationale:      rationale,
		At:             rec.At,
		CorrectiveTask: rec.CorrectiveTask,
	})
	f.Disposition = to

	if r.bus != nil {
		r.bus.Publish(event.NewFindingDisposedEvent(f.ID, string(from), string(to)))
	}
	return f, nil
}

// append writes one record to the log with O_APPEND. Caller holds r.mu.
func (r *Registry) append(rec *logRecord) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("findings: create registry directory: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("findings: marshal record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("findings: open registry for append: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("findings: append to registry: %w", err)
	}
	return f.Close()
}
