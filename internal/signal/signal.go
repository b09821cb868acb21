// Package signal manages completion signals as presence-only marker
// files. A role that has drained its queue drops <role>.done under the
// signals directory; once every role's marker exists, the aggregate
// all.done marker is dropped too. File contents are informational only,
// existence is the signal, so emitting twice is a no-op rather than an
// error. That idempotency matters because several roles can observe
// "everyone else is done" at overlapping times near the end of a run.
package signal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
)

// AggregateName is the marker file for the aggregate signal.
const AggregateName = "all.done"

// Store reads and writes signal markers under a single directory.
type Store struct {
	dir string
	bus *event.Bus
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBus publishes signal events to the given bus.
func WithBus(bus *event.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithClock overrides the clock used for marker contents. Tests use this.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store rooted at the signals directory under the
// given state directory.
func NewStore(stateDir string, opts ...Option) *Store {
	s := &Store{
		dir: filepath.Join(stateDir, "signals"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) rolePath(r role.Role) string {
	return filepath.Join(s.dir, string(r)+".done")
}

func (s *Store) aggregatePath() string {
	return filepath.Join(s.dir, AggregateName)
}

// RolePresent reports whether the given role's signal exists.
func (s *Store) RolePresent(r role.Role) (bool, error) {
	if !r.Valid() {
		return false, fmt.Errorf("%w: unknown role %q", errors.ErrInvalidInput, r)
	}
	return s.exists(s.rolePath(r))
}

// AggregatePresent reports whether the aggregate signal exists.
func (s *Store) AggregatePresent() (bool, error) {
	return s.exists(s.aggregatePath())
}

// EmitRole drops the role's marker. Emitting an already-present marker
// is a no-op.
func (s *Store) EmitRole(r role.Role) error {
	if !r.Valid() {
		return fmt.Errorf("%w: unknown role %q", errors.ErrInvalidInput, r)
	}
	created, err := s.emit(s.rolePath(r))
	if err != nil {
		return err
	}
	if created && s.bus != nil {
		s.bus.Publish(event.NewRoleSignalEvent(r))
	}
	return nil
}

// EmitAggregate drops the aggregate marker if and only if every role's
// marker is already present. It reports whether the aggregate marker
// exists after the call.
func (s *Store) EmitAggregate() (bool, error) {
	for _, r := range role.All {
		present, err := s.exists(s.rolePath(r))
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
	}
	created, err := s.emit(s.aggregatePath())
	if err != nil {
		return false, err
	}
	if created && s.bus != nil {
		s.bus.Publish(event.NewAggregateSignalEvent())
	}
	return true, nil
}

// Snapshot returns the presence of every role marker plus the aggregate.
func (s *Store) Snapshot() (map[role.Role]bool, bool, error) {
	roles := make(map[role.Role]bool, len(role.All))
	for _, r := range role.All {
		present, err := s.exists(s.rolePath(r))
		if err != nil {
			return nil, false, err
		}
		roles[r] = present
	}
	aggregate, err := s.exists(s.aggregatePath())
	if err != nil {
		return nil, false, err
	}
	return roles, aggregate, nil
}

func (s *Store) exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat signal %s: %w", path, err)
}

// emit writes the marker if absent. It reports whether this call
// created it.
func (s *Store) emit(path string) (bool, error) {
	present, err := s.exists(path)
	if err != nil || present {
		return false, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("create signals dir: %w", err)
	}
	content := s.now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write signal %s: %w", path, err)
	}
	return true, nil
}
