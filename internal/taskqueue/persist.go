package taskqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/role"
)

// queueFile returns the path of a role's queue file inside the queues
// directory: one ordered record list per role.
func queueFile(dir string, r role.Role) string {
	return filepath.Join(dir, string(r)+".json")
}

// LoadSet reads all role queue files from the given directory. An absent
// file yields a nil queue for that role (the phase detector reports
// waiting); a file that exists but cannot be decoded is a configuration
// error, surfaced immediately. A file lock is held during the read for
// cross-process safety.
func LoadSet(dir string, opts ...Option) (*Set, error) {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return loadSetLocked(dir, opts...)
}

// loadSetLocked reads queue files assuming the caller holds the lock.
func loadSetLocked(dir string, opts ...Option) (*Set, error) {
	queues := make(map[role.Role]*Queue)
	for _, r := range role.All {
		path := queueFile(dir, r)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read queue file: %w", err)
		}

		var q Queue
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, errors.NewConfigError(path, "queue file cannot be decoded", errors.ErrMalformedRecord)
		}
		if q.Role != r {
			return nil, errors.NewConfigError(path,
				fmt.Sprintf("queue file declares role %q, want %q", q.Role, r),
				errors.ErrMalformedRecord)
		}
		for _, task := range q.Tasks {
			if task.ID == "" {
				return nil, errors.NewConfigError(path, "task record with empty ID", errors.ErrMalformedRecord)
			}
			if task.Status != StatusPending && task.Status != StatusInProgress && task.Status != StatusDone {
				return nil, errors.NewConfigError(path,
					fmt.Sprintf("task %s has unknown status %q", task.ID, task.Status),
					errors.ErrMalformedRecord)
			}
		}
		queues[r] = &q
	}
	return NewSet(queues, opts...), nil
}

// SaveSet writes every present queue back to disk. Each queue file is
// written atomically: data goes to a temporary file first, then is renamed
// into place. A file lock is held during the operation.
func SaveSet(dir string, s *Set) error {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	return saveSetLocked(dir, s)
}

// saveSetLocked writes queue files assuming the caller holds the lock.
func saveSetLocked(dir string, s *Set) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queues directory: %w", err)
	}
	for _, r := range role.All {
		q := s.Queue(r)
		if q == nil {
			continue
		}
		data, err := json.MarshalIndent(q, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s queue: %w", r, err)
		}

		target := queueFile(dir, r)
		tmp := target + ".tmp"

		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := os.Rename(tmp, target); err != nil {
			_ = os.Remove(tmp) // best-effort cleanup
			return fmt.Errorf("rename temp file: %w", err)
		}
	}
	return nil
}

// Update loads the set, applies fn, and saves the result, all under one
// file lock. This is the write path every mutating CLI command and the
// session runner use; it keeps the read-modify-write cycle atomic across
// concurrently invoked roles.
func Update(dir string, opts []Option, fn func(*Set) error) error {
	fl := NewFileLock(dir)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = fl.Unlock() }()

	s, err := loadSetLocked(dir, opts...)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	return saveSetLocked(dir, s)
}
