package mailbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/role"
)

const (
	// indexFile is the append-only JSONL message log within each
	// recipient's mailbox directory.
	indexFile = "index.jsonl"

	// archiveFile records the IDs of processed messages, one JSON record
	// per line. The index is never rewritten; archiving only appends.
	archiveFile = "archive.jsonl"
)

// archiveRecord marks one message as processed.
type archiveRecord struct {
	MessageID  string    `json:"message_id"`
	ArchivedAt time.Time `json:"archived_at"`
}

// Store provides file-based mailbox storage. Messages are persisted as
// JSONL (one JSON object per line) in an append-only log per recipient
// role; a parallel archive log flags processed messages. No record is ever
// deleted or edited in place.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at the given mailbox directory.
// The per-recipient structure is created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Send persists a message to the recipient's mailbox. If msg.ID is empty, a
// unique ID is generated. If msg.Timestamp is zero, the current time is
// used. Writes are serialized via a mutex and use O_APPEND.
func (s *Store) Send(msg Message) (Message, error) {
	if !msg.From.Valid() {
		return msg, fmt.Errorf("%w: message From role %q", errors.ErrInvalidInput, msg.From)
	}
	if !msg.To.Valid() {
		return msg, fmt.Errorf("%w: message To role %q", errors.ErrInvalidInput, msg.To)
	}
	if !ValidateMessageType(msg.Type) {
		return msg, fmt.Errorf("%w: message type %q", errors.ErrInvalidInput, msg.Type)
	}

	if msg.ID == "" {
		msg.ID = generateID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	dir := s.dirForRecipient(msg.To)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return msg, fmt.Errorf("mailbox: create directory: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("mailbox: marshal message: %w", err)
	}
	data = append(data, '\n')

	if err := s.atomicAppend(filepath.Join(dir, indexFile), data); err != nil {
		return msg, err
	}
	return msg, nil
}

// Receive returns all messages for the role that have not been archived, in
// arrival order (the order they were appended to the index).
func (s *Store) Receive(r role.Role) ([]Message, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: recipient role %q", errors.ErrInvalidInput, r)
	}

	all, err := s.readIndex(r)
	if err != nil {
		return nil, err
	}
	archived, err := s.readArchive(r)
	if err != nil {
		return nil, err
	}

	var pending []Message
	for _, msg := range all {
		if !archived[msg.ID] {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

// Archive flags a message as processed. The message stays in the index
// untouched; only an archive record is appended. Archiving an already
// archived message is a no-op. Archiving an unknown message is an error.
func (s *Store) Archive(r role.Role, msgID string) error {
	if !r.Valid() {
		return fmt.Errorf("%w: recipient role %q", errors.ErrInvalidInput, r)
	}

	all, err := s.readIndex(r)
	if err != nil {
		return err
	}
	found := false
	for _, msg := range all {
		if msg.ID == msgID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("mailbox: archive %s: %w", msgID, errors.ErrDanglingReference)
	}

	archived, err := s.readArchive(r)
	if err != nil {
		return err
	}
	if archived[msgID] {
		return nil
	}

	data, err := json.Marshal(archiveRecord{MessageID: msgID, ArchivedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("mailbox: marshal archive record: %w", err)
	}
	data = append(data, '\n')
	return s.atomicAppend(filepath.Join(s.dirForRecipient(r), archiveFile), data)
}

// History returns every message ever delivered to the role, archived or
// not, in arrival order. Used by status output; the audit trail never
// shrinks.
func (s *Store) History(r role.Role) ([]Message, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: recipient role %q", errors.ErrInvalidInput, r)
	}
	return s.readIndex(r)
}

// dirForRecipient returns the mailbox directory for a given recipient role.
func (s *Store) dirForRecipient(r role.Role) string {
	return filepath.Join(s.dir, string(r))
}

// readIndex reads all messages from a recipient's index.jsonl.
// Returns nil (not error) if the file does not exist. A line that cannot be
// decoded is a configuration error: a corrupted audit trail is never
// silently skipped.
func (s *Store) readIndex(r role.Role) ([]Message, error) {
	path := filepath.Join(s.dirForRecipient(r), indexFile)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mailbox: open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var messages []Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, errors.NewConfigError(path, "message record cannot be decoded", errors.ErrMalformedRecord)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mailbox: scan index: %w", err)
	}

	return messages, nil
}

// readArchive reads the set of archived message IDs for a recipient.
func (s *Store) readArchive(r role.Role) (map[string]bool, error) {
	path := filepath.Join(s.dirForRecipient(r), archiveFile)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("mailbox: open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	archived := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec archiveRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.NewConfigError(path, "archive record cannot be decoded", errors.ErrMalformedRecord)
		}
		archived[rec.MessageID] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mailbox: scan archive: %w", err)
	}

	return archived, nil
}

// atomicAppend appends data to a file. The mutex serializes writers in
// this process; O_APPEND keeps each write positioned at end-of-file so
// concurrent invocations cannot overwrite each other's lines.
func (s *Store) atomicAppend(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("mailbox: open for append: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("mailbox: append: %w", err)
	}

	return f.Close()
}

// idCounter provides per-process uniqueness for message IDs.
var idCounter atomic.Uint64

// generateID produces a unique message ID using timestamp, PID, and atomic
// counter.
func generateID() string {
	return fmt.Sprintf("msg-%d-%d-%d", time.Now().UnixNano(), os.Getpid(), idCounter.Add(1))
}
