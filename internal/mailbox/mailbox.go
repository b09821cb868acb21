package mailbox

import (
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/role"
)

// Mailbox provides the inter-role messaging surface: one one-directional,
// file-addressed channel per role pair. It wraps a Store and publishes an
// event per delivered message when a bus is attached.
type Mailbox struct {
	store *Store
	bus   *event.Bus
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithBus attaches an event bus; every successful Send publishes a
// mailbox.message event.
func WithBus(bus *event.Bus) Option {
	return func(m *Mailbox) {
		m.bus = bus
	}
}

// New creates a Mailbox backed by a file store in the given directory.
func New(dir string, opts ...Option) *Mailbox {
	m := &Mailbox{
		store: NewStore(dir),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send delivers a message to the recipient's mailbox. It populates the ID
// and Timestamp fields if they are empty and returns the stored message.
// The channel is a durable append-only store: send cannot fail except on
// the underlying filesystem.
func (m *Mailbox) Send(msg Message) (Message, error) {
	sent, err := m.store.Send(msg)
	if err != nil {
		return sent, err
	}
	if m.bus != nil {
		m.bus.Publish(event.NewMailboxMessageEvent(sent.ID, sent.From, sent.To, string(sent.Type)))
	}
	return sent, nil
}

// Receive returns the role's unarchived messages in arrival order.
func (m *Mailbox) Receive(r role.Role) ([]Message, error) {
	return m.store.Receive(r)
}

// Archive flags a message as processed, moving it out of the active set.
func (m *Mailbox) Archive(r role.Role, msgID string) error {
	return m.store.Archive(r, msgID)
}

// History returns every message ever delivered to the role.
func (m *Mailbox) History(r role.Role) ([]Message, error) {
	return m.store.History(r)
}
