// Package session ties the coordination stores together and drives one
// role invocation at a time. There is no resident process: every command
// opens the workspace, does its one piece of work, and exits. Concurrency
// exists only across invocations, which the stores handle with file locks
// and append-only logs.
package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/verity-dev/verity/internal/config"
	"github.com/verity-dev/verity/internal/errors"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/findings"
	"github.com/verity-dev/verity/internal/mailbox"
	"github.com/verity-dev/verity/internal/requirements"
	"github.com/verity-dev/verity/internal/signal"
	"github.com/verity-dev/verity/internal/taskqueue"
)

// StateDirName is the directory under the workspace root holding all
// coordination state.
const StateDirName = ".verity"

// Workspace resolves the on-disk layout of one coordination workspace
// and constructs the stores over it.
type Workspace struct {
	cfg *config.Config
	bus *event.Bus
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithBus attaches an event bus. Stores constructed by the workspace
// publish their events to it.
func WithBus(bus *event.Bus) WorkspaceOption {
	return func(w *Workspace) { w.bus = bus }
}

// NewWorkspace returns a workspace over the configured root directory.
func NewWorkspace(cfg *config.Config, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{cfg: cfg}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Config returns the configuration the workspace was opened with.
func (w *Workspace) Config() *config.Config { return w.cfg }

// Bus returns the attached event bus, or nil.
func (w *Workspace) Bus() *event.Bus { return w.bus }

// StateDir returns the coordination state directory.
func (w *Workspace) StateDir() string {
	return filepath.Join(w.cfg.Workspace.Dir, StateDirName)
}

// RequirementsPath returns the requirements file path.
func (w *Workspace) RequirementsPath() string {
	return filepath.Join(w.StateDir(), "requirements.yaml")
}

// QueuesDir returns the directory holding per-role queue files.
func (w *Workspace) QueuesDir() string {
	return filepath.Join(w.StateDir(), "queues")
}

// MailboxDir returns the directory holding per-role mailboxes.
func (w *Workspace) MailboxDir() string {
	return filepath.Join(w.StateDir(), "mailbox")
}

// FindingsPath returns the finding registry log path.
func (w *Workspace) FindingsPath() string {
	return filepath.Join(w.StateDir(), "findings", "registry.jsonl")
}

// Init creates the state directory layout and an empty requirements
// file if one does not exist. Re-running init on an existing workspace
// is harmless.
func (w *Workspace) Init() error {
	for _, dir := range []string{
		w.StateDir(),
		w.QueuesDir(),
		w.MailboxDir(),
		filepath.Dir(w.FindingsPath()),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if _, err := os.Stat(w.RequirementsPath()); os.IsNotExist(err) {
		empty := &requirements.Set{}
		if err := empty.Save(w.RequirementsPath()); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies the workspace has been initialized.
func (w *Workspace) Check() error {
	if _, err := os.Stat(w.StateDir()); os.IsNotExist(err) {
		return errors.NewConfigError(w.StateDir(),
			"workspace not initialized, run \"verity init\" first", err)
	} else if err != nil {
		return errors.NewConfigError(w.StateDir(), "stat state dir", err)
	}
	return nil
}

// Requirements loads the requirements file.
func (w *Workspace) Requirements() (*requirements.Set, error) {
	return requirements.Load(w.RequirementsPath())
}

// QueueOptions returns the taskqueue options derived from configuration.
func (w *Workspace) QueueOptions() []taskqueue.Option {
	var opts []taskqueue.Option
	if lease := w.cfg.Queue.ClaimLease(); lease > 0 {
		opts = append(opts, taskqueue.WithClaimLease(lease))
	}
	return opts
}

// LoadQueues loads every role queue under the queue file lock.
func (w *Workspace) LoadQueues() (*taskqueue.Set, error) {
	return taskqueue.LoadSet(w.QueuesDir(), w.QueueOptions()...)
}

// UpdateQueues runs fn over the queues under the file lock and persists
// the result unless fn fails.
func (w *Workspace) UpdateQueues(fn func(*taskqueue.Set) error) error {
	return taskqueue.Update(w.QueuesDir(), w.QueueOptions(), fn)
}

// Mailbox opens the per-role mailboxes.
func (w *Workspace) Mailbox() *mailbox.Mailbox {
	var opts []mailbox.Option
	if w.bus != nil {
		opts = append(opts, mailbox.WithBus(w.bus))
	}
	return mailbox.New(w.MailboxDir(), opts...)
}

// Signals opens the completion signal store.
func (w *Workspace) Signals() *signal.Store {
	var opts []signal.Option
	if w.bus != nil {
		opts = append(opts, signal.WithBus(w.bus))
	}
	return signal.NewStore(w.StateDir(), opts...)
}

// Registry opens the finding registry, wired to resolve references
// against the live requirements and queues, and to append corrective
// design tasks.
func (w *Workspace) Registry() (*findings.Registry, error) {
	resolver, err := w.newResolver()
	if err != nil {
		return nil, err
	}
	opts := []findings.Option{
		findings.WithResolver(resolver),
		findings.WithTaskAppender(&correctiveAppender{ws: w}),
		findings.WithDeltaCutoff(w.cfg.Findings.DeltaMediumThreshold),
	}
	if w.bus != nil {
		opts = append(opts, findings.WithBus(w.bus))
	}
	return findings.NewRegistry(w.FindingsPath(), opts...), nil
}
