package cmd

import (
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and re-render status on changes",
	Long: `Watch the workspace state directory and re-render the status report
whenever a queue, mailbox, finding, or signal changes. Bursts of writes
are coalesced with a configurable debounce. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// fsnotify works better with directories than individual files.
	// Signal and finding directories may not exist yet; the state dir
	// watch picks up their creation.
	for _, dir := range []string{
		ws.StateDir(),
		ws.QueuesDir(),
		ws.MailboxDir(),
		filepath.Dir(ws.FindingsPath()),
		filepath.Join(ws.StateDir(), "signals"),
	} {
		if _, err := os.Stat(dir); err == nil {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
		}
	}

	ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	render := func() {
		fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))
		if err := printStatus(os.Stdout, ws); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
		}
		fmt.Println()
	}
	render()

	debounce := ws.Config().Watch.Debounce()
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// A newly created subdirectory (first signal, first
			// finding) needs its own watch.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			render()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}
