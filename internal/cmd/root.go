// Package cmd implements the verity command line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verity-dev/verity/internal/config"
	"github.com/verity-dev/verity/internal/event"
	"github.com/verity-dev/verity/internal/logging"
	"github.com/verity-dev/verity/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "verity",
	Short: "File-mediated coordination between lead, design, and verification roles",
	Long: `Verity coordinates three independently invoked roles (lead, design,
verification) through shared workspace files: per-role task queues with
dependency ordering, append-only mailboxes, a finding registry with
disposition tracking, completion signals, and a derived traceability
ledger.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/verity/config.yaml)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace root (default is the current directory)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("workspace.dir", rootCmd.PersistentFlags().Lookup("workspace"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/verity")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("VERITY")
	// Replace dots with underscores for nested keys in env vars
	// e.g., VERITY_QUEUE_CLAIM_LEASE_MINUTES for queue.claim_lease_minutes
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// openWorkspace loads and validates configuration and returns a workspace
// with an event bus attached, plus the debug logger the bus is bridged
// into. Every event published by the stores lands in debug.log through
// that bridge. The caller must Close the logger. Commands that mutate
// state call Check themselves; init does not.
func openWorkspace() (*session.Workspace, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	bus := event.NewBus()
	ws := session.NewWorkspace(cfg, session.WithBus(bus))
	log, err := logging.NewLogger(ws.StateDir(), cfg.Logging.Level)
	if err != nil {
		// The command still works without its debug log.
		log = logging.NopLogger()
	}
	bridgeEvents(bus, log)
	return ws, log, nil
}

// bridgeEvents subscribes the debug logger to every event on the bus.
func bridgeEvents(bus *event.Bus, log *logging.Logger) {
	bus.SubscribeAll(func(e event.Event) {
		args := []any{"type", e.EventType()}
		switch ev := e.(type) {
		case event.TaskClaimedEvent:
			args = append(args, "role", ev.Role, "task", ev.TaskID)
		case event.TaskCompletedEvent:
			args = append(args, "role", ev.Role, "task", ev.TaskID)
		case event.TaskAssignedEvent:
			args = append(args, "role", ev.Role, "task", ev.TaskID)
			if ev.Finding != "" {
				args = append(args, "finding", ev.Finding)
			}
		case event.FindingRecordedEvent:
			args = append(args, "finding", ev.FindingID, "requirement", ev.Requirement, "severity", ev.Severity)
		case event.FindingDisposedEvent:
			args = append(args, "finding", ev.FindingID, "from", ev.From, "to", ev.To)
		case event.MailboxMessageEvent:
			args = append(args, "message", ev.MessageID, "from", ev.From, "to", ev.To, "kind", ev.Kind)
		case event.RoleSignalEvent:
			args = append(args, "role", ev.Role)
		case event.InvocationEndedEvent:
			args = append(args, "role", ev.Role, "phase", ev.Phase)
		}
		log.Debug("event", args...)
	})
}
