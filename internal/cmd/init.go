package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a verity workspace",
	Long: `Initialize a verity workspace in the configured directory.
This creates a .verity directory holding the task queues, mailboxes,
finding registry, completion signals, and an empty requirements file.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Init(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	fmt.Println("Verity workspace initialized.")
	fmt.Printf("State directory: %s\n", ws.StateDir())
	fmt.Printf("Requirements file: %s\n", ws.RequirementsPath())
	return nil
}
