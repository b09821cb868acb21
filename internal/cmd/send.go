package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-dev/verity/internal/mailbox"
	"github.com/verity-dev/verity/internal/role"
)

var sendFlags struct {
	from  string
	to    string
	kind  string
	body  string
	reqs  []string
	tasks []string
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message to another role's mailbox",
	Long: `Append a message to the recipient role's mailbox. Messages are never
edited after send; the recipient archives them once processed. Types:
request, status, finding_notice, response, approval, rejection.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendFlags.from, "from", "", "sender role (required)")
	sendCmd.Flags().StringVar(&sendFlags.to, "to", "", "recipient role (required)")
	sendCmd.Flags().StringVar(&sendFlags.kind, "type", string(mailbox.MessageStatus), "message type")
	sendCmd.Flags().StringVar(&sendFlags.body, "body", "", "message body (required)")
	sendCmd.Flags().StringSliceVar(&sendFlags.reqs, "req", nil, "requirement reference (repeatable)")
	sendCmd.Flags().StringSliceVar(&sendFlags.tasks, "task", nil, "task reference (repeatable)")
	_ = sendCmd.MarkFlagRequired("from")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("body")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	from, err := role.Parse(sendFlags.from)
	if err != nil {
		return err
	}
	to, err := role.Parse(sendFlags.to)
	if err != nil {
		return err
	}

	ws, log, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()
	if err := ws.Check(); err != nil {
		return err
	}

	msg, err := ws.Mailbox().Send(mailbox.Message{
		From:         from,
		To:           to,
		Type:         mailbox.MessageType(sendFlags.kind),
		Requirements: sendFlags.reqs,
		Tasks:        sendFlags.tasks,
		Body:         sendFlags.body,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Message %s delivered to %s.\n", msg.ID, to)
	return nil
}
