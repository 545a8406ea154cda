package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/wire"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Chatbot-side operations",
}

var intakeRequestAgentCmd = &cobra.Command{
	Use:   "request-agent [user-id]",
	Short: "Hand a customer conversation to a human agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claimID, _ := cmd.Flags().GetString("claim")
		reason, _ := cmd.Flags().GetString("reason")
		urgency, _ := cmd.Flags().GetString("urgency")

		res, err := wire.IntakeService().RequestAgent(NewContext(), primary.RequestAgentRequest{
			UserID:  args[0],
			ClaimID: claimID,
			Reason:  reason,
			Urgency: urgency,
		})
		if err != nil {
			return err
		}

		fmt.Printf("✓ Agent requested for claim %s (job %s)\n", res.ClaimID, res.JobID)
		return nil
	},
}

var intakeTurnCmd = &cobra.Command{
	Use:   "turn [user-id] [key=value...]",
	Short: "Record conversation context for a user",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claimID, _ := cmd.Flags().GetString("claim")

		values := make(map[string]string, len(args)-1)
		for _, kv := range args[1:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", kv)
			}
			values[k] = v
		}

		if err := wire.IntakeService().RecordTurn(NewContext(), args[0], claimID, values); err != nil {
			return err
		}
		fmt.Printf("✓ Conversation for %s updated\n", args[0])
		return nil
	},
}

var intakeCloseCmd = &cobra.Command{
	Use:   "close [user-id]",
	Short: "Drop a customer's conversation context",
	Long: `Drop the stored conversation of a user.

A conversation handed to an agent is kept until the escalation of its claim
is resolved; --force drops it anyway.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if err := wire.IntakeService().CloseConversation(NewContext(), args[0], force); err != nil {
			return err
		}
		fmt.Printf("✓ Conversation for %s closed\n", args[0])
		return nil
	},
}

// IntakeCmd returns the intake command
func IntakeCmd() *cobra.Command {
	intakeRequestAgentCmd.Flags().StringP("claim", "c", "", "Claim id (default: the claim in the conversation)")
	intakeRequestAgentCmd.Flags().StringP("reason", "r", "", "Reason shown to the agent")
	intakeRequestAgentCmd.Flags().String("urgency", "", "low, medium, high or critical")
	intakeTurnCmd.Flags().StringP("claim", "c", "", "Claim the conversation is about")
	intakeCloseCmd.Flags().BoolP("force", "f", false, "Close even if the escalation is still open")

	intakeCmd.AddCommand(intakeRequestAgentCmd)
	intakeCmd.AddCommand(intakeTurnCmd)
	intakeCmd.AddCommand(intakeCloseCmd)
	return intakeCmd
}
