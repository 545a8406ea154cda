package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/wire"
)

var escalationCmd = &cobra.Command{
	Use:   "escalation",
	Short: "Manage claim escalations",
	Long:  "Open, act on and inspect the escalation of a claim through the agent ladder",
}

var escalationTriggerCmd = &cobra.Command{
	Use:   "trigger [claim-id]",
	Short: "Queue a create_escalation job for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.EscalationAdapter().Trigger(NewContext(), createRequest(cmd, args[0]))
	},
}

var escalationCreateCmd = &cobra.Command{
	Use:   "create [claim-id]",
	Short: "Open an escalation inline, bypassing the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.EscalationAdapter().Create(NewContext(), createRequest(cmd, args[0]))
	},
}

func actionCmd(action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " [claim-id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")
			queued, _ := cmd.Flags().GetBool("queue")

			req := primary.ProcessConfirmationRequest{
				ClaimID: args[0],
				AgentID: GetAgentID(),
				Action:  action,
				Notes:   notes,
			}
			if queued {
				return wire.EscalationAdapter().Queue(NewContext(), req)
			}
			return wire.EscalationAdapter().Act(NewContext(), req)
		},
	}
	cmd.Flags().StringP("notes", "n", "", "Notes recorded in the escalation history")
	cmd.Flags().Bool("queue", false, "Hand the action to the escalation workers instead of applying it now")
	return cmd
}

var escalationShowCmd = &cobra.Command{
	Use:   "show [claim-id]",
	Short: "Show the escalation of a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := wire.EscalationAdapter().Show(NewContext(), args[0])
		return err
	},
}

var escalationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		level, _ := cmd.Flags().GetInt("level")
		agent, _ := cmd.Flags().GetString("assigned")
		limit, _ := cmd.Flags().GetInt("limit")

		return wire.EscalationAdapter().List(NewContext(), primary.EscalationFilters{
			Status:        status,
			Level:         level,
			AssignedAgent: agent,
			Limit:         limit,
		})
	},
}

var escalationLevelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Show the configured escalation ladder",
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.EscalationAdapter().Levels()
	},
}

var escalationPriorityCmd = &cobra.Command{
	Use:   "priority [urgency] [amount]",
	Short: "Compute the priority score for an urgency and claim amount",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		wait, _ := cmd.Flags().GetFloat64("wait-hours")

		wire.EscalationAdapter().Priority(args[0], amount, wait)
		return nil
	},
}

var escalationSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Re-enqueue timeout checks for expired escalations",
	Long: `Scan stored escalations whose confirmation deadline has passed and
re-enqueue their timeout check. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.QueueAdapter().Sweep(NewContext())
	},
}

func createRequest(cmd *cobra.Command, claimID string) primary.CreateEscalationRequest {
	user, _ := cmd.Flags().GetString("user")
	reason, _ := cmd.Flags().GetString("reason")
	urgency, _ := cmd.Flags().GetString("urgency")
	return primary.CreateEscalationRequest{
		ClaimID: claimID,
		UserID:  user,
		Reason:  reason,
		Urgency: urgency,
	}
}

// EscalationCmd returns the escalation command
func EscalationCmd() *cobra.Command {
	for _, c := range []*cobra.Command{escalationTriggerCmd, escalationCreateCmd} {
		c.Flags().StringP("user", "u", "", "Customer user id")
		c.Flags().StringP("reason", "r", "", "Why the claim needs a human")
		c.Flags().String("urgency", "", "low, medium, high or critical (default medium)")
	}
	escalationListCmd.Flags().StringP("status", "s", "", "Filter by status (pending, confirmed, escalated, resolved)")
	escalationListCmd.Flags().IntP("level", "l", 0, "Filter by level")
	escalationListCmd.Flags().String("assigned", "", "Filter by assigned agent")
	escalationListCmd.Flags().Int("limit", 0, "Maximum rows")
	escalationPriorityCmd.Flags().Float64("wait-hours", 0, "Hours the customer has been waiting")

	escalationCmd.AddCommand(escalationTriggerCmd)
	escalationCmd.AddCommand(escalationCreateCmd)
	escalationCmd.AddCommand(actionCmd("confirm", "Confirm you are handling the claim"))
	escalationCmd.AddCommand(actionCmd("escalate", "Pass the claim to the next level"))
	escalationCmd.AddCommand(actionCmd("resolve", "Close the escalation"))
	escalationCmd.AddCommand(escalationShowCmd)
	escalationCmd.AddCommand(escalationListCmd)
	escalationCmd.AddCommand(escalationLevelsCmd)
	escalationCmd.AddCommand(escalationPriorityCmd)
	escalationCmd.AddCommand(escalationSweepCmd)

	return escalationCmd
}
