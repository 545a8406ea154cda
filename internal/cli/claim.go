package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/claimdesk/internal/db"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/wire"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Manage claims",
}

var claimAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a claim",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := primary.AddClaimRequest{}
		req.ID, _ = cmd.Flags().GetString("id")
		req.UserID, _ = cmd.Flags().GetString("user")
		req.Type, _ = cmd.Flags().GetString("type")
		req.EstimatedAmount, _ = cmd.Flags().GetFloat64("amount")
		req.DocumentCount, _ = cmd.Flags().GetInt("documents")
		req.ContactPhone, _ = cmd.Flags().GetString("phone")
		req.PreferredChannel, _ = cmd.Flags().GetString("channel")
		if cmd.Flags().Changed("fraud") {
			v, _ := cmd.Flags().GetFloat64("fraud")
			req.FraudScore = &v
		}
		if cmd.Flags().Changed("voice") {
			v, _ := cmd.Flags().GetFloat64("voice")
			req.VoiceConfidence = &v
		}

		return wire.ClaimAdapter().Add(NewContext(), req)
	},
}

var claimShowCmd = &cobra.Command{
	Use:   "show [claim-id]",
	Short: "Show a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wire.ClaimAdapter().Show(NewContext(), args[0])
	},
}

var claimListCmd = &cobra.Command{
	Use:   "list",
	Short: "List claims",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		claimType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		return wire.ClaimAdapter().List(NewContext(), primary.ClaimFilters{
			UserID: user,
			Type:   claimType,
			Limit:  limit,
		})
	},
}

var claimFraudCmd = &cobra.Command{
	Use:   "fraud [claim-id] [score]",
	Short: "Record a fraud score between 0 and 1",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[1], err)
		}
		return wire.ClaimAdapter().SetFraudScore(NewContext(), args[0], score)
	},
}

var claimEvaluateCmd = &cobra.Command{
	Use:   "evaluate [claim-id]",
	Short: "Run the escalation rules over a claim",
	Long: `Run the decision rules over a stored claim. When the claim needs a human,
a create_escalation job is queued.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fraud *float64
		if cmd.Flags().Changed("fraud") {
			v, _ := cmd.Flags().GetFloat64("fraud")
			fraud = &v
		}
		return wire.EscalationAdapter().Evaluate(NewContext(), args[0], fraud)
	},
}

var claimSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo claims covering every escalation rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		wire.Config()
		database, err := db.GetDB()
		if err != nil {
			return err
		}
		if err := db.SeedFixtures(database); err != nil {
			return err
		}
		fmt.Println("✓ Demo claims loaded")
		return nil
	},
}

// ClaimCmd returns the claim command
func ClaimCmd() *cobra.Command {
	claimAddCmd.Flags().String("id", "", "Claim id (generated when empty)")
	claimAddCmd.Flags().StringP("user", "u", "", "Customer user id")
	claimAddCmd.Flags().StringP("type", "t", "", "Claim type (e.g. accident, theft)")
	claimAddCmd.Flags().Float64P("amount", "a", 0, "Estimated amount")
	claimAddCmd.Flags().IntP("documents", "d", 0, "Documents provided")
	claimAddCmd.Flags().Float64("fraud", 0, "Fraud score between 0 and 1")
	claimAddCmd.Flags().Float64("voice", 0, "Voice transcription confidence between 0 and 1")
	claimAddCmd.Flags().String("phone", "", "Customer contact phone")
	claimAddCmd.Flags().String("channel", "", "whatsapp or sms (default whatsapp)")
	claimListCmd.Flags().StringP("user", "u", "", "Filter by user")
	claimListCmd.Flags().StringP("type", "t", "", "Filter by type")
	claimListCmd.Flags().Int("limit", 0, "Maximum rows")
	claimEvaluateCmd.Flags().Float64("fraud", 0, "Fraud score overriding the stored one")

	claimCmd.AddCommand(claimAddCmd)
	claimCmd.AddCommand(claimShowCmd)
	claimCmd.AddCommand(claimListCmd)
	claimCmd.AddCommand(claimFraudCmd)
	claimCmd.AddCommand(claimEvaluateCmd)
	claimCmd.AddCommand(claimSeedCmd)

	return claimCmd
}
