package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/claimdesk/internal/ports/primary"
)

// ClaimAdapter is a thin adapter that translates CLI operations to ClaimService calls.
type ClaimAdapter struct {
	service primary.ClaimService
	out     io.Writer
}

// NewClaimAdapter creates a new ClaimAdapter with the given service.
func NewClaimAdapter(service primary.ClaimService, out io.Writer) *ClaimAdapter {
	return &ClaimAdapter{service: service, out: out}
}

// Add stores a new claim.
func (a *ClaimAdapter) Add(ctx context.Context, req primary.AddClaimRequest) error {
	claim, err := a.service.AddClaim(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Added claim %s (%s, %.2f)\n", claim.ID, claim.Type, claim.EstimatedAmount)
	return nil
}

// Show displays one claim.
func (a *ClaimAdapter) Show(ctx context.Context, claimID string) error {
	claim, err := a.service.GetClaim(ctx, claimID)
	if err != nil {
		return fmt.Errorf("failed to get claim: %w", err)
	}

	fmt.Fprintf(a.out, "\nClaim:     %s\n", claim.ID)
	fmt.Fprintf(a.out, "User:      %s\n", claim.UserID)
	fmt.Fprintf(a.out, "Type:      %s\n", claim.Type)
	fmt.Fprintf(a.out, "Amount:    %.2f\n", claim.EstimatedAmount)
	fmt.Fprintf(a.out, "Documents: %d\n", claim.DocumentCount)
	if claim.FraudScore != nil {
		fmt.Fprintf(a.out, "Fraud:     %.2f\n", *claim.FraudScore)
	}
	if claim.VoiceConfidence != nil {
		fmt.Fprintf(a.out, "Voice:     %.2f\n", *claim.VoiceConfidence)
	}
	if claim.ContactPhone != "" {
		fmt.Fprintf(a.out, "Contact:   %s (%s)\n", claim.ContactPhone, claim.PreferredChannel)
	}
	fmt.Fprintf(a.out, "Created:   %s\n\n", claim.CreatedAt)
	return nil
}

// List lists claims.
func (a *ClaimAdapter) List(ctx context.Context, filters primary.ClaimFilters) error {
	claims, err := a.service.ListClaims(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list claims: %w", err)
	}

	if len(claims) == 0 {
		fmt.Fprintln(a.out, "No claims found")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tTYPE\tAMOUNT\tDOCS")
	for _, c := range claims {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\n", c.ID, c.UserID, c.Type, c.EstimatedAmount, c.DocumentCount)
	}
	return w.Flush()
}

// SetFraudScore records a fraud score.
func (a *ClaimAdapter) SetFraudScore(ctx context.Context, claimID string, score float64) error {
	if err := a.service.SetFraudScore(ctx, claimID, score); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Claim %s fraud score set to %.2f\n", claimID, score)
	return nil
}
