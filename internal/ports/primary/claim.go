package primary

import "context"

// ClaimService defines the primary port for claim operations.
type ClaimService interface {
	// AddClaim stores a new claim.
	AddClaim(ctx context.Context, req AddClaimRequest) (*Claim, error)

	// GetClaim retrieves a claim by ID.
	GetClaim(ctx context.Context, claimID string) (*Claim, error)

	// ListClaims lists claims with optional filters.
	ListClaims(ctx context.Context, filters ClaimFilters) ([]*Claim, error)

	// SetFraudScore records a fraud score computed elsewhere.
	SetFraudScore(ctx context.Context, claimID string, score float64) error
}

// AddClaimRequest contains parameters for creating a claim.
type AddClaimRequest struct {
	ID               string // Empty generates one
	UserID           string
	Type             string
	EstimatedAmount  float64
	DocumentCount    int
	FraudScore       *float64
	VoiceConfidence  *float64
	ContactPhone     string
	PreferredChannel string
}

// Claim represents a claim at the port boundary.
type Claim struct {
	ID               string
	UserID           string
	Type             string
	EstimatedAmount  float64
	DocumentCount    int
	FraudScore       *float64
	VoiceConfidence  *float64
	ContactPhone     string
	PreferredChannel string
	CreatedAt        string
	UpdatedAt        string
}

// ClaimFilters contains filter options for listing claims.
type ClaimFilters struct {
	UserID string
	Type   string
	Limit  int
}
