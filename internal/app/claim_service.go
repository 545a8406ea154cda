package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/claimdesk/internal/core/notification"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// ClaimServiceImpl implements the ClaimService interface.
type ClaimServiceImpl struct {
	claimRepo secondary.ClaimRepository
	now       func() time.Time
}

// NewClaimService creates a new ClaimService with injected dependencies.
func NewClaimService(claimRepo secondary.ClaimRepository) *ClaimServiceImpl {
	return &ClaimServiceImpl{claimRepo: claimRepo, now: time.Now}
}

var _ primary.ClaimService = (*ClaimServiceImpl)(nil)

// AddClaim stores a new claim.
func (s *ClaimServiceImpl) AddClaim(ctx context.Context, req primary.AddClaimRequest) (*primary.Claim, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if req.Type == "" {
		return nil, fmt.Errorf("claim type is required")
	}
	if math.IsNaN(req.EstimatedAmount) || math.IsInf(req.EstimatedAmount, 0) || req.EstimatedAmount < 0 {
		return nil, fmt.Errorf("estimated amount must be a non-negative number")
	}
	if req.DocumentCount < 0 {
		return nil, fmt.Errorf("document count must not be negative")
	}
	if err := validateFraudScore(req.FraudScore); err != nil {
		return nil, err
	}
	if v := req.VoiceConfidence; v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
		return nil, fmt.Errorf("voice confidence must be between 0 and 1")
	}

	channel := req.PreferredChannel
	switch notification.Channel(channel) {
	case "":
		channel = string(notification.ChannelWhatsApp)
	case notification.ChannelWhatsApp, notification.ChannelSMS:
	default:
		return nil, fmt.Errorf("invalid channel: %s (must be 'whatsapp' or 'sms')", channel)
	}

	id := req.ID
	if id == "" {
		id = "CLM-" + strings.ToUpper(uuid.NewString()[:8])
	}

	now := secondary.FormatTime(s.now())
	record := &secondary.ClaimRecord{
		ID:               id,
		UserID:           req.UserID,
		Type:             req.Type,
		EstimatedAmount:  req.EstimatedAmount,
		DocumentCount:    req.DocumentCount,
		FraudScore:       req.FraudScore,
		VoiceConfidence:  req.VoiceConfidence,
		ContactPhone:     req.ContactPhone,
		PreferredChannel: channel,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.claimRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}
	return recordToClaim(record), nil
}

// GetClaim retrieves a claim by ID.
func (s *ClaimServiceImpl) GetClaim(ctx context.Context, claimID string) (*primary.Claim, error) {
	record, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return recordToClaim(record), nil
}

// ListClaims lists claims with optional filters.
func (s *ClaimServiceImpl) ListClaims(ctx context.Context, filters primary.ClaimFilters) ([]*primary.Claim, error) {
	records, err := s.claimRepo.List(ctx, secondary.ClaimFilters{
		UserID: filters.UserID,
		Type:   filters.Type,
		Limit:  filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	claims := make([]*primary.Claim, len(records))
	for i, r := range records {
		claims[i] = recordToClaim(r)
	}
	return claims, nil
}

// SetFraudScore records a fraud score computed elsewhere.
func (s *ClaimServiceImpl) SetFraudScore(ctx context.Context, claimID string, score float64) error {
	if err := validateFraudScore(&score); err != nil {
		return err
	}
	return s.claimRepo.UpdateFraudScore(ctx, claimID, score)
}

func validateFraudScore(score *float64) error {
	if score != nil && (math.IsNaN(*score) || *score < 0 || *score > 100) {
		return fmt.Errorf("fraud score must be between 0 and 100")
	}
	return nil
}

func recordToClaim(r *secondary.ClaimRecord) *primary.Claim {
	return &primary.Claim{
		ID:               r.ID,
		UserID:           r.UserID,
		Type:             r.Type,
		EstimatedAmount:  r.EstimatedAmount,
		DocumentCount:    r.DocumentCount,
		FraudScore:       r.FraudScore,
		VoiceConfidence:  r.VoiceConfidence,
		ContactPhone:     r.ContactPhone,
		PreferredChannel: r.PreferredChannel,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
