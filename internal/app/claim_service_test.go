package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

func TestClaimService_AddClaim(t *testing.T) {
	tests := []struct {
		name    string
		req     primary.AddClaimRequest
		wantErr string
	}{
		{name: "valid", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", EstimatedAmount: 1200, DocumentCount: 2}},
		{name: "missing user", req: primary.AddClaimRequest{Type: "auto"}, wantErr: "user id"},
		{name: "missing type", req: primary.AddClaimRequest{UserID: "USR-1"}, wantErr: "claim type"},
		{name: "negative amount", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", EstimatedAmount: -1}, wantErr: "estimated amount"},
		{name: "negative docs", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", DocumentCount: -1}, wantErr: "document count"},
		{name: "fraud out of range", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", FraudScore: ptr(101.0)}, wantErr: "fraud score"},
		{name: "voice out of range", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", VoiceConfidence: ptr(1.5)}, wantErr: "voice confidence"},
		{name: "bad channel", req: primary.AddClaimRequest{UserID: "USR-1", Type: "auto", PreferredChannel: "email"}, wantErr: "invalid channel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockClaimRepository()
			service := NewClaimService(repo)

			claim, err := service.AddClaim(context.Background(), tt.req)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("AddClaim() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddClaim() error = %v", err)
			}
			if !strings.HasPrefix(claim.ID, "CLM-") {
				t.Errorf("generated ID = %q", claim.ID)
			}
			if claim.PreferredChannel != "whatsapp" {
				t.Errorf("PreferredChannel = %q, want whatsapp default", claim.PreferredChannel)
			}
			if _, ok := repo.claims[claim.ID]; !ok {
				t.Error("claim was not stored")
			}
		})
	}
}

func TestClaimService_SetFraudScore(t *testing.T) {
	repo := newMockClaimRepository()
	service := NewClaimService(repo)
	ctx := context.Background()

	claim, err := service.AddClaim(ctx, primary.AddClaimRequest{ID: "CLM-9", UserID: "USR-1", Type: "auto"})
	if err != nil {
		t.Fatalf("AddClaim() error = %v", err)
	}

	if err := service.SetFraudScore(ctx, claim.ID, 42); err != nil {
		t.Fatalf("SetFraudScore() error = %v", err)
	}
	got, _ := service.GetClaim(ctx, claim.ID)
	if got.FraudScore == nil || *got.FraudScore != 42 {
		t.Errorf("FraudScore = %v, want 42", got.FraudScore)
	}

	if err := service.SetFraudScore(ctx, claim.ID, -3); err == nil {
		t.Error("negative score accepted")
	}
	if err := service.SetFraudScore(ctx, "CLM-404", 10); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("unknown claim err = %v, want ErrNotFound", err)
	}
}

func TestClaimService_ListClaims(t *testing.T) {
	repo := newMockClaimRepository()
	service := NewClaimService(repo)
	ctx := context.Background()

	for _, req := range []primary.AddClaimRequest{
		{ID: "CLM-1", UserID: "USR-1", Type: "auto"},
		{ID: "CLM-2", UserID: "USR-2", Type: "auto"},
		{ID: "CLM-3", UserID: "USR-1", Type: "medical"},
	} {
		if _, err := service.AddClaim(ctx, req); err != nil {
			t.Fatalf("AddClaim() error = %v", err)
		}
	}

	claims, err := service.ListClaims(ctx, primary.ClaimFilters{UserID: "USR-1"})
	if err != nil {
		t.Fatalf("ListClaims() error = %v", err)
	}
	if len(claims) != 2 || claims[0].ID != "CLM-1" || claims[1].ID != "CLM-3" {
		t.Errorf("ListClaims(USR-1) = %+v", claims)
	}
}
