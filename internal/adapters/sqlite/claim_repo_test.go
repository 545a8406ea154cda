package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/claimdesk/internal/adapters/sqlite"
	"github.com/example/claimdesk/internal/ports/secondary"
)

func TestClaimRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewClaimRepository(db)
	ctx := context.Background()

	voice := 0.5
	record := &secondary.ClaimRecord{
		ID:              "CLM-100",
		UserID:          "USR-100",
		Type:            "medical",
		EstimatedAmount: 5000,
		DocumentCount:   1,
		VoiceConfidence: &voice,
		ContactPhone:    "+15550100",
		CreatedAt:       "2026-03-01T10:00:00.000Z",
		UpdatedAt:       "2026-03-01T10:00:00.000Z",
	}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "CLM-100")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.FraudScore != nil {
		t.Errorf("FraudScore = %v, want nil", *got.FraudScore)
	}
	if got.VoiceConfidence == nil || *got.VoiceConfidence != 0.5 {
		t.Errorf("VoiceConfidence = %v, want 0.5", got.VoiceConfidence)
	}
	if got.PreferredChannel != "whatsapp" {
		t.Errorf("PreferredChannel = %q, want whatsapp default", got.PreferredChannel)
	}
	if got.ContactPhone != "+15550100" {
		t.Errorf("ContactPhone = %q", got.ContactPhone)
	}
}

func TestClaimRepository_GetByID_NotFound(t *testing.T) {
	repo := sqlite.NewClaimRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "CLM-404")
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("GetByID err = %v, want ErrNotFound", err)
	}
}

func TestClaimRepository_UpdateFraudScore(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewClaimRepository(db)
	ctx := context.Background()
	seedClaim(t, db, "CLM-001", "", 1000)

	if err := repo.UpdateFraudScore(ctx, "CLM-001", 64.5); err != nil {
		t.Fatalf("UpdateFraudScore failed: %v", err)
	}
	got, _ := repo.GetByID(ctx, "CLM-001")
	if got.FraudScore == nil || *got.FraudScore != 64.5 {
		t.Errorf("FraudScore = %v, want 64.5", got.FraudScore)
	}

	if err := repo.UpdateFraudScore(ctx, "CLM-404", 1); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("UpdateFraudScore(missing) err = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateFraudScore(ctx, "CLM-001", 150); err == nil {
		t.Error("UpdateFraudScore(150) err = nil, want check constraint failure")
	}
}

func TestClaimRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewClaimRepository(db)
	ctx := context.Background()
	seedClaim(t, db, "CLM-001", "USR-A", 100)
	seedClaim(t, db, "CLM-002", "USR-A", 200)
	seedClaim(t, db, "CLM-003", "USR-B", 300)

	tests := []struct {
		name    string
		filters secondary.ClaimFilters
		want    int
	}{
		{"all", secondary.ClaimFilters{}, 3},
		{"by user", secondary.ClaimFilters{UserID: "USR-A"}, 2},
		{"limit", secondary.ClaimFilters{Limit: 1}, 1},
		{"no match", secondary.ClaimFilters{Type: "marine"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filters)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len(List) = %d, want %d", len(got), tt.want)
			}
		})
	}
}
