package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/example/claimdesk/internal/ports/primary"
)

func init() {
	color.NoColor = true
}

// mockEscalationService implements primary.EscalationService for testing
type mockEscalationService struct {
	createFn  func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.EscalationStatus, error)
	processFn func(ctx context.Context, req primary.ProcessConfirmationRequest) (*primary.EscalationStatus, error)
	getFn     func(ctx context.Context, claimID string) (*primary.EscalationStatus, error)
	listFn    func(ctx context.Context, filters primary.EscalationFilters) ([]*primary.EscalationStatus, error)
	evalFn    func(ctx context.Context, claimID string, fraudScore *float64) (*primary.EvaluationResult, error)
	expired   bool

	lastTrigger primary.CreateEscalationRequest
	lastProcess primary.ProcessConfirmationRequest
	lastQueued  primary.ProcessConfirmationRequest
	queueErr    error
}

func (m *mockEscalationService) CreateEscalation(ctx context.Context, req primary.CreateEscalationRequest) (*primary.EscalationStatus, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &primary.EscalationStatus{ClaimID: req.ClaimID, CurrentLevel: 2, LevelName: "Tier-1 Agent"}, nil
}

func (m *mockEscalationService) ProcessConfirmation(ctx context.Context, req primary.ProcessConfirmationRequest) (*primary.EscalationStatus, error) {
	m.lastProcess = req
	if m.processFn != nil {
		return m.processFn(ctx, req)
	}
	return &primary.EscalationStatus{ClaimID: req.ClaimID, CurrentLevel: 2, Status: req.Action}, nil
}

func (m *mockEscalationService) GetEscalation(ctx context.Context, claimID string) (*primary.EscalationStatus, error) {
	if m.getFn != nil {
		return m.getFn(ctx, claimID)
	}
	return &primary.EscalationStatus{ClaimID: claimID}, nil
}

func (m *mockEscalationService) ListEscalations(ctx context.Context, filters primary.EscalationFilters) ([]*primary.EscalationStatus, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockEscalationService) IsConfirmationExpired(*primary.EscalationStatus) bool {
	return m.expired
}

func (m *mockEscalationService) GetNextEscalationLevel(int) *primary.EscalationLevel {
	return nil
}

func (m *mockEscalationService) CalculatePriorityScore(urgency string, amount, wait float64) int {
	if urgency == "critical" {
		return 100
	}
	return 50
}

func (m *mockEscalationService) Levels() []primary.EscalationLevel {
	return []primary.EscalationLevel{
		{Level: 1, Name: "Automated"},
		{Level: 2, Name: "Tier-1 Agent", MaxResponseHours: 2, ConfirmationRequired: true},
	}
}

func (m *mockEscalationService) EvaluateClaim(ctx context.Context, claimID string, fraudScore *float64) (*primary.EvaluationResult, error) {
	if m.evalFn != nil {
		return m.evalFn(ctx, claimID, fraudScore)
	}
	return &primary.EvaluationResult{ClaimID: claimID}, nil
}

func (m *mockEscalationService) TriggerEscalation(ctx context.Context, req primary.CreateEscalationRequest) (string, error) {
	m.lastTrigger = req
	return "job-1", nil
}

func (m *mockEscalationService) QueueConfirmation(ctx context.Context, req primary.ProcessConfirmationRequest) (string, error) {
	if m.queueErr != nil {
		return "", m.queueErr
	}
	m.lastQueued = req
	return "job-2", nil
}

func TestEscalationAdapter_Create(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	deadline := now.Add(2 * time.Hour)
	mock := &mockEscalationService{
		createFn: func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.EscalationStatus, error) {
			return &primary.EscalationStatus{
				ClaimID:              req.ClaimID,
				CurrentLevel:         2,
				LevelName:            "Tier-1 Agent",
				AssignedAgent:        "agent-a",
				ConfirmationDeadline: &deadline,
			}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewEscalationAdapter(mock, &out)
	adapter.now = func() time.Time { return now }

	if err := adapter.Create(context.Background(), primary.CreateEscalationRequest{ClaimID: "CLM-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := out.String()
	for _, want := range []string{"✓ Escalated claim CLM-1 to level 2 (Tier-1 Agent)", "agent:    agent-a", "(in 2h0m0s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestEscalationAdapter_CreateError(t *testing.T) {
	mock := &mockEscalationService{
		createFn: func(ctx context.Context, req primary.CreateEscalationRequest) (*primary.EscalationStatus, error) {
			return nil, errors.New("escalation already open")
		},
	}
	var out bytes.Buffer
	adapter := NewEscalationAdapter(mock, &out)

	err := adapter.Create(context.Background(), primary.CreateEscalationRequest{ClaimID: "CLM-1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if out.Len() != 0 {
		t.Errorf("expected no output on error, got: %s", out.String())
	}
}

func TestEscalationAdapter_Queue(t *testing.T) {
	tests := []struct {
		name     string
		queueErr error
		wantErr  bool
		wantOut  string
	}{
		{name: "queued", wantOut: "Queued escalate for claim CLM-3 (job job-2)"},
		{name: "broker down", queueErr: errors.New("redis: connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockEscalationService{queueErr: tt.queueErr}
			var out bytes.Buffer
			adapter := NewEscalationAdapter(mock, &out)

			req := primary.ProcessConfirmationRequest{ClaimID: "CLM-3", AgentID: "agent-a", Action: "escalate"}
			err := adapter.Queue(context.Background(), req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Queue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if mock.lastQueued != req {
				t.Errorf("expected request %+v, got %+v", req, mock.lastQueued)
			}
			if mock.lastProcess != (primary.ProcessConfirmationRequest{}) {
				t.Error("queued action was applied inline")
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("expected %q in output, got: %s", tt.wantOut, out.String())
			}
		})
	}
}

func TestEscalationAdapter_Trigger(t *testing.T) {
	mock := &mockEscalationService{}
	var out bytes.Buffer
	adapter := NewEscalationAdapter(mock, &out)

	req := primary.CreateEscalationRequest{ClaimID: "CLM-2", Urgency: "high", Reason: "customer asked"}
	if err := adapter.Trigger(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastTrigger != req {
		t.Errorf("expected request %+v, got %+v", req, mock.lastTrigger)
	}
	if !strings.Contains(out.String(), "job job-1") {
		t.Errorf("expected job id in output, got: %s", out.String())
	}
}

func TestEscalationAdapter_Act(t *testing.T) {
	tests := []struct {
		action string
		want   string
	}{
		{action: "confirm", want: "✓ Claim CLM-3 confirmed at level 2"},
		{action: "escalate", want: "✓ Claim CLM-3 escalated to level 2"},
		{action: "resolve", want: "✓ Claim CLM-3 resolved"},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			mock := &mockEscalationService{}
			var out bytes.Buffer
			adapter := NewEscalationAdapter(mock, &out)

			err := adapter.Act(context.Background(), primary.ProcessConfirmationRequest{
				ClaimID: "CLM-3",
				AgentID: "agent-a",
				Action:  tt.action,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mock.lastProcess.Action != tt.action {
				t.Errorf("expected action %s, got %s", tt.action, mock.lastProcess.Action)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, out.String())
			}
		})
	}
}

func TestEscalationAdapter_Show(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	deadline := created.Add(time.Hour)
	mock := &mockEscalationService{
		expired: true,
		getFn: func(ctx context.Context, claimID string) (*primary.EscalationStatus, error) {
			return &primary.EscalationStatus{
				ClaimID:                claimID,
				CurrentLevel:           3,
				LevelName:              "Senior Agent",
				Status:                 primary.EscalationStatusEscalated,
				AssignedAgent:          "senior-a",
				EstimatedResponseHours: 1,
				ConfirmationDeadline:   &deadline,
				ConfirmationRequired:   true,
				History: []primary.EscalationHistoryEntry{
					{Level: 2, Timestamp: created, Reason: "High-value claim", Agent: "agent-a"},
					{Level: 3, Timestamp: deadline, Reason: "Escalation timeout - no confirmation received"},
				},
			}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewEscalationAdapter(mock, &out)

	status, err := adapter.Show(context.Background(), "CLM-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.CurrentLevel != 3 {
		t.Errorf("expected level 3, got %d", status.CurrentLevel)
	}

	output := out.String()
	for _, want := range []string{
		"Level:    3 (Senior Agent)",
		"Status:   escalated",
		"(expired)",
		"Awaiting: agent confirmation",
		"agent-a",
		"system",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestEscalationAdapter_List(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		adapter := NewEscalationAdapter(&mockEscalationService{}, &out)

		if err := adapter.List(context.Background(), primary.EscalationFilters{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No escalations found") {
			t.Errorf("expected empty message, got: %s", out.String())
		}
	})

	t.Run("rows", func(t *testing.T) {
		var gotFilters primary.EscalationFilters
		mock := &mockEscalationService{
			listFn: func(ctx context.Context, filters primary.EscalationFilters) ([]*primary.EscalationStatus, error) {
				gotFilters = filters
				return []*primary.EscalationStatus{
					{ClaimID: "CLM-5", CurrentLevel: 2, LevelName: "Tier-1 Agent", Status: "pending", AssignedAgent: "agent-b"},
					{ClaimID: "CLM-6", CurrentLevel: 1, LevelName: "Automated", Status: "pending"},
				}, nil
			},
		}
		var out bytes.Buffer
		adapter := NewEscalationAdapter(mock, &out)

		if err := adapter.List(context.Background(), primary.EscalationFilters{Status: "pending"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotFilters.Status != "pending" {
			t.Errorf("expected status filter pending, got %q", gotFilters.Status)
		}
		output := out.String()
		if !strings.Contains(output, "CLM-5") || !strings.Contains(output, "agent-b") || !strings.Contains(output, "CLM-6") {
			t.Errorf("missing rows in output: %s", output)
		}
	})
}

func TestEscalationAdapter_Evaluate(t *testing.T) {
	mock := &mockEscalationService{
		evalFn: func(ctx context.Context, claimID string, fraudScore *float64) (*primary.EvaluationResult, error) {
			return &primary.EvaluationResult{
				ClaimID:        claimID,
				ShouldEscalate: true,
				Level:          3,
				Reason:         "High-value claim",
				Rule:           "high_value",
				JobID:          "create_escalation:CLM-7",
			}, nil
		},
	}
	var out bytes.Buffer
	adapter := NewEscalationAdapter(mock, &out)

	if err := adapter.Evaluate(context.Background(), "CLM-7", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "Escalating claim CLM-7 to level 3") || !strings.Contains(output, "create_escalation:CLM-7") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestEscalationAdapter_LevelsAndPriority(t *testing.T) {
	var out bytes.Buffer
	adapter := NewEscalationAdapter(&mockEscalationService{}, &out)

	if err := adapter.Levels(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adapter.Priority("critical", 0, 0)

	output := out.String()
	if !strings.Contains(output, "Tier-1 Agent") || !strings.Contains(output, "2h") {
		t.Errorf("expected level table, got: %s", output)
	}
	if !strings.HasSuffix(output, "100\n") {
		t.Errorf("expected priority score at end, got: %s", output)
	}
}
