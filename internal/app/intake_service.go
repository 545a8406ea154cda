package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/escalation"
	"github.com/example/claimdesk/internal/ports/primary"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// IntakeServiceImpl implements the IntakeService interface.
type IntakeServiceImpl struct {
	conversations secondary.ConversationStore
	escalations   primary.EscalationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewIntakeService creates a new IntakeService with injected dependencies.
func NewIntakeService(conversations secondary.ConversationStore, escalations primary.EscalationService, logger *zap.Logger) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		conversations: conversations,
		escalations:   escalations,
		logger:        logger,
		now:           time.Now,
	}
}

var _ primary.IntakeService = (*IntakeServiceImpl)(nil)

// RequestAgent hands a conversation to a human by scheduling an escalation.
// The claim id falls back to the one remembered in the conversation.
func (s *IntakeServiceImpl) RequestAgent(ctx context.Context, req primary.RequestAgentRequest) (*primary.AgentRequestResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	conv, err := s.conversation(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	claimID := req.ClaimID
	if claimID == "" {
		claimID = conv.ClaimID
	}
	if claimID == "" {
		return nil, fmt.Errorf("no claim in conversation for user %s", req.UserID)
	}

	reason := req.Reason
	if reason == "" {
		reason = "customer requested a human agent"
	}

	jobID, err := s.escalations.TriggerEscalation(ctx, primary.CreateEscalationRequest{
		ClaimID: claimID,
		UserID:  req.UserID,
		Reason:  reason,
		Urgency: req.Urgency,
	})
	if err != nil {
		return nil, err
	}

	conv.ClaimID = claimID
	conv.State = secondary.ConversationAwaitingAgent
	conv.UpdatedAt = s.now()
	if err := s.conversations.Save(ctx, conv); err != nil {
		// The escalation is already scheduled; losing chat context is recoverable
		s.logger.Warn("failed to save conversation",
			zap.String("user_id", req.UserID),
			zap.String("claim_id", claimID),
			zap.Error(err),
		)
	}

	return &primary.AgentRequestResult{ClaimID: claimID, JobID: jobID, State: conv.State}, nil
}

// RecordTurn stores conversation context between chatbot turns.
func (s *IntakeServiceImpl) RecordTurn(ctx context.Context, userID, claimID string, values map[string]string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if claimID == "" && len(values) == 0 {
		err := s.conversations.Touch(ctx, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, secondary.ErrNotFound) {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}
	}

	conv, err := s.conversation(ctx, userID)
	if err != nil {
		return err
	}
	if claimID != "" {
		conv.ClaimID = claimID
	}
	if len(values) > 0 && conv.Context == nil {
		conv.Context = make(map[string]string, len(values))
	}
	for k, v := range values {
		conv.Context[k] = v
	}
	conv.UpdatedAt = s.now()

	if err := s.conversations.Save(ctx, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// CloseConversation drops the stored conversation of a user.
func (s *IntakeServiceImpl) CloseConversation(ctx context.Context, userID string, force bool) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	conv, err := s.conversations.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	if !force && conv.State == secondary.ConversationAwaitingAgent {
		status, err := s.escalations.GetEscalation(ctx, conv.ClaimID)
		switch {
		case errors.Is(err, secondary.ErrNotFound):
			return fmt.Errorf("%w: escalation for claim %s has not been created yet", escalation.ErrEscalationOpen, conv.ClaimID)
		case err != nil:
			return err
		case status.Status != string(escalation.StatusResolved):
			return fmt.Errorf("%w: escalation for claim %s is %s", escalation.ErrEscalationOpen, conv.ClaimID, status.Status)
		}
	}

	if err := s.conversations.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.logger.Info("conversation closed",
		zap.String("user_id", userID),
		zap.String("claim_id", conv.ClaimID),
		zap.String("state", conv.State),
	)
	return nil
}

// conversation loads the user's conversation or starts a new one.
func (s *IntakeServiceImpl) conversation(ctx context.Context, userID string) (*secondary.Conversation, error) {
	conv, err := s.conversations.Get(ctx, userID)
	if errors.Is(err, secondary.ErrNotFound) {
		return &secondary.Conversation{UserID: userID, State: secondary.ConversationActive}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}
