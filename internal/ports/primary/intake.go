package primary

import "context"

// IntakeService defines the primary port for the chatbot side of intake.
type IntakeService interface {
	// RequestAgent hands a conversation to a human by scheduling an escalation.
	RequestAgent(ctx context.Context, req RequestAgentRequest) (*AgentRequestResult, error)

	// RecordTurn stores conversation context between chatbot turns.
	// A turn with no claim and no values only keeps the conversation alive.
	RecordTurn(ctx context.Context, userID, claimID string, values map[string]string) error

	// CloseConversation drops the stored conversation. A conversation handed
	// to an agent is only dropped once its escalation is resolved, unless force is set.
	CloseConversation(ctx context.Context, userID string, force bool) error
}

// RequestAgentRequest contains parameters for asking for a human agent.
type RequestAgentRequest struct {
	UserID  string
	ClaimID string
	Reason  string
	Urgency string
}

// AgentRequestResult reports what RequestAgent scheduled.
type AgentRequestResult struct {
	ClaimID string
	JobID   string
	State   string
}
