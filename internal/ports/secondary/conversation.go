package secondary

import (
	"context"
	"time"
)

// Conversation states.
const (
	ConversationActive        = "active"
	ConversationAwaitingAgent = "awaiting_agent"
)

// ConversationStore defines the secondary port for chatbot conversation context.
// Entries expire after a period of inactivity.
type ConversationStore interface {
	// Get returns the conversation for a user, or ErrNotFound.
	Get(ctx context.Context, userID string) (*Conversation, error)

	// Save stores the conversation and resets its expiry.
	Save(ctx context.Context, conv *Conversation) error

	// Touch resets the expiry without changing the content.
	Touch(ctx context.Context, userID string) error

	// Delete removes the conversation.
	Delete(ctx context.Context, userID string) error
}

// Conversation is the context kept between chatbot turns.
type Conversation struct {
	UserID    string            `json:"userId"`
	ClaimID   string            `json:"claimId,omitempty"`
	State     string            `json:"state"`
	Context   map[string]string `json:"context,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
