package secondary

import "context"

// MessagingProvider defines the secondary port for outbound WhatsApp/SMS delivery.
type MessagingProvider interface {
	// Name identifies the provider in logs.
	Name() string

	// Send delivers message to recipient ("whatsapp:+1..." or "sms:+1...").
	// A transport failure is returned as an error; a rejected message is
	// reported with Success false.
	Send(ctx context.Context, recipient, message string) (*SendResult, error)
}

// SendResult is the provider's answer to a send.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// AgentDirectory resolves agent ids to contact details.
type AgentDirectory interface {
	// Lookup returns the contact for an agent.
	Lookup(agentID string) (Contact, bool)

	// Management returns the contacts alerted when escalation runs out of levels.
	Management() []Contact
}

// Contact is an addressable recipient.
type Contact struct {
	ID      string
	Name    string
	Phone   string
	Channel string // "whatsapp" or "sms"
}
