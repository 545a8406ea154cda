// Package messaging contains MessagingProvider implementations.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// LogProvider writes messages to the log instead of sending them.
// It keeps the sent messages for inspection in development and tests.
type LogProvider struct {
	logger *zap.Logger
	mu     sync.Mutex
	sent   []SentMessage
}

// SentMessage is a message recorded by LogProvider.
type SentMessage struct {
	ID        string
	Recipient string
	Body      string
}

// NewLogProvider creates a LogProvider.
func NewLogProvider(logger *zap.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

var _ secondary.MessagingProvider = (*LogProvider)(nil)

func (p *LogProvider) Name() string { return "log" }

// Send records the message. Recipients must carry a channel prefix.
func (p *LogProvider) Send(_ context.Context, recipient, message string) (*secondary.SendResult, error) {
	if !strings.HasPrefix(recipient, "whatsapp:") && !strings.HasPrefix(recipient, "sms:") {
		return &secondary.SendResult{Success: false, Error: fmt.Sprintf("recipient %q has no channel prefix", recipient)}, nil
	}

	id := "LOG-" + uuid.NewString()
	p.mu.Lock()
	p.sent = append(p.sent, SentMessage{ID: id, Recipient: recipient, Body: message})
	p.mu.Unlock()

	p.logger.Info("message sent",
		zap.String("provider", p.Name()),
		zap.String("message_id", id),
		zap.String("recipient", recipient),
		zap.String("body", message),
	)
	return &secondary.SendResult{Success: true, MessageID: id}, nil
}

// Sent returns a copy of the recorded messages.
func (p *LogProvider) Sent() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentMessage(nil), p.sent...)
}
