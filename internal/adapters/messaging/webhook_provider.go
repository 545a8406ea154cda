package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/claimdesk/internal/ports/secondary"
)

// WebhookConfig configures a WebhookProvider.
type WebhookConfig struct {
	URL     string
	Token   string // Sent as a bearer token when set
	Timeout time.Duration
}

// WebhookProvider posts messages as JSON to a messaging gateway.
//
// Request:  {"to": "whatsapp:+1...", "body": "..."}
// Response: {"sid": "...", "status": "queued"} or {"error": "..."}
type WebhookProvider struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhookProvider creates a WebhookProvider.
func NewWebhookProvider(cfg WebhookConfig) *WebhookProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebhookProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

var _ secondary.MessagingProvider = (*WebhookProvider)(nil)

func (p *WebhookProvider) Name() string { return "webhook" }

type webhookRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type webhookResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Send posts the message. 5xx responses and transport failures are errors so
// the job is retried; 4xx responses are reported as unsuccessful sends.
func (p *WebhookProvider) Send(ctx context.Context, recipient, message string) (*secondary.SendResult, error) {
	body, err := json.Marshal(webhookRequest{To: recipient, Body: message})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach messaging gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var out webhookResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("messaging gateway returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &secondary.SendResult{Success: false, Error: msg}, nil
	}

	return &secondary.SendResult{Success: true, MessageID: out.SID}, nil
}
