// Package notification renders the outbound messages sent to agents,
// customers and management. Rendering is pure: delivery lives in the shell.
package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QueueNotifications is the queue notification jobs are placed on.
const QueueNotifications = "notifications"

// Event names a lifecycle event that produces a message.
type Event string

const (
	EventEscalationCreated   Event = "escalation_created"
	EventEscalationConfirmed Event = "escalation_confirmed"
	EventEscalationEscalated Event = "escalation_escalated"
	EventEscalationResolved  Event = "escalation_resolved"
	EventAutoEscalated       Event = "auto_escalated"
	EventManagementAlert     Event = "management_alert"
)

// Audience is who a message is for.
type Audience string

const (
	AudienceAgent      Audience = "agent"
	AudienceCustomer   Audience = "customer"
	AudienceManagement Audience = "management"
)

// Job types on the notification queue, one per audience.
const (
	JobAgentAlert      = "agent_alert"
	JobCustomerUpdate  = "customer_update"
	JobManagementAlert = "management_alert"
)

// JobTypeFor returns the notification job type for an audience.
func JobTypeFor(a Audience) (string, error) {
	switch a {
	case AudienceAgent:
		return JobAgentAlert, nil
	case AudienceCustomer:
		return JobCustomerUpdate, nil
	case AudienceManagement:
		return JobManagementAlert, nil
	default:
		return "", fmt.Errorf("unknown audience %q", a)
	}
}

// AudienceFor is the inverse of JobTypeFor.
func AudienceFor(jobType string) (Audience, error) {
	switch jobType {
	case JobAgentAlert:
		return AudienceAgent, nil
	case JobCustomerUpdate:
		return AudienceCustomer, nil
	case JobManagementAlert:
		return AudienceManagement, nil
	default:
		return "", fmt.Errorf("unknown notification job type %q", jobType)
	}
}

// Channel is the delivery channel of a recipient.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// FormatRecipient prefixes an address with its channel, e.g. "whatsapp:+15550100".
// Unknown or empty channels fall back to WhatsApp.
func FormatRecipient(ch Channel, address string) string {
	if ch != ChannelSMS {
		ch = ChannelWhatsApp
	}
	if strings.HasPrefix(address, string(ch)+":") {
		return address
	}
	return string(ch) + ":" + address
}

// Data is the template input. It travels through the queue as a map.
type Data struct {
	ClaimID   string
	Level     int
	LevelName string
	AgentID   string
	Deadline  string // RFC3339, empty when no confirmation is required
	Reason    string
	Notes     string
}

// ToMap encodes d for a job payload.
func (d Data) ToMap() map[string]any {
	m := map[string]any{
		"claimId":   d.ClaimID,
		"level":     d.Level,
		"levelName": d.LevelName,
	}
	if d.AgentID != "" {
		m["agentId"] = d.AgentID
	}
	if d.Deadline != "" {
		m["deadline"] = d.Deadline
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	return m
}

// DataFromMap decodes a job payload. Numbers may arrive as float64 after JSON.
func DataFromMap(m map[string]any) Data {
	return Data{
		ClaimID:   str(m, "claimId"),
		Level:     intOf(m, "level"),
		LevelName: str(m, "levelName"),
		AgentID:   str(m, "agentId"),
		Deadline:  str(m, "deadline"),
		Reason:    str(m, "reason"),
		Notes:     str(m, "notes"),
	}
}

// Render produces the message text for an event and audience.
// Messages never contain internal error detail.
func Render(event Event, audience Audience, d Data) (string, error) {
	switch audience {
	case AudienceAgent:
		return renderAgent(event, d)
	case AudienceCustomer:
		return renderCustomer(event, d)
	case AudienceManagement:
		return renderManagement(event, d)
	default:
		return "", fmt.Errorf("unknown audience %q", audience)
	}
}

func renderAgent(event Event, d Data) (string, error) {
	var b strings.Builder
	switch event {
	case EventEscalationCreated:
		fmt.Fprintf(&b, "New escalation: claim %s assigned to you at %s (level %d).", d.ClaimID, d.LevelName, d.Level)
	case EventEscalationEscalated:
		fmt.Fprintf(&b, "Escalated to you: claim %s now at %s (level %d).", d.ClaimID, d.LevelName, d.Level)
	case EventAutoEscalated:
		fmt.Fprintf(&b, "URGENT: claim %s was auto-escalated to %s (level %d) after no confirmation.", d.ClaimID, d.LevelName, d.Level)
	default:
		return "", fmt.Errorf("no agent template for event %q", event)
	}
	if d.Reason != "" {
		fmt.Fprintf(&b, " Reason: %s.", d.Reason)
	}
	if deadline := formatDeadline(d.Deadline); deadline != "" {
		fmt.Fprintf(&b, " Please confirm by %s.", deadline)
	}
	return b.String(), nil
}

func renderCustomer(event Event, d Data) (string, error) {
	switch event {
	case EventEscalationCreated:
		return fmt.Sprintf("Your claim %s is being reviewed by our claims team. We will be in touch shortly.", d.ClaimID), nil
	case EventEscalationConfirmed:
		return fmt.Sprintf("Good news: an agent has picked up your claim %s and is reviewing it now.", d.ClaimID), nil
	case EventEscalationEscalated:
		return fmt.Sprintf("Your claim %s has been passed to a %s for a closer look.", d.ClaimID, strings.ToLower(d.LevelName)), nil
	case EventEscalationResolved:
		return fmt.Sprintf("The review of your claim %s is complete. Thank you for your patience.", d.ClaimID), nil
	default:
		return "", fmt.Errorf("no customer template for event %q", event)
	}
}

func renderManagement(event Event, d Data) (string, error) {
	if event != EventManagementAlert {
		return "", fmt.Errorf("no management template for event %q", event)
	}
	msg := fmt.Sprintf("MANAGEMENT ALERT: claim %s is at %s (level %d) with no confirmation and no higher level. Manual intervention required.", d.ClaimID, d.LevelName, d.Level)
	if deadline := formatDeadline(d.Deadline); deadline != "" {
		msg += " Deadline was " + deadline + "."
	}
	return msg, nil
}

func formatDeadline(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intOf(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}
