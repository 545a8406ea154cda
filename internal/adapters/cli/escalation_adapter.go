// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/example/claimdesk/internal/ports/primary"
)

const timeFormat = "2006-01-02 15:04:05 MST"

// EscalationAdapter is a thin adapter that translates CLI operations to EscalationService calls.
type EscalationAdapter struct {
	service primary.EscalationService
	out     io.Writer
	now     func() time.Time
}

// NewEscalationAdapter creates a new EscalationAdapter with the given service.
func NewEscalationAdapter(service primary.EscalationService, out io.Writer) *EscalationAdapter {
	return &EscalationAdapter{
		service: service,
		out:     out,
		now:     time.Now,
	}
}

// Create opens an escalation inline, bypassing the queue.
func (a *EscalationAdapter) Create(ctx context.Context, req primary.CreateEscalationRequest) error {
	status, err := a.service.CreateEscalation(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Escalated claim %s to level %d (%s)\n", status.ClaimID, status.CurrentLevel, status.LevelName)
	a.printAssignment(status)
	return nil
}

// Trigger schedules a create_escalation job.
func (a *EscalationAdapter) Trigger(ctx context.Context, req primary.CreateEscalationRequest) error {
	jobID, err := a.service.TriggerEscalation(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Queued escalation for claim %s (job %s)\n", req.ClaimID, jobID)
	return nil
}

// Act applies a confirm, escalate or resolve action.
func (a *EscalationAdapter) Act(ctx context.Context, req primary.ProcessConfirmationRequest) error {
	status, err := a.service.ProcessConfirmation(ctx, req)
	if err != nil {
		return err
	}

	switch req.Action {
	case "confirm":
		fmt.Fprintf(a.out, "✓ Claim %s confirmed at level %d\n", status.ClaimID, status.CurrentLevel)
	case "escalate":
		fmt.Fprintf(a.out, "✓ Claim %s escalated to level %d (%s)\n", status.ClaimID, status.CurrentLevel, status.LevelName)
		a.printAssignment(status)
	case "resolve":
		fmt.Fprintf(a.out, "✓ Claim %s resolved\n", status.ClaimID)
	default:
		fmt.Fprintf(a.out, "✓ Claim %s is %s\n", status.ClaimID, status.Status)
	}
	return nil
}

// Queue schedules an agent action for the escalation workers.
func (a *EscalationAdapter) Queue(ctx context.Context, req primary.ProcessConfirmationRequest) error {
	jobID, err := a.service.QueueConfirmation(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Queued %s for claim %s (job %s)\n", req.Action, req.ClaimID, jobID)
	return nil
}

// Show displays one escalation with its history.
func (a *EscalationAdapter) Show(ctx context.Context, claimID string) (*primary.EscalationStatus, error) {
	status, err := a.service.GetEscalation(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}

	fmt.Fprintf(a.out, "\nClaim:    %s\n", status.ClaimID)
	if status.UserID != "" {
		fmt.Fprintf(a.out, "User:     %s\n", status.UserID)
	}
	fmt.Fprintf(a.out, "Level:    %d (%s)\n", status.CurrentLevel, status.LevelName)
	fmt.Fprintf(a.out, "Status:   %s\n", colorStatus(status.Status))
	if status.Urgency != "" {
		fmt.Fprintf(a.out, "Urgency:  %s\n", status.Urgency)
	}
	if status.AssignedAgent != "" {
		fmt.Fprintf(a.out, "Agent:    %s\n", status.AssignedAgent)
	}
	if status.Reason != "" {
		fmt.Fprintf(a.out, "Reason:   %s\n", status.Reason)
	}
	fmt.Fprintf(a.out, "Response: %gh\n", status.EstimatedResponseHours)
	if status.ConfirmationDeadline != nil {
		deadline := status.ConfirmationDeadline.Format(timeFormat)
		if a.service.IsConfirmationExpired(status) && status.ConfirmationRequired {
			deadline += color.New(color.FgRed).Sprint(" (expired)")
		}
		fmt.Fprintf(a.out, "Deadline: %s\n", deadline)
	}
	if status.ConfirmationRequired {
		fmt.Fprintln(a.out, "Awaiting: agent confirmation")
	}

	if len(status.History) > 0 {
		fmt.Fprintln(a.out, "\nHistory:")
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, h := range status.History {
			agent := h.Agent
			if agent == "" {
				agent = "system"
			}
			fmt.Fprintf(w, "  %s\tL%d\t%s\t%s\n", h.Timestamp.Format(timeFormat), h.Level, agent, h.Reason)
		}
		w.Flush()
	}
	fmt.Fprintln(a.out)

	return status, nil
}

// List lists escalations with optional filters.
func (a *EscalationAdapter) List(ctx context.Context, filters primary.EscalationFilters) error {
	escalations, err := a.service.ListEscalations(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list escalations: %w", err)
	}

	if len(escalations) == 0 {
		fmt.Fprintln(a.out, "No escalations found")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLAIM\tLEVEL\tSTATUS\tAGENT\tDEADLINE")
	for _, e := range escalations {
		agent := e.AssignedAgent
		if agent == "" {
			agent = "-"
		}
		deadline := "-"
		if e.ConfirmationDeadline != nil {
			deadline = e.ConfirmationDeadline.Format(timeFormat)
		}
		fmt.Fprintf(w, "%s\tL%d %s\t%s\t%s\t%s\n", e.ClaimID, e.CurrentLevel, e.LevelName, e.Status, agent, deadline)
	}
	return w.Flush()
}

// Levels prints the configured ladder.
func (a *EscalationAdapter) Levels() error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tNAME\tSLA\tCONFIRM\tDESCRIPTION")
	for _, l := range a.service.Levels() {
		confirm := "no"
		if l.ConfirmationRequired {
			confirm = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%gh\t%s\t%s\n", l.Level, l.Name, l.MaxResponseHours, confirm, l.Description)
	}
	return w.Flush()
}

// Evaluate runs the decision engine over a stored claim.
func (a *EscalationAdapter) Evaluate(ctx context.Context, claimID string, fraudScore *float64) error {
	res, err := a.service.EvaluateClaim(ctx, claimID, fraudScore)
	if err != nil {
		return err
	}

	if !res.ShouldEscalate {
		fmt.Fprintf(a.out, "Claim %s stays automated: %s\n", res.ClaimID, res.Reason)
		return nil
	}
	fmt.Fprintf(a.out, "%s claim %s to level %d: %s (rule %s)\n",
		color.New(color.FgYellow).Sprint("Escalating"), res.ClaimID, res.Level, res.Reason, res.Rule)
	if res.JobID != "" {
		fmt.Fprintf(a.out, "  job: %s\n", res.JobID)
	}
	return nil
}

// Priority prints the priority score for a hypothetical request.
func (a *EscalationAdapter) Priority(urgency string, amount, waitHours float64) {
	fmt.Fprintf(a.out, "%d\n", a.service.CalculatePriorityScore(urgency, amount, waitHours))
}

func (a *EscalationAdapter) printAssignment(status *primary.EscalationStatus) {
	if status.AssignedAgent != "" {
		fmt.Fprintf(a.out, "  agent:    %s\n", status.AssignedAgent)
	}
	if status.ConfirmationDeadline != nil {
		fmt.Fprintf(a.out, "  deadline: %s (in %s)\n",
			status.ConfirmationDeadline.Format(timeFormat),
			status.ConfirmationDeadline.Sub(a.now()).Round(time.Minute))
	}
}

func colorStatus(status string) string {
	switch status {
	case primary.EscalationStatusPending, primary.EscalationStatusEscalated:
		return color.New(color.FgYellow).Sprint(status)
	case primary.EscalationStatusConfirmed:
		return color.New(color.FgCyan).Sprint(status)
	case primary.EscalationStatusResolved:
		return color.New(color.FgGreen).Sprint(status)
	}
	return status
}
