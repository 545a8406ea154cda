package escalation

import "fmt"

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// StartContext provides context for starting an escalation cycle.
type StartContext struct {
	ClaimID        string
	ExistingStatus Status // Empty when the claim has never been escalated
}

// ActionContext provides context for agent action guards.
type ActionContext struct {
	ClaimID string
	Status  Status
	Action  Action
}

// CanStartEscalation evaluates whether a new escalation cycle may begin.
// Rules:
// - No cycle may be awaiting confirmation
func CanStartEscalation(ctx StartContext) GuardResult {
	if ctx.ExistingStatus.AwaitingConfirmation() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("claim %s already has an open escalation (status: %s)", ctx.ClaimID, ctx.ExistingStatus),
		}
	}

	return GuardResult{Allowed: true}
}

// CanProcessAction evaluates whether an agent action applies to the current status.
// Rules:
// - Resolved escalations accept no further actions
// - Confirm only applies while awaiting confirmation
// - Escalate and resolve apply to pending, escalated and confirmed escalations
func CanProcessAction(ctx ActionContext) GuardResult {
	if ctx.Status == StatusResolved {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("escalation for claim %s is resolved", ctx.ClaimID),
		}
	}

	if ctx.Action == ActionConfirm && !ctx.Status.AwaitingConfirmation() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("can only confirm pending or escalated escalations (current status: %s)", ctx.Status),
		}
	}

	return GuardResult{Allowed: true}
}
