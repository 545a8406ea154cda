package escalation

import (
	"fmt"
	"time"
)

// Queue and job names used by the escalation lifecycle.
const (
	QueueEscalations = "escalations"

	JobCreateEscalation    = "create_escalation"
	JobCheckTimeout        = "check_timeout"
	JobProcessConfirmation = "process_confirmation"
	JobAutoEscalate        = "auto_escalate"
)

// TimeoutJobID identifies the timeout check for one deadline of one level.
// The same deadline always yields the same id, so re-enqueueing is a no-op
// and a confirmation can cancel the check without storing the job id.
func TimeoutJobID(claimID string, level int, deadline time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", JobCheckTimeout, claimID, level, deadline.Unix())
}

// AutoEscalateJobID identifies the single auto-escalation allowed per expired deadline.
func AutoEscalateJobID(claimID string, fromLevel int, deadline time.Time) string {
	return fmt.Sprintf("%s:%s:%d:%d", JobAutoEscalate, claimID, fromLevel, deadline.Unix())
}

// ManagementAlertJobID identifies the single management alert per expired top-level deadline.
func ManagementAlertJobID(claimID string, deadline time.Time) string {
	return fmt.Sprintf("management_alert:%s:%d", claimID, deadline.Unix())
}
