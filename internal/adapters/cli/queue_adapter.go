package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/claimdesk/internal/ports/primary"
)

// QueueAdapter translates CLI operations to the queue admin and sweep services.
type QueueAdapter struct {
	admin primary.QueueAdminService
	sweep primary.SweepService
	out   io.Writer
}

// NewQueueAdapter creates a new QueueAdapter.
func NewQueueAdapter(admin primary.QueueAdminService, sweep primary.SweepService, out io.Writer) *QueueAdapter {
	return &QueueAdapter{admin: admin, sweep: sweep, out: out}
}

// Stats prints job counts per queue.
func (a *QueueAdapter) Stats(ctx context.Context) error {
	stats, err := a.admin.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tWAITING\tACTIVE\tDELAYED\tCOMPLETED\tFAILED")
	for _, s := range stats {
		failed := fmt.Sprint(s.Failed)
		if s.Failed > 0 {
			failed = color.New(color.FgRed).Sprint(failed)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\n", s.Queue, s.Waiting, s.Active, s.Delayed, s.Completed, failed)
	}
	return w.Flush()
}

// Job prints one job.
func (a *QueueAdapter) Job(ctx context.Context, queue, jobID string) error {
	job, err := a.admin.GetJob(ctx, queue, jobID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nJob:      %s\n", job.ID)
	fmt.Fprintf(a.out, "Queue:    %s\n", job.Queue)
	fmt.Fprintf(a.out, "Type:     %s\n", job.Type)
	if job.ClaimID != "" {
		fmt.Fprintf(a.out, "Claim:    %s\n", job.ClaimID)
	}
	fmt.Fprintf(a.out, "State:    %s\n", job.State)
	fmt.Fprintf(a.out, "Priority: %s\n", job.Priority)
	fmt.Fprintf(a.out, "Attempts: %d/%d\n", job.AttemptsMade, job.MaxAttempts)
	fmt.Fprintf(a.out, "Run at:   %s\n", job.ProcessAt.Format(timeFormat))
	if job.LastError != "" {
		fmt.Fprintf(a.out, "Error:    %s\n", color.New(color.FgRed).Sprint(job.LastError))
	}
	fmt.Fprintln(a.out)
	return nil
}

// Remove cancels a pending job.
func (a *QueueAdapter) Remove(ctx context.Context, queue, jobID string) error {
	removed, err := a.admin.RemoveJob(ctx, queue, jobID)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(a.out, "Job %s is not pending in %s\n", jobID, queue)
		return nil
	}

	fmt.Fprintf(a.out, "✓ Removed job %s from %s\n", jobID, queue)
	return nil
}

// Sweep runs one reconciliation pass.
func (a *QueueAdapter) Sweep(ctx context.Context) error {
	res, err := a.sweep.SweepExpired(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Swept %d expired escalation(s), %d timeout check(s) scheduled, %d already queued\n", res.Expired, res.Rescheduled, res.Queued)
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "  %s %s\n", color.New(color.FgRed).Sprint("!"), e)
	}
	return nil
}
