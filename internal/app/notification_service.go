package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/claimdesk/internal/core/notification"
	"github.com/example/claimdesk/internal/ports/secondary"
)

// NotificationDispatcher runs the jobs of the notifications queue: it
// resolves recipients, renders the message and hands it to the provider.
type NotificationDispatcher struct {
	claimRepo secondary.ClaimRepository
	directory secondary.AgentDirectory
	provider  secondary.MessagingProvider
	logger    *zap.Logger
}

// NewNotificationDispatcher creates a dispatcher.
func NewNotificationDispatcher(
	claimRepo secondary.ClaimRepository,
	directory secondary.AgentDirectory,
	provider secondary.MessagingProvider,
	logger *zap.Logger,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		claimRepo: claimRepo,
		directory: directory,
		provider:  provider,
		logger:    logger,
	}
}

// Register attaches every notification job type to r.
func (d *NotificationDispatcher) Register(r HandlerRegistry) {
	r.Handle(notification.JobAgentAlert, d.Dispatch)
	r.Handle(notification.JobCustomerUpdate, d.Dispatch)
	r.Handle(notification.JobManagementAlert, d.Dispatch)
}

// Dispatch delivers one notification job. Any send failure is returned so
// the queue retries the job.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, job *secondary.Job) error {
	audience, err := notification.AudienceFor(job.Type)
	if err != nil {
		return err
	}
	event := notification.Event(dataString(job.Data, "event"))
	data := notification.DataFromMap(job.Data)
	if data.ClaimID == "" {
		data.ClaimID = job.ClaimID
	}

	message, err := notification.Render(event, audience, data)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	recipients, err := d.recipients(ctx, audience, data)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}
	if len(recipients) == 0 {
		d.logger.Warn("notification has no recipient",
			zap.String("job_id", job.ID),
			zap.String("claim_id", data.ClaimID),
			zap.String("audience", string(audience)),
		)
		return nil
	}

	var errs []error
	for _, to := range recipients {
		if err := d.send(ctx, job, to, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *NotificationDispatcher) send(ctx context.Context, job *secondary.Job, to, message string) error {
	res, err := d.provider.Send(ctx, to, message)
	if err != nil {
		return fmt.Errorf("failed to send to %s via %s: %w", to, d.provider.Name(), err)
	}
	if !res.Success {
		return fmt.Errorf("%s rejected message to %s: %s", d.provider.Name(), to, res.Error)
	}

	d.logger.Info("notification sent",
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.String("claim_id", job.ClaimID),
		zap.String("recipient", to),
		zap.String("message_id", res.MessageID),
	)
	return nil
}

func (d *NotificationDispatcher) recipients(ctx context.Context, audience notification.Audience, data notification.Data) ([]string, error) {
	switch audience {
	case notification.AudienceAgent:
		contact, ok := d.directory.Lookup(data.AgentID)
		if !ok {
			return nil, fmt.Errorf("agent %q not in directory", data.AgentID)
		}
		return []string{notification.FormatRecipient(notification.Channel(contact.Channel), contact.Phone)}, nil

	case notification.AudienceCustomer:
		claim, err := d.claimRepo.GetByID(ctx, data.ClaimID)
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load claim contact: %w", err)
		}
		if claim.ContactPhone == "" {
			return nil, nil
		}
		return []string{notification.FormatRecipient(notification.Channel(claim.PreferredChannel), claim.ContactPhone)}, nil

	case notification.AudienceManagement:
		var out []string
		for _, c := range d.directory.Management() {
			out = append(out, notification.FormatRecipient(notification.Channel(c.Channel), c.Phone))
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown audience %q", audience)
}
