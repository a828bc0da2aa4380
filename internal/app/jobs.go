/**
 * @description
 * Scheduled job implementations for the scheduler binary.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
	"github.com/agpatowary/mind-mortal-clone-sub001/pkg/rabbitmq"
)

// JobsRepository defines database operations needed by the jobs.
type JobsRepository interface {
	GetDueScheduledMessages(ctx context.Context, now time.Time) ([]domain.ScheduledMessage, error)
	MarkMessageSent(ctx context.Context, messageID string, deliveredAt time.Time) error
	LapseExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo     JobsRepository
	producer rabbitmq.Publisher
	logger   *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo JobsRepository, producer rabbitmq.Publisher, logger *slog.Logger) *Jobs {
	return &Jobs{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// DispatchDueMessages publishes a delivery event for every pending
// scheduled message whose delivery time has passed, then marks it
// sent. A publish failure leaves the row pending so the next run
// retries it.
func (j *Jobs) DispatchDueMessages() {
	ctx := context.Background()
	now := time.Now().UTC()

	messages, err := j.repo.GetDueScheduledMessages(ctx, now)
	if err != nil {
		j.logger.Error("failed to load due messages", "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}
	j.logger.Info("dispatching due messages", "count", len(messages))

	for _, msg := range messages {
		event := domain.MessageDeliveryDueEvent{
			MessageID:      msg.ID,
			UserID:         msg.UserID,
			RecipientEmail: msg.RecipientEmail,
			Subject:        msg.Subject,
			Body:           msg.Body,
			DeliverAt:      msg.DeliverAt,
		}
		if err := j.producer.Publish(ctx, domain.EventsExchange, domain.RoutingKeyMessageDeliveryDue, event); err != nil {
			j.logger.Error("failed to publish delivery event", "message_id", msg.ID, "error", err)
			continue
		}
		if err := j.repo.MarkMessageSent(ctx, msg.ID, now); err != nil {
			// The event is out; a duplicate on the next run is the
			// consumer's problem to deduplicate by message id.
			j.logger.Error("failed to mark message sent", "message_id", msg.ID, "error", err)
		}
	}
}

// LapseExpiredSubscriptions marks recurring subscriptions whose period
// end has passed as lapsed.
func (j *Jobs) LapseExpiredSubscriptions() {
	ctx := context.Background()

	lapsed, err := j.repo.LapseExpiredSubscriptions(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("failed to lapse expired subscriptions", "error", err)
		return
	}
	if lapsed > 0 {
		j.logger.Info("lapsed expired subscriptions", "count", lapsed)
	}
}
