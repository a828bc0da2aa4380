/**
 * @description
 * Data access for time-delayed scheduled messages. Dispatch is driven
 * by the scheduler binary: due pending rows are loaded, published as
 * events, and marked sent.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

const messageColumns = "id, user_id, recipient_email, subject, body, deliver_at, status, delivered_at, created_at"

func scanMessage(row pgx.Row) (*domain.ScheduledMessage, error) {
	var m domain.ScheduledMessage
	err := row.Scan(&m.ID, &m.UserID, &m.RecipientEmail, &m.Subject, &m.Body, &m.DeliverAt, &m.Status, &m.DeliveredAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateScheduledMessage inserts a new pending message.
func (r *Repository) CreateScheduledMessage(ctx context.Context, msg *domain.ScheduledMessage) (*domain.ScheduledMessage, error) {
	query := `
        INSERT INTO scheduled_messages (id, user_id, recipient_email, subject, body, deliver_at, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRow(ctx, query,
		msg.ID, msg.UserID, msg.RecipientEmail, msg.Subject, msg.Body, msg.DeliverAt, domain.MessageStatusPending,
	))
}

// ListScheduledMessagesByUser returns a user's messages, soonest delivery first.
func (r *Repository) ListScheduledMessagesByUser(ctx context.Context, userID string) ([]domain.ScheduledMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM scheduled_messages
        WHERE user_id = $1
        ORDER BY deliver_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ScheduledMessage
	for rows.Next() {
		var m domain.ScheduledMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.RecipientEmail, &m.Subject, &m.Body, &m.DeliverAt, &m.Status, &m.DeliveredAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CancelScheduledMessage cancels a pending message, scoped to its
// owner. Messages that already left pending cannot be cancelled.
func (r *Repository) CancelScheduledMessage(ctx context.Context, messageID, userID string) (*domain.ScheduledMessage, error) {
	query := `
        UPDATE scheduled_messages
        SET status = $3
        WHERE id = $1 AND user_id = $2 AND status = $4
        RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRow(ctx, query,
		messageID, userID, domain.MessageStatusCancelled, domain.MessageStatusPending,
	))
}

// GetDueScheduledMessages returns pending messages whose delivery time
// has passed.
func (r *Repository) GetDueScheduledMessages(ctx context.Context, now time.Time) ([]domain.ScheduledMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM scheduled_messages
        WHERE status = $1 AND deliver_at <= $2
        ORDER BY deliver_at ASC
    `
	rows, err := r.db.Query(ctx, query, domain.MessageStatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ScheduledMessage
	for rows.Next() {
		var m domain.ScheduledMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.RecipientEmail, &m.Subject, &m.Body, &m.DeliverAt, &m.Status, &m.DeliveredAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkMessageSent transitions a message to sent and records the
// delivery time.
func (r *Repository) MarkMessageSent(ctx context.Context, messageID string, deliveredAt time.Time) error {
	query := `
        UPDATE scheduled_messages
        SET status = $2, delivered_at = $3
        WHERE id = $1 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, messageID, domain.MessageStatusSent, deliveredAt, domain.MessageStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}
