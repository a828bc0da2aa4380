/**
 * @description
 * This file implements the data access layer for subscriptions.
 * It contains the SQL queries and logic for interacting with the
 * subscriptions table. Tables are created via the hosted platform's
 * migrations, not by this service.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

// Sentinel errors returned by the repository.
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPostNotFound         = errors.New("post not found")
	ErrMessageNotFound      = errors.New("scheduled message not found")
)

// Repository handles database operations for the backend.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetSubscriptionByUserID retrieves the subscription for a given user ID.
func (r *Repository) GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT id, user_id, tier, status, stripe_customer_id, current_period_end, created_at, updated_at
        FROM subscriptions
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.Status,
		&sub.StripeCustomerID,
		&sub.CurrentPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetSubscriptionByCustomerID retrieves the subscription tied to a
// billing-customer id. Used by the webhook processor when provider
// events carry no user metadata.
func (r *Repository) GetSubscriptionByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT id, user_id, tier, status, stripe_customer_id, current_period_end, created_at, updated_at
        FROM subscriptions
        WHERE stripe_customer_id = $1
    `
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.Status,
		&sub.StripeCustomerID,
		&sub.CurrentPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription creates a new subscription or replaces the
// existing one for a user. The subscriptions table has a unique
// constraint on user_id.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	var saved domain.Subscription
	query := `
        INSERT INTO subscriptions (user_id, tier, status, stripe_customer_id, current_period_end)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET
            tier = EXCLUDED.tier,
            status = EXCLUDED.status,
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            current_period_end = EXCLUDED.current_period_end,
            updated_at = NOW()
        RETURNING id, user_id, tier, status, stripe_customer_id, current_period_end, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		sub.UserID,
		sub.Tier,
		sub.Status,
		sub.StripeCustomerID,
		sub.CurrentPeriodEnd,
	).Scan(
		&saved.ID,
		&saved.UserID,
		&saved.Tier,
		&saved.Status,
		&saved.StripeCustomerID,
		&saved.CurrentPeriodEnd,
		&saved.CreatedAt,
		&saved.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// LapseExpiredSubscriptions marks active recurring subscriptions whose
// period end has passed as lapsed. Lifetime subscriptions never lapse.
// Returns the number of rows updated.
func (r *Repository) LapseExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	query := `
        UPDATE subscriptions
        SET status = $1, updated_at = NOW()
        WHERE status = $2
          AND tier <> $3
          AND current_period_end IS NOT NULL
          AND current_period_end < $4
    `
	tag, err := r.db.Exec(ctx, query,
		domain.SubscriptionStatusLapsed,
		domain.SubscriptionStatusActive,
		domain.TierLifetime,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
