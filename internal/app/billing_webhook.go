/**
 * @description
 * Stripe webhook processing. Verifies event signatures and keeps the
 * subscriptions table in sync with the payment provider, which is what
 * the entitlement status endpoint reads.
 */
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
	"github.com/agpatowary/mind-mortal-clone-sub001/pkg/rabbitmq"
)

// WebhookRepository defines the database operations webhook processing needs.
type WebhookRepository interface {
	GetSubscriptionByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
}

// WebhookProcessor verifies and applies payment-provider events.
type WebhookProcessor struct {
	repo     WebhookRepository
	producer rabbitmq.Publisher
	secret   string
	logger   *slog.Logger
	verifyFn func(payload []byte, header, secret string) (stripe.Event, error)
}

// NewWebhookProcessor creates a webhook processor. The producer may be
// a fallback publisher when the broker is unavailable.
func NewWebhookProcessor(repo WebhookRepository, producer rabbitmq.Publisher, secret string, logger *slog.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		repo:     repo,
		producer: producer,
		secret:   secret,
		logger:   logger,
		verifyFn: webhook.ConstructEvent,
	}
}

// ErrInvalidSignature is returned when the event payload fails
// signature verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Process verifies the signature and dispatches the event.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := p.verifyFn(payload, sigHeader, p.secret)
	if err != nil {
		return ErrInvalidSignature
	}

	switch string(event.Type) {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		return p.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return p.handleSubscriptionDeleted(ctx, event)
	default:
		p.logger.Info("ignoring webhook event", "type", event.Type)
		return nil
	}
}

func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := session.Metadata["user_id"]
	if userID == "" {
		return errors.New("checkout session missing user_id metadata")
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return errors.New("checkout session missing customer")
	}

	tier := domain.TierForAmount(session.AmountTotal)
	if tier == domain.TierNone {
		return fmt.Errorf("checkout amount %d matches no catalog plan", session.AmountTotal)
	}

	sub := &domain.Subscription{
		UserID:           userID,
		Tier:             tier,
		Status:           domain.SubscriptionStatusActive,
		StripeCustomerID: session.Customer.ID,
		CurrentPeriodEnd: periodEndForTier(tier, time.Now()),
	}
	if _, err := p.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	if err := p.producer.Publish(ctx, domain.EventsExchange, domain.RoutingKeySubscriptionActivated,
		domain.SubscriptionActivatedEvent{UserID: userID, Tier: tier},
	); err != nil {
		// Activation is already persisted; the event is best effort.
		p.logger.Error("failed to publish activation event", "user_id", userID, "error", err)
	}

	p.logger.Info("subscription activated", "user_id", userID, "tier", tier)
	return nil
}

func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var providerSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &providerSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}
	if providerSub.Customer == nil || providerSub.Customer.ID == "" {
		return errors.New("subscription event missing customer")
	}

	sub, err := p.repo.GetSubscriptionByCustomerID(ctx, providerSub.Customer.ID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			// Renewal events can arrive before the checkout completion
			// that creates the row; the next event will apply cleanly.
			p.logger.Warn("subscription event for unknown customer", "customer_id", providerSub.Customer.ID)
			return nil
		}
		return err
	}

	sub.Status = statusFromProvider(string(providerSub.Status))
	if end := subscriptionPeriodEnd(&providerSub); end != nil {
		sub.CurrentPeriodEnd = end
	}
	if _, err := p.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var providerSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &providerSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}
	if providerSub.Customer == nil || providerSub.Customer.ID == "" {
		return errors.New("subscription event missing customer")
	}

	sub, err := p.repo.GetSubscriptionByCustomerID(ctx, providerSub.Customer.ID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	sub.Status = domain.SubscriptionStatusCancelled
	if _, err := p.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// periodEndForTier computes the first billing period end for a tier at
// activation time. Lifetime purchases have no period end; renewals of
// recurring tiers are corrected by subsequent subscription events.
func periodEndForTier(tier domain.Tier, now time.Time) *time.Time {
	switch tier {
	case domain.TierMonthly:
		end := now.AddDate(0, 1, 0)
		return &end
	case domain.TierYearly:
		end := now.AddDate(1, 0, 0)
		return &end
	default:
		return nil
	}
}

// statusFromProvider maps provider subscription statuses onto the
// three states the entitlement model distinguishes.
func statusFromProvider(providerStatus string) string {
	switch providerStatus {
	case "active", "trialing":
		return domain.SubscriptionStatusActive
	case "canceled":
		return domain.SubscriptionStatusCancelled
	default:
		return domain.SubscriptionStatusLapsed
	}
}

// subscriptionPeriodEnd extracts the current period end from a
// provider subscription, which reports it per item.
func subscriptionPeriodEnd(sub *stripe.Subscription) *time.Time {
	if sub.Items == nil {
		return nil
	}
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodEnd > 0 {
			end := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			return &end
		}
	}
	return nil
}
