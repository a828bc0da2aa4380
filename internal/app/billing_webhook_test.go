package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
	"github.com/agpatowary/mind-mortal-clone-sub001/pkg/rabbitmq"
)

type webhookRepoStub struct {
	byCustomer map[string]*domain.Subscription
	saved      []*domain.Subscription
	upsertErr  error
}

func (r *webhookRepoStub) GetSubscriptionByCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	if sub, ok := r.byCustomer[customerID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, store.ErrSubscriptionNotFound
}

func (r *webhookRepoStub) UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.saved = append(r.saved, sub)
	return sub, nil
}

type publisherStub struct {
	published  []string
	publishErr error
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body any) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *publisherStub) Close() {}

func newTestProcessor(repo WebhookRepository, producer rabbitmq.Publisher) *WebhookProcessor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewWebhookProcessor(repo, producer, "whsec_test", logger)
	p.verifyFn = func(payload []byte, header, secret string) (stripe.Event, error) {
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return stripe.Event{}, err
		}
		return event, nil
	}
	return p
}

func eventPayload(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal event data: %v", err)
	}
	payload, err := json.Marshal(map[string]any{
		"type": eventType,
		"data": map[string]any{"object": json.RawMessage(raw)},
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return payload
}

func TestProcess_RejectsInvalidSignature(t *testing.T) {
	p := NewWebhookProcessor(&webhookRepoStub{}, &publisherStub{}, "whsec_test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := p.Process(context.Background(), []byte("{}"), "bad-signature")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
}

func TestProcess_CheckoutCompletedActivatesSubscription(t *testing.T) {
	repo := &webhookRepoStub{}
	producer := &publisherStub{}
	p := newTestProcessor(repo, producer)

	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"amount_total": 2999,
		"customer":     map[string]any{"id": "cus_123"},
		"metadata":     map[string]string{"user_id": "user-1"},
	})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.saved))
	}
	sub := repo.saved[0]
	if sub.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", sub.UserID)
	}
	if sub.Tier != domain.TierYearly {
		t.Fatalf("expected yearly tier for amount 2999, got %s", sub.Tier)
	}
	if sub.Status != domain.SubscriptionStatusActive {
		t.Fatalf("expected active status, got %s", sub.Status)
	}
	if sub.StripeCustomerID != "cus_123" {
		t.Fatalf("unexpected customer id: %s", sub.StripeCustomerID)
	}
	if sub.CurrentPeriodEnd == nil {
		t.Fatal("expected a period end for a recurring tier")
	}
	if len(producer.published) != 1 || producer.published[0] != domain.RoutingKeySubscriptionActivated {
		t.Fatalf("expected an activation event, got %v", producer.published)
	}
}

func TestProcess_CheckoutCompletedLifetimeHasNoPeriodEnd(t *testing.T) {
	repo := &webhookRepoStub{}
	p := newTestProcessor(repo, &publisherStub{})

	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"amount_total": 8900,
		"customer":     map[string]any{"id": "cus_123"},
		"metadata":     map[string]string{"user_id": "user-1"},
	})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub := repo.saved[0]
	if sub.Tier != domain.TierLifetime {
		t.Fatalf("expected lifetime tier, got %s", sub.Tier)
	}
	if sub.CurrentPeriodEnd != nil {
		t.Fatal("expected no period end for a lifetime purchase")
	}
}

func TestProcess_CheckoutCompletedUnknownAmount(t *testing.T) {
	p := newTestProcessor(&webhookRepoStub{}, &publisherStub{})

	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"amount_total": 1,
		"customer":     map[string]any{"id": "cus_123"},
		"metadata":     map[string]string{"user_id": "user-1"},
	})

	if err := p.Process(context.Background(), payload, "sig"); err == nil {
		t.Fatal("expected an error for an amount matching no plan")
	}
}

func TestProcess_CheckoutCompletedPublishFailureStillPersists(t *testing.T) {
	repo := &webhookRepoStub{}
	producer := &publisherStub{publishErr: errors.New("broker down")}
	p := newTestProcessor(repo, producer)

	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"amount_total": 399,
		"customer":     map[string]any{"id": "cus_123"},
		"metadata":     map[string]string{"user_id": "user-1"},
	})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected the subscription to be persisted, got %d upserts", len(repo.saved))
	}
}

func TestProcess_SubscriptionUpdated(t *testing.T) {
	tests := []struct {
		name           string
		providerStatus string
		wantStatus     string
	}{
		{"active stays active", "active", domain.SubscriptionStatusActive},
		{"trialing is active", "trialing", domain.SubscriptionStatusActive},
		{"canceled maps to cancelled", "canceled", domain.SubscriptionStatusCancelled},
		{"past_due lapses", "past_due", domain.SubscriptionStatusLapsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &webhookRepoStub{byCustomer: map[string]*domain.Subscription{
				"cus_123": {UserID: "user-1", Tier: domain.TierMonthly, Status: domain.SubscriptionStatusActive, StripeCustomerID: "cus_123"},
			}}
			p := newTestProcessor(repo, &publisherStub{})

			payload := eventPayload(t, "customer.subscription.updated", map[string]any{
				"customer": map[string]any{"id": "cus_123"},
				"status":   tt.providerStatus,
			})

			if err := p.Process(context.Background(), payload, "sig"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(repo.saved) != 1 {
				t.Fatalf("expected one upsert, got %d", len(repo.saved))
			}
			if repo.saved[0].Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", repo.saved[0].Status, tt.wantStatus)
			}
		})
	}
}

func TestProcess_SubscriptionUpdatedUnknownCustomerIgnored(t *testing.T) {
	repo := &webhookRepoStub{}
	p := newTestProcessor(repo, &publisherStub{})

	payload := eventPayload(t, "customer.subscription.updated", map[string]any{
		"customer": map[string]any{"id": "cus_unknown"},
		"status":   "active",
	})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("expected unknown customer to be ignored, got %v", err)
	}
	if len(repo.saved) != 0 {
		t.Fatal("expected no upsert for an unknown customer")
	}
}

func TestProcess_SubscriptionDeletedCancels(t *testing.T) {
	repo := &webhookRepoStub{byCustomer: map[string]*domain.Subscription{
		"cus_123": {UserID: "user-1", Tier: domain.TierMonthly, Status: domain.SubscriptionStatusActive, StripeCustomerID: "cus_123"},
	}}
	p := newTestProcessor(repo, &publisherStub{})

	payload := eventPayload(t, "customer.subscription.deleted", map[string]any{
		"customer": map[string]any{"id": "cus_123"},
	})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0].Status != domain.SubscriptionStatusCancelled {
		t.Fatalf("expected a cancelled upsert, got %+v", repo.saved)
	}
}

func TestProcess_UnhandledEventIgnored(t *testing.T) {
	repo := &webhookRepoStub{}
	p := newTestProcessor(repo, &publisherStub{})

	payload := eventPayload(t, "invoice.paid", map[string]any{})

	if err := p.Process(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("expected unhandled events to be ignored, got %v", err)
	}
}

func TestPeriodEndForTier(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	monthly := periodEndForTier(domain.TierMonthly, now)
	if monthly == nil || !monthly.Equal(now.AddDate(0, 1, 0)) {
		t.Fatalf("unexpected monthly period end: %v", monthly)
	}
	yearly := periodEndForTier(domain.TierYearly, now)
	if yearly == nil || !yearly.Equal(now.AddDate(1, 0, 0)) {
		t.Fatalf("unexpected yearly period end: %v", yearly)
	}
	if end := periodEndForTier(domain.TierLifetime, now); end != nil {
		t.Fatalf("expected no period end for lifetime, got %v", end)
	}
}
