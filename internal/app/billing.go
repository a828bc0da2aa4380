/**
 * @description
 * This file contains the core billing business logic: creating hosted
 * checkout sessions, creating billing-portal sessions, and computing
 * a user's entitlement status from the subscription record.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
)

// PaymentProvider defines the payment-provider operations the billing
// service depends on. Implemented by pkg/stripeclient.
type PaymentProvider interface {
	FindOrCreateCustomer(ctx context.Context, email, userID string) (string, error)
	ListActivePrices(ctx context.Context) ([]domain.PriceInfo, error)
	GetPrice(ctx context.Context, priceID string) (domain.PriceInfo, error)
	CreateCheckoutSession(ctx context.Context, p domain.CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// BillingRepository defines the database operations the billing
// service needs.
type BillingRepository interface {
	GetSubscriptionByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
}

// BillingService provides the business logic for checkout and
// entitlement.
type BillingService struct {
	repo     BillingRepository
	provider PaymentProvider
	logger   *slog.Logger
}

// NewBillingService creates a new billing service.
func NewBillingService(repo BillingRepository, provider PaymentProvider, logger *slog.Logger) *BillingService {
	return &BillingService{repo: repo, provider: provider, logger: logger}
}

// CreateCheckoutSession resolves the caller's billing customer, maps
// the requested plan to a live price, determines one-time vs recurring
// mode, and creates a hosted checkout session. Returns the session's
// redirect URL.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, identity domain.Identity, req domain.CheckoutRequest, origin string) (string, error) {
	if req.PriceID == "" && req.Plan == "" {
		return "", errors.New("either price_id or plan is required")
	}
	if identity.Email == "" {
		return "", errors.New("authenticated user has no email address")
	}

	customerID, err := s.provider.FindOrCreateCustomer(ctx, identity.Email, identity.UserID)
	if err != nil {
		s.logger.Error("checkout failed", "step", "resolve_customer", "error", err)
		return "", fmt.Errorf("failed to resolve billing customer: %w", err)
	}

	priceID := req.PriceID
	if req.Plan != "" {
		priceID, err = s.resolvePlanPrice(ctx, req.Plan)
		if err != nil {
			s.logger.Error("checkout failed", "step", "resolve_price", "plan", req.Plan, "error", err)
			return "", err
		}
	}

	price, err := s.provider.GetPrice(ctx, priceID)
	if err != nil {
		s.logger.Error("checkout failed", "step", "retrieve_price", "price_id", priceID, "error", err)
		return "", fmt.Errorf("failed to retrieve price: %w", err)
	}

	mode := domain.CheckoutModePayment
	if price.Recurring() {
		mode = domain.CheckoutModeSubscription
	}

	url, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutParams{
		CustomerID: customerID,
		PriceID:    price.ID,
		Mode:       mode,
		SuccessURL: origin + "/dashboard?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/pricing",
		UserID:     identity.UserID,
	})
	if err != nil {
		s.logger.Error("checkout failed", "step", "create_session", "error", err)
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return url, nil
}

// resolvePlanPrice lists active prices from the provider and selects
// the one whose amount and recurrence match the fixed plan catalog.
// The catalog must stay in sync with the provider's live prices; an
// unmatched plan is an explicit error, never a silent fallback.
func (s *BillingService) resolvePlanPrice(ctx context.Context, planName string) (string, error) {
	plan, known := domain.PlanByName(planName)
	if known {
		prices, err := s.provider.ListActivePrices(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list prices: %w", err)
		}
		for _, p := range prices {
			if p.UnitAmount == plan.Amount && p.Interval == plan.Interval {
				return p.ID, nil
			}
		}
	}
	// Error text is part of the API contract with the client.
	return "", fmt.Errorf("No matching price found for plan: %s", planName)
}

// CreatePortalSession returns a URL to the provider's self-service
// billing management page.
func (s *BillingService) CreatePortalSession(ctx context.Context, identity domain.Identity, origin string) (string, error) {
	if identity.Email == "" {
		return "", errors.New("authenticated user has no email address")
	}

	// Prefer the customer id recorded at checkout completion; fall back
	// to an email lookup for users whose subscription predates it.
	customerID := ""
	sub, err := s.repo.GetSubscriptionByUserID(ctx, identity.UserID)
	if err == nil && sub.StripeCustomerID != "" {
		customerID = sub.StripeCustomerID
	} else if err != nil && !errors.Is(err, store.ErrSubscriptionNotFound) {
		s.logger.Error("portal failed", "step", "load_subscription", "error", err)
		return "", err
	}

	if customerID == "" {
		customerID, err = s.provider.FindOrCreateCustomer(ctx, identity.Email, identity.UserID)
		if err != nil {
			s.logger.Error("portal failed", "step", "resolve_customer", "error", err)
			return "", fmt.Errorf("failed to resolve billing customer: %w", err)
		}
	}

	url, err := s.provider.CreatePortalSession(ctx, customerID, origin+"/dashboard")
	if err != nil {
		s.logger.Error("portal failed", "step", "create_session", "error", err)
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}
	return url, nil
}

// GetStatus computes the caller's entitlement. Users without a
// subscription row are simply unsubscribed; that is not an error.
func (s *BillingService) GetStatus(ctx context.Context, userID string) (*domain.EntitlementStatus, error) {
	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return &domain.EntitlementStatus{}, nil
		}
		return nil, err
	}

	if !sub.IsActiveAt(time.Now()) {
		return &domain.EntitlementStatus{}, nil
	}

	tier := string(sub.Tier)
	status := &domain.EntitlementStatus{
		Subscribed:       true,
		SubscriptionTier: &tier,
	}
	// Lifetime purchases have no expiry.
	if sub.Tier != domain.TierLifetime {
		status.SubscriptionEnd = sub.CurrentPeriodEnd
	}
	return status, nil
}
