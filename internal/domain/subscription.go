/**
 * @description
 * This file defines the core billing domain models: subscription tiers,
 * the fixed plan catalog, the subscription record persisted per user,
 * and the entitlement DTO returned by the status endpoint.
 */
package domain

import "time"

// Tier is a paid-access level sold through the payment provider.
type Tier string

const (
	TierNone     Tier = ""
	TierMonthly  Tier = "Monthly"
	TierYearly   Tier = "Yearly"
	TierLifetime Tier = "Lifetime"
)

// BillingInterval is the recurrence of a price. An empty interval means
// the price is a one-time payment.
type BillingInterval string

const (
	IntervalNone    BillingInterval = ""
	IntervalMonthly BillingInterval = "month"
	IntervalYearly  BillingInterval = "year"
)

// Plan is one row of the fixed plan catalog. Amount is in minor
// currency units and must match the provider's live price catalog;
// keeping the two in sync is an operational task, not something the
// backend can self-correct.
type Plan struct {
	Name     string
	Tier     Tier
	Amount   int64
	Interval BillingInterval
}

// PlanCatalog is the source of truth for plan name resolution.
var PlanCatalog = []Plan{
	{Name: "Monthly", Tier: TierMonthly, Amount: 399, Interval: IntervalMonthly},
	{Name: "Yearly", Tier: TierYearly, Amount: 2999, Interval: IntervalYearly},
	{Name: "Lifetime", Tier: TierLifetime, Amount: 8900, Interval: IntervalNone},
}

// PlanByName resolves a plan name against the catalog.
func PlanByName(name string) (Plan, bool) {
	for _, p := range PlanCatalog {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// TierForAmount maps a charged amount back to a catalog tier. Used by
// the webhook processor when a completed checkout session carries no
// plan metadata.
func TierForAmount(amount int64) Tier {
	for _, p := range PlanCatalog {
		if p.Amount == amount {
			return p.Tier
		}
	}
	return TierNone
}

// Subscription statuses as stored in the subscriptions table.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusLapsed    = "lapsed"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is a user's subscription record. Lifetime purchases have
// no CurrentPeriodEnd; recurring tiers always do.
type Subscription struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Tier             Tier       `json:"tier"`
	Status           string     `json:"status"`
	StripeCustomerID string     `json:"stripe_customer_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsActiveAt reports whether the subscription grants access at the
// given instant. Lifetime subscriptions never expire.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if s.Tier == TierLifetime {
		return true
	}
	return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
}

// EntitlementStatus is the DTO returned by the billing status endpoint
// and polled by clients.
type EntitlementStatus struct {
	Subscribed       bool       `json:"subscribed"`
	SubscriptionTier *string    `json:"subscription_tier"`
	SubscriptionEnd  *time.Time `json:"subscription_end"`
}

// Identity is the authenticated caller as resolved from the bearer
// token by the auth middleware.
type Identity struct {
	UserID string
	Email  string
}

// CheckoutRequest is the body of the checkout-session endpoint. Either
// an explicit price id or a catalog plan name must be supplied.
type CheckoutRequest struct {
	PriceID string `json:"price_id,omitempty"`
	Plan    string `json:"plan,omitempty"`
}

// Checkout session modes, mirroring the payment provider's.
const (
	CheckoutModePayment      = "payment"
	CheckoutModeSubscription = "subscription"
)

// CheckoutParams carries everything the provider needs to create a
// hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	Mode       string
	SuccessURL string
	CancelURL  string
	UserID     string
}

// PriceInfo is the provider-agnostic view of a live price.
type PriceInfo struct {
	ID         string
	UnitAmount int64
	Interval   BillingInterval
}

// Recurring reports whether the price bills on an interval.
func (p PriceInfo) Recurring() bool {
	return p.Interval != IntervalNone
}
