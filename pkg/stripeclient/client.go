/**
 * @description
 * This package provides a client for interacting with the Stripe API.
 * It encapsulates the operations the billing service needs: resolving
 * billing customers by email, listing and retrieving prices, and
 * creating checkout and billing-portal sessions.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v82: The official Go client for Stripe.
 * - The service's internal domain package for provider-agnostic models.
 */
package stripeclient

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/price"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

// Client is a client for the Stripe API. The SDK calls sit behind
// function fields so tests can stub them.
type Client struct {
	listCustomers         func(params *stripe.CustomerListParams) ([]*stripe.Customer, error)
	createCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	listPrices            func(params *stripe.PriceListParams) ([]*stripe.Price, error)
	getPrice              func(id string, params *stripe.PriceParams) (*stripe.Price, error)
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

// New configures the Stripe SDK with the given secret key and returns
// a client.
func New(apiKey string) *Client {
	stripe.Key = strings.TrimSpace(apiKey)
	return &Client{
		listCustomers: func(params *stripe.CustomerListParams) ([]*stripe.Customer, error) {
			iter := customer.List(params)
			var customers []*stripe.Customer
			for iter.Next() {
				customers = append(customers, iter.Customer())
			}
			return customers, iter.Err()
		},
		createCustomer: customer.New,
		listPrices: func(params *stripe.PriceListParams) ([]*stripe.Price, error) {
			iter := price.List(params)
			var prices []*stripe.Price
			for iter.Next() {
				prices = append(prices, iter.Price())
			}
			return prices, iter.Err()
		},
		getPrice:              price.Get,
		createCheckoutSession: stripesession.New,
		createPortalSession:   portalsession.New,
	}
}

// FindOrCreateCustomer looks up a billing customer by email and
// creates one when none exists, tagging it with the internal user id.
// At most one customer should exist per email; the first match is
// reused. The lookup-then-create is not transactionally guarded, so
// two concurrent first-time checkouts for the same email can race and
// create two customers. Accepted: the window only exists for a single
// user double-submitting their own first checkout.
func (c *Client) FindOrCreateCustomer(ctx context.Context, email, userID string) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	existing, err := c.listCustomers(listParams)
	if err != nil {
		return "", fmt.Errorf("failed to list customers: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	createParams := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	createParams.Context = ctx
	createParams.AddMetadata("user_id", userID)

	created, err := c.createCustomer(createParams)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return created.ID, nil
}

// ListActivePrices returns all active prices from the live catalog.
func (c *Client) ListActivePrices(ctx context.Context) ([]domain.PriceInfo, error) {
	params := &stripe.PriceListParams{
		Active: stripe.Bool(true),
	}
	params.Context = ctx

	raw, err := c.listPrices(params)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}

	prices := make([]domain.PriceInfo, 0, len(raw))
	for _, p := range raw {
		prices = append(prices, toPriceInfo(p))
	}
	return prices, nil
}

// GetPrice retrieves a single price by id.
func (c *Client) GetPrice(ctx context.Context, priceID string) (domain.PriceInfo, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	p, err := c.getPrice(priceID, params)
	if err != nil {
		return domain.PriceInfo{}, fmt.Errorf("failed to retrieve price %s: %w", priceID, err)
	}
	return toPriceInfo(p), nil
}

// CreateCheckoutSession creates a hosted checkout session and returns
// its single-use redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, p domain.CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(p.Mode),
		Customer:   stripe.String(p.CustomerID),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", p.UserID)

	session, err := c.createCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("stripe returned empty checkout URL")
	}
	return strings.TrimSpace(session.URL), nil
}

// CreatePortalSession creates a billing-portal session for self-service
// subscription management.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := c.createPortalSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create billing portal session: %w", err)
	}
	return session.URL, nil
}

func toPriceInfo(p *stripe.Price) domain.PriceInfo {
	info := domain.PriceInfo{
		ID:         p.ID,
		UnitAmount: p.UnitAmount,
	}
	if p.Recurring != nil {
		info.Interval = domain.BillingInterval(p.Recurring.Interval)
	}
	return info
}
