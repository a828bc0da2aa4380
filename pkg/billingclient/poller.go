/**
 * @description
 * Lifecycle-scoped entitlement poller. While an identity token is set
 * it refreshes the entitlement record on a fixed interval and
 * immediately whenever the identity changes. While signed out it holds
 * the zero entitlement and issues no network calls. The poller is
 * bound to a context: cancelling it releases the ticker and goroutine
 * on every exit path.
 */
package billingclient

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the entitlement is refreshed.
const DefaultPollInterval = 60 * time.Second

// Entitlement is the poller's view of the caller's paid access. It is
// replaced wholesale on each successful poll; a failed poll keeps the
// prior subscribed/tier values and records the error.
type Entitlement struct {
	Subscribed bool
	Tier       string
	PeriodEnd  *time.Time
	Loading    bool
	Err        string
}

// Poller periodically refreshes the entitlement for the client's
// current identity.
type Poller struct {
	client   *Client
	interval time.Duration
	onUpdate func(Entitlement)

	mu      sync.Mutex
	current Entitlement

	kick chan struct{}
}

// NewPoller creates a poller. onUpdate, when non-nil, is invoked after
// every state change. interval <= 0 selects DefaultPollInterval.
func NewPoller(client *Client, interval time.Duration, onUpdate func(Entitlement)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		interval: interval,
		onUpdate: onUpdate,
		current:  Entitlement{Loading: true},
		kick:     make(chan struct{}, 1),
	}
}

// Current returns the last observed entitlement.
func (p *Poller) Current() Entitlement {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// SetToken updates the identity. Signing out resets the entitlement to
// the zero state synchronously without a network call; a new identity
// triggers an immediate poll.
func (p *Poller) SetToken(token string) {
	p.client.SetToken(token)
	if token == "" {
		p.setState(Entitlement{})
		return
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start runs the poll loop until ctx is cancelled. It polls once
// immediately when an identity is present.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			p.pollOnce(ctx)
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce refreshes the entitlement. A signed-out identity always
// observes the zero entitlement with no network call issued. A
// response belonging to an identity that changed mid-flight is
// discarded; the kick issued by the identity change repolls with the
// new token.
func (p *Poller) pollOnce(ctx context.Context) {
	token := p.client.Token()
	if token == "" {
		p.setState(Entitlement{})
		return
	}

	status, err := p.client.FetchStatus(ctx)
	if err != nil {
		// Keep stale subscribed/tier values visible, flag the error,
		// and wait for the next scheduled poll.
		p.mu.Lock()
		if p.client.Token() != token {
			p.mu.Unlock()
			return
		}
		state := p.current
		state.Loading = false
		state.Err = err.Error()
		p.current = state
		p.mu.Unlock()
		p.notify(state)
		return
	}

	state := Entitlement{Subscribed: status.Subscribed, PeriodEnd: status.SubscriptionEnd}
	if status.SubscriptionTier != nil {
		state.Tier = *status.SubscriptionTier
	}

	p.mu.Lock()
	if p.client.Token() != token {
		p.mu.Unlock()
		return
	}
	p.current = state
	p.mu.Unlock()
	p.notify(state)
}

func (p *Poller) setState(state Entitlement) {
	p.mu.Lock()
	p.current = state
	p.mu.Unlock()
	p.notify(state)
}

func (p *Poller) notify(state Entitlement) {
	if p.onUpdate != nil {
		p.onUpdate(state)
	}
}
