/**
 * @description
 * Event definitions published to the message broker. All events go to
 * a single durable topic exchange and are routed by key.
 */
package domain

import "time"

// EventsExchange is the topic exchange all backend events are published to.
const EventsExchange = "mmortal.events"

// Routing keys.
const (
	RoutingKeyMessageDeliveryDue    = "message.delivery.due"
	RoutingKeySubscriptionActivated = "subscription.activated"
)

// MessageDeliveryDueEvent is published when a scheduled message's
// delivery time has passed. The delivery worker consuming it performs
// the actual send.
type MessageDeliveryDueEvent struct {
	MessageID      string    `json:"message_id"`
	UserID         string    `json:"user_id"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	DeliverAt      time.Time `json:"deliver_at"`
}

// SubscriptionActivatedEvent is published when a checkout completes and
// a subscription becomes active.
type SubscriptionActivatedEvent struct {
	UserID string `json:"user_id"`
	Tier   Tier   `json:"tier"`
}
