/**
 * @description
 * Domain models for user content: idea vault posts, legacy archive
 * entries, mentorship resources, and time-delayed scheduled messages.
 */
package domain

import "time"

// Post is a content item owned by a user. Idea vault posts, legacy
// archive entries and mentorship resources share one table and are
// discriminated by PostType, which is also the key the like relation
// references.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PostType  PostType  `json:"post_type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scheduled message statuses.
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusCancelled = "cancelled"
)

// ScheduledMessage is a time-delayed message to be delivered to a
// recipient once its delivery time passes. Dispatch is performed by the
// scheduler binary, which publishes a delivery event and marks the row
// sent.
type ScheduledMessage struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
	DeliverAt      time.Time  `json:"deliver_at"`
	Status         string     `json:"status"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
