package models

import "time"

// Webhook event processing states. A row is created as pending, and moves
// to processed or failed exactly once per handling attempt.
const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusFailed    = "failed"
)

// WebhookEvent is the durable idempotency ledger for inbound Stripe
// events. The unique stripe_event_id constraint is the sole concurrency
// guard against duplicate delivery.
type WebhookEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StripeEventID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_event_id"`
	EventType     string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Status        string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message,omitempty"`
	PayloadJSON   string    `gorm:"type:longtext" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
