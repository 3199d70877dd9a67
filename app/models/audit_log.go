package models

import "time"

// Audit actors used by the billing core.
const (
	AuditActorSystemCron = "system_cron"
	AuditActorWebhook    = "stripe_webhook"
)

// AuditLog records billing-relevant actions for operators. Writes are
// best-effort; see billing.Auditor.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    string    `gorm:"type:varchar(100);not null;index" json:"actor_id"`
	Action     string    `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityType string    `gorm:"type:varchar(100);not null" json:"entity_type"`
	EntityID   string    `gorm:"type:varchar(100);not null;index" json:"entity_id"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
