package models

import "time"

// Reset cadences for feature limits.
const (
	ResetPeriodDaily   = "daily"
	ResetPeriodMonthly = "monthly"
	ResetPeriodYearly  = "yearly"
	ResetPeriodNever   = "never"
)

// Plan is a single priceable offering tied to one tool. The Stripe price
// IDs are what inbound webhook line items resolve against.
type Plan struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ToolID               uint      `gorm:"not null;index" json:"tool_id"`
	Name                 string    `gorm:"type:varchar(150);not null" json:"name"`
	PriceCents           int64     `gorm:"not null;default:0" json:"price_cents"`
	Currency             string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	StripePriceMonthlyID string    `gorm:"type:varchar(191);default:null;index" json:"stripe_price_monthly_id"`
	StripePriceYearlyID  string    `gorm:"type:varchar(191);default:null;index" json:"stripe_price_yearly_id"`
	TrialDays            int       `gorm:"not null;default:0" json:"trial_days"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTrialPlan reports whether the plan is a designated trial plan, which
// makes new subscriptions subject to card-fingerprint abuse checks.
func (p *Plan) IsTrialPlan() bool {
	return p.TrialDays > 0
}

// PlanLimit is the per-feature default limit template for a plan.
// A nil DefaultLimit means unlimited.
type PlanLimit struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PlanID       uint      `gorm:"not null;index:ux_plan_limits_plan_feature,unique,priority:1" json:"plan_id"`
	FeatureID    uint      `gorm:"not null;index:ux_plan_limits_plan_feature,unique,priority:2" json:"feature_id"`
	DefaultLimit *int64    `gorm:"default:null" json:"default_limit"`
	ResetPeriod  string    `gorm:"type:varchar(16);not null;default:'monthly'" json:"reset_period"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Feature Feature `gorm:"foreignKey:FeatureID" json:"feature"`
}
