package models

import "time"

// Bundle groups multiple plans sold together under a single price.
type Bundle struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"type:varchar(150);not null" json:"name"`
	PriceCents           int64     `gorm:"not null;default:0" json:"price_cents"`
	Currency             string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	StripePriceMonthlyID string    `gorm:"type:varchar(191);default:null;index" json:"stripe_price_monthly_id"`
	StripePriceYearlyID  string    `gorm:"type:varchar(191);default:null;index" json:"stripe_price_yearly_id"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BundlePlan links a bundle to one of its member plans.
type BundlePlan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BundleID  uint      `gorm:"not null;index:ux_bundle_plans_pair,unique,priority:1" json:"bundle_id"`
	PlanID    uint      `gorm:"not null;index:ux_bundle_plans_pair,unique,priority:2" json:"plan_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
