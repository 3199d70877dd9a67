package models

import "time"

// OrganizationEntitlement is the currently effective limit and usage
// counter for one (organization, feature) pair. A nil LimitAmount means
// unlimited. Re-provisioning on plan change updates the limit but never
// touches UsageAmount or LastResetAt.
type OrganizationEntitlement struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OrganizationID uint      `gorm:"not null;index:ux_org_entitlements_org_feature,unique,priority:1" json:"organization_id"`
	FeatureID      uint      `gorm:"not null;index:ux_org_entitlements_org_feature,unique,priority:2" json:"feature_id"`
	ToolID         uint      `gorm:"not null;index" json:"tool_id"`
	LimitAmount    *int64    `gorm:"default:null" json:"limit_amount"`
	UsageAmount    int64     `gorm:"not null;default:0" json:"usage_amount"`
	ResetPeriod    string    `gorm:"type:varchar(16);not null;default:'monthly'" json:"reset_period"`
	LastResetAt    time.Time `gorm:"type:timestamp" json:"last_reset_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
