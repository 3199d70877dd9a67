package models

import (
	"time"

	"gorm.io/gorm"
)

// Local subscription statuses. They mirror Stripe's lifecycle; unknown
// provider statuses map to INCOMPLETE.
const (
	SubStatusIncomplete        = "incomplete"
	SubStatusIncompleteExpired = "incomplete_expired"
	SubStatusTrialing          = "trialing"
	SubStatusActive            = "active"
	SubStatusPastDue           = "past_due"
	SubStatusCanceled          = "canceled"
	SubStatusUnpaid            = "unpaid"
	SubStatusPaused            = "paused"
)

// Cancellation reasons recorded by the billing core.
const (
	CancelReasonDuplicateCard     = "duplicate_card"
	CancelReasonAutoCancelPastDue = "auto_cancel_past_due"
	CancelReasonUserRequested     = "user_requested"
)

// Subscription links an organization to a plan or a bundle at Stripe.
// At most one of PlanID/BundleID is set; the same holds for the upcoming
// pair, which records a pending downgrade and is cleared whenever a
// webhook confirms actual provider state.
type Subscription struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	OrganizationID       uint           `gorm:"not null;index;index:ux_subscriptions_stripe_org,unique,priority:2" json:"organization_id"`
	PlanID               *uint          `gorm:"default:null;index" json:"plan_id"`
	BundleID             *uint          `gorm:"default:null;index" json:"bundle_id"`
	StripeSubscriptionID string         `gorm:"type:varchar(191);default:null;index:ux_subscriptions_stripe_org,unique,priority:1" json:"stripe_subscription_id"`
	Status               string         `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	CurrentPeriodStart   *time.Time     `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time     `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	TrialStart           *time.Time     `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd             *time.Time     `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CancelAtPeriodEnd    bool           `gorm:"default:false" json:"cancel_at_period_end"`
	UpcomingPlanID       *uint          `gorm:"default:null" json:"upcoming_plan_id,omitempty"`
	UpcomingBundleID     *uint          `gorm:"default:null" json:"upcoming_bundle_id,omitempty"`
	CardFingerprint      string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	CancellationReason   string         `gorm:"type:varchar(64);default:null" json:"cancellation_reason,omitempty"`
	LastPaymentFailureAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_payment_failure_at,omitempty"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTerminal reports whether the subscription can never become active again.
func (s *Subscription) IsTerminal() bool {
	switch s.Status {
	case SubStatusCanceled, SubStatusIncompleteExpired, SubStatusUnpaid:
		return true
	default:
		return false
	}
}
