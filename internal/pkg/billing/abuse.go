package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// CheckAndEnforce cancels a trial signup whose card fingerprint already
// backs another subscription for a plan of the same tool. Paying customers
// are exempt: an active subscription on a non-zero-price plan is never
// penalized for fingerprint reuse. The local cancellation wins even when
// the provider-side cancel fails, because revoking access is the point.
func (s *Service) CheckAndEnforce(ctx context.Context, sub *models.Subscription, plan *models.Plan, fingerprint string) error {
	if fingerprint == "" || plan == nil {
		return nil
	}
	if sub.Status == models.SubStatusActive && plan.PriceCents > 0 {
		return nil
	}

	planIDs, err := s.catalog.PlanIDsForTool(plan.ToolID)
	if err != nil {
		return fmt.Errorf("list plans for tool %d: %w", plan.ToolID, err)
	}

	dup, err := s.repo.DuplicateFingerprint(sub.ID, fingerprint, planIDs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("search duplicate fingerprint: %w", err)
	}

	log.Warnf("[Billing] duplicate card fingerprint on subscription %d (existing %d), canceling", sub.ID, dup.ID)

	if sub.StripeSubscriptionID != "" {
		if err := s.provider.CancelSubscription(ctx, sub.StripeSubscriptionID, true); err != nil {
			log.Errorf("[Billing] provider cancel of %s failed, canceling locally anyway: %v", sub.StripeSubscriptionID, err)
		}
	}

	if err := s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
		"status":              models.SubStatusCanceled,
		"cancellation_reason": models.CancelReasonDuplicateCard,
	}); err != nil {
		return fmt.Errorf("cancel duplicate subscription %d: %w", sub.ID, err)
	}

	s.auditor.Log(&models.AuditLog{
		ActorID:    models.AuditActorWebhook,
		Action:     "trial_abuse_cancel",
		EntityType: "subscription",
		EntityID:   fmt.Sprint(sub.ID),
		Details:    fmt.Sprintf(`{"duplicate_of":%d,"tool_id":%d}`, dup.ID, plan.ToolID),
	})
	return nil
}

// resolveCardFingerprint reads the payment instrument behind the
// subscription. Fallback order: the subscription's default payment
// method, then the customer's default. An unresolvable fingerprint is not
// an error; abuse checking is simply skipped.
func (s *Service) resolveCardFingerprint(ctx context.Context, ssub *StripeSubscription) string {
	pmID := ssub.DefaultPaymentMethod
	if pmID == "" && ssub.Customer != "" {
		var err error
		pmID, err = s.provider.CustomerDefaultPaymentMethod(ctx, ssub.Customer)
		if err != nil {
			log.Warnf("[Billing] could not read default payment method for customer %s: %v", ssub.Customer, err)
			return ""
		}
	}
	if pmID == "" {
		return ""
	}

	fingerprint, err := s.provider.PaymentMethodFingerprint(ctx, pmID)
	if err != nil {
		log.Warnf("[Billing] could not fingerprint payment method %s: %v", pmID, err)
		return ""
	}
	return fingerprint
}
