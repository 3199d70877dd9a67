package billing

import (
	"context"
	"fmt"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// SyncSubscription maps a provider subscription payload onto the local
// Subscription row. The webhook is ground truth: the upsert overwrites
// status, periods and plan linkage, and clears any locally recorded
// pending downgrade. Errors propagate to the ledger so the provider
// retries; partial application is corrected idempotently on retry.
func (s *Service) SyncSubscription(ctx context.Context, ssub *StripeSubscription) error {
	orgID := ssub.OrganizationID()
	if orgID == 0 {
		log.Infof("[Billing] subscription %s carries no organization metadata, skipping", ssub.ID)
		return nil
	}

	status := MapStripeSubscriptionStatus(ssub.Status)
	periodStart, periodEnd := ssub.PeriodBounds()
	trialStart, trialEnd := ssub.TrialBounds()

	plan, bundle, err := s.resolveLineItems(ssub)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		OrganizationID:       orgID,
		StripeSubscriptionID: ssub.ID,
		Status:               status,
		CurrentPeriodStart:   periodStart,
		CurrentPeriodEnd:     periodEnd,
		TrialStart:           trialStart,
		TrialEnd:             trialEnd,
		CancelAtPeriodEnd:    ssub.CancelAtPeriodEnd,
	}
	if plan != nil {
		sub.PlanID = &plan.ID
	} else if bundle != nil {
		sub.BundleID = &bundle.ID
	}

	if err := s.repo.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("upsert subscription %s for org %d: %w", ssub.ID, orgID, err)
	}

	if status == models.SubStatusActive || status == models.SubStatusTrialing {
		if err := s.provisionEntitlements(ctx, orgID, plan, bundle); err != nil {
			return err
		}
	}

	if (status == models.SubStatusTrialing || status == models.SubStatusActive) && plan != nil && plan.IsTrialPlan() {
		fingerprint := s.resolveCardFingerprint(ctx, ssub)
		if fingerprint != "" {
			if err := s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
				"card_fingerprint": fingerprint,
			}); err != nil {
				return err
			}
			sub.CardFingerprint = fingerprint
			if err := s.CheckAndEnforce(ctx, sub, plan, fingerprint); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveLineItems maps the subscription's price IDs onto the catalog.
// Plans are checked before bundles; the first resolved item wins.
// An unresolvable price is skipped with a warning, and a subscription
// whose items all fail resolution is still recorded plan-less.
func (s *Service) resolveLineItems(ssub *StripeSubscription) (*models.Plan, *models.Bundle, error) {
	priceIDs := ssub.PriceIDs()
	for _, priceID := range priceIDs {
		plan, bundle, err := s.catalog.ResolvePrice(priceID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve price %s: %w", priceID, err)
		}
		if plan != nil || bundle != nil {
			return plan, bundle, nil
		}
		log.Warnf("[Billing] price %s on subscription %s matches no plan or bundle", priceID, ssub.ID)
	}
	if len(priceIDs) > 0 {
		log.Warnf("[Billing] subscription %s resolved no catalog entry, storing without plan linkage", ssub.ID)
	}
	return nil, nil, nil
}

func (s *Service) provisionEntitlements(ctx context.Context, orgID uint, plan *models.Plan, bundle *models.Bundle) error {
	switch {
	case plan != nil:
		if err := s.provisioner.ProvisionForPlan(ctx, orgID, plan.ID); err != nil {
			return fmt.Errorf("provision entitlements for org %d plan %d: %w", orgID, plan.ID, err)
		}
	case bundle != nil:
		if err := s.provisioner.ProvisionForBundle(ctx, orgID, bundle.ID); err != nil {
			return fmt.Errorf("provision entitlements for org %d bundle %d: %w", orgID, bundle.ID, err)
		}
	}
	return nil
}
