package entitlements

import (
	"context"
	"fmt"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
)

// Provisioner materializes plan/bundle limit templates into per-organization
// entitlements. Provisioning is idempotent: an existing entitlement keeps
// its usage counter and reset timestamp, only the limit and cadence change.
type Provisioner struct {
	repo Repository
}

// NewProvisioner creates a provisioner from an injected repository.
func NewProvisioner(repo Repository) *Provisioner {
	return &Provisioner{repo: repo}
}

// ProvisionForPlan upserts one entitlement per plan limit for the
// organization. Errors propagate; a subscription must not silently go
// active without its entitlements.
func (p *Provisioner) ProvisionForPlan(ctx context.Context, orgID, planID uint) error {
	_ = ctx
	if orgID == 0 || planID == 0 {
		return fmt.Errorf("organization_id and plan_id are required")
	}

	limits, err := p.repo.PlanLimits(planID)
	if err != nil {
		return fmt.Errorf("load plan limits for plan %d: %w", planID, err)
	}

	now := time.Now()
	for _, limit := range limits {
		ent := &models.OrganizationEntitlement{
			OrganizationID: orgID,
			FeatureID:      limit.FeatureID,
			ToolID:         limit.Feature.ToolID,
			LimitAmount:    limit.DefaultLimit,
			UsageAmount:    0,
			ResetPeriod:    limit.ResetPeriod,
			LastResetAt:    now,
		}
		if err := p.repo.UpsertEntitlement(ent); err != nil {
			return fmt.Errorf("upsert entitlement org=%d feature=%d: %w", orgID, limit.FeatureID, err)
		}
	}
	return nil
}

// ProvisionForBundle provisions every member plan of the bundle in turn.
// A feature present in two bundled plans is provisioned twice; the last
// write wins on the limit amount.
func (p *Provisioner) ProvisionForBundle(ctx context.Context, orgID, bundleID uint) error {
	if orgID == 0 || bundleID == 0 {
		return fmt.Errorf("organization_id and bundle_id are required")
	}

	planIDs, err := p.repo.BundlePlanIDs(bundleID)
	if err != nil {
		return fmt.Errorf("load bundle plans for bundle %d: %w", bundleID, err)
	}
	for _, planID := range planIDs {
		if err := p.ProvisionForPlan(ctx, orgID, planID); err != nil {
			return err
		}
	}
	return nil
}
