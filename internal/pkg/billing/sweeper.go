package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

const (
	defaultGracePeriodDays      = 3
	defaultWebhookRetentionDays = 90
)

// Sweeper force-cancels subscriptions stuck past the payment grace window
// and prunes old processed ledger rows. It runs on a daily cron schedule.
type Sweeper struct {
	repo     Repository
	provider ProviderClient
	auditor  *Auditor
	cron     *cron.Cron
}

// NewSweeper creates a sweeper from injected dependencies.
func NewSweeper(repo Repository, client ProviderClient) *Sweeper {
	return &Sweeper{
		repo:     repo,
		provider: client,
		auditor:  NewAuditor(repo),
	}
}

// Start registers the sweep on the given cron spec and starts the
// scheduler. Call Stop on shutdown.
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.SweepPastDue(context.Background()); err != nil {
			log.Errorf("[Sweeper] sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("register sweep schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	log.Infof("[Sweeper] scheduled with spec %q", spec)
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// SweepPastDue cancels every subscription that has been past_due longer
// than the configured grace period. Provider-side cancel failures are
// logged and swallowed; the local cancellation proceeds because revoking
// access takes priority over provider bookkeeping. One failing
// subscription does not abort the sweep for the rest.
func (s *Sweeper) SweepPastDue(ctx context.Context) (int, error) {
	graceDays := s.repo.ConfigInt(models.ConfigKeyGracePeriodDays, defaultGracePeriodDays)
	cutoff := time.Now().UTC().Add(-time.Duration(graceDays) * 24 * time.Hour)

	subs, err := s.repo.PastDueSince(cutoff)
	if err != nil {
		return 0, fmt.Errorf("list past_due subscriptions: %w", err)
	}

	canceled := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return canceled, ctx.Err()
		}
		if err := s.cancelOne(ctx, &sub, graceDays); err != nil {
			log.Errorf("[Sweeper] failed to cancel subscription %d: %v", sub.ID, err)
			continue
		}
		canceled++
	}

	if canceled > 0 || len(subs) > 0 {
		log.Infof("[Sweeper] canceled %d/%d past_due subscriptions (grace %dd)", canceled, len(subs), graceDays)
	}

	s.pruneLedger()
	return canceled, nil
}

func (s *Sweeper) cancelOne(ctx context.Context, sub *models.Subscription, graceDays int) error {
	if sub.StripeSubscriptionID != "" {
		if err := s.provider.CancelSubscription(ctx, sub.StripeSubscriptionID, true); err != nil {
			log.Errorf("[Sweeper] provider cancel of %s failed, canceling locally anyway: %v", sub.StripeSubscriptionID, err)
		}
	}

	if err := s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
		"status":              models.SubStatusCanceled,
		"cancellation_reason": models.CancelReasonAutoCancelPastDue,
	}); err != nil {
		return err
	}

	s.auditor.Log(&models.AuditLog{
		ActorID:    models.AuditActorSystemCron,
		Action:     "auto_cancel_past_due",
		EntityType: "subscription",
		EntityID:   fmt.Sprint(sub.ID),
		Details:    fmt.Sprintf(`{"grace_period_days":%d,"organization_id":%d}`, graceDays, sub.OrganizationID),
	})
	return nil
}

// pruneLedger deletes processed webhook ledger rows older than the
// retention window. Pending and failed rows are kept so retries and stuck
// events stay diagnosable.
func (s *Sweeper) pruneLedger() {
	retentionDays := s.repo.ConfigInt(models.ConfigKeyWebhookRetentionDays, defaultWebhookRetentionDays)
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	pruned, err := s.repo.DeleteProcessedEventsBefore(cutoff)
	if err != nil {
		log.Errorf("[Sweeper] ledger prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Infof("[Sweeper] pruned %d processed webhook events older than %dd", pruned, retentionDays)
	}
}
