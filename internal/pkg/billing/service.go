package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/catalog"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the billing reconciliation core: the webhook ledger, the
// subscription reconciler, trial-abuse enforcement and checkout/plan-change
// entry points. All collaborators are injected so the core is testable
// without a live Stripe client or database.
type Service struct {
	repo        Repository
	catalog     *catalog.Service
	provisioner *entitlements.Provisioner
	provider    ProviderClient
	auditor     *Auditor
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, cat *catalog.Service, prov *entitlements.Provisioner, client ProviderClient) *Service {
	return &Service{
		repo:        repo,
		catalog:     cat,
		provisioner: prov,
		provider:    client,
		auditor:     NewAuditor(repo),
	}
}

// NewServiceFromDB wires a billing service over a GORM handle with the
// real Stripe client.
func NewServiceFromDB(db *gorm.DB, client ProviderClient) *Service {
	return NewService(
		NewRepository(db),
		catalog.NewService(catalog.NewRepository(db)),
		entitlements.NewProvisioner(entitlements.NewRepository(db)),
		client,
	)
}

// ProcessEvent runs one webhook event end-to-end: ledger check, handler
// dispatch, ledger finalization. The returned error signals the caller to
// respond 5xx so the provider retries with the same event ID.
func (s *Service) ProcessEvent(ctx context.Context, eventID, eventType string, payload []byte) error {
	shouldProcess, rec, err := s.RecordOrSkip(ctx, eventID, eventType, payload)
	if err != nil {
		return fmt.Errorf("record webhook event %s: %w", eventID, err)
	}
	if !shouldProcess {
		return nil
	}

	if err := s.handleEvent(ctx, eventType, payload); err != nil {
		if markErr := s.MarkFailed(ctx, rec.ID, err); markErr != nil {
			log.Errorf("[Billing] failed to mark event %s failed: %v", eventID, markErr)
		}
		return fmt.Errorf("handle %s event %s: %w", eventType, eventID, err)
	}
	return s.MarkProcessed(ctx, rec.ID)
}

func (s *Service) handleEvent(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case "customer.subscription.created", "customer.subscription.updated":
		var sub StripeSubscription
		if err := json.Unmarshal(payload, &sub); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		return s.SyncSubscription(ctx, &sub)

	case "customer.subscription.deleted":
		var sub StripeSubscription
		if err := json.Unmarshal(payload, &sub); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		return s.HandleSubscriptionDeleted(ctx, &sub)

	case "checkout.session.completed":
		var sess StripeCheckoutSession
		if err := json.Unmarshal(payload, &sess); err != nil {
			return fmt.Errorf("decode checkout session payload: %w", err)
		}
		return s.HandleCheckoutCompleted(ctx, &sess)

	case "invoice.payment_failed":
		var inv StripeInvoice
		if err := json.Unmarshal(payload, &inv); err != nil {
			return fmt.Errorf("decode invoice payload: %w", err)
		}
		return s.HandleInvoicePaymentFailed(ctx, &inv)

	case "invoice.payment_succeeded":
		var inv StripeInvoice
		if err := json.Unmarshal(payload, &inv); err != nil {
			return fmt.Errorf("decode invoice payload: %w", err)
		}
		return s.HandleInvoicePaymentSucceeded(ctx, &inv)

	default:
		log.Infof("[Billing] ignoring webhook event type %s", eventType)
		return nil
	}
}

// HandleCheckoutCompleted links the Stripe customer created during
// checkout to the organization and records the subscription reference.
// The full subscription state arrives through its own
// customer.subscription.* events; a placeholder row is only created when
// none of those has landed yet, so their data is never overwritten here.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, sess *StripeCheckoutSession) error {
	_ = ctx
	orgID := sess.OrganizationID()
	if orgID == 0 {
		log.Warnf("[Billing] checkout session %s has no organization metadata, skipping", sess.ID)
		return nil
	}
	if sess.Customer != "" {
		if err := s.repo.SetOrganizationStripeCustomer(orgID, sess.Customer); err != nil {
			return fmt.Errorf("link stripe customer %s to org %d: %w", sess.Customer, orgID, err)
		}
	}

	if sess.Subscription != "" {
		if _, err := s.repo.SubscriptionByStripeID(sess.Subscription); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("look up subscription %s: %w", sess.Subscription, err)
			}
			if err := s.repo.SaveSubscription(&models.Subscription{
				OrganizationID:       orgID,
				StripeSubscriptionID: sess.Subscription,
				Status:               models.SubStatusIncomplete,
			}); err != nil {
				return fmt.Errorf("record subscription %s from checkout: %w", sess.Subscription, err)
			}
		}
	}

	s.auditor.Log(&models.AuditLog{
		ActorID:    models.AuditActorWebhook,
		Action:     "checkout_completed",
		EntityType: "organization",
		EntityID:   fmt.Sprint(orgID),
		Details:    fmt.Sprintf(`{"checkout_session":%q,"stripe_customer":%q,"stripe_subscription":%q}`, sess.ID, sess.Customer, sess.Subscription),
	})
	return nil
}

// HandleSubscriptionDeleted marks the local subscription canceled.
func (s *Service) HandleSubscriptionDeleted(ctx context.Context, ssub *StripeSubscription) error {
	_ = ctx
	sub, err := s.repo.SubscriptionByStripeID(ssub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] subscription.deleted for unknown subscription %s", ssub.ID)
			return nil
		}
		return err
	}
	return s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
		"status":             models.SubStatusCanceled,
		"upcoming_plan_id":   nil,
		"upcoming_bundle_id": nil,
	})
}

// HandleInvoicePaymentFailed moves the subscription to past_due and
// stamps the failure time the grace sweeper measures from.
func (s *Service) HandleInvoicePaymentFailed(ctx context.Context, inv *StripeInvoice) error {
	_ = ctx
	subID := inv.SubscriptionID()
	if subID == "" {
		log.Infof("[Billing] invoice %s carries no subscription reference, skipping", inv.ID)
		return nil
	}
	sub, err := s.repo.SubscriptionByStripeID(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] payment_failed for unknown subscription %s", subID)
			return nil
		}
		return err
	}
	now := time.Now().UTC()
	return s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
		"status":                  models.SubStatusPastDue,
		"last_payment_failure_at": &now,
	})
}

// HandleInvoicePaymentSucceeded clears the failure marker and restores a
// past_due subscription to active.
func (s *Service) HandleInvoicePaymentSucceeded(ctx context.Context, inv *StripeInvoice) error {
	_ = ctx
	subID := inv.SubscriptionID()
	if subID == "" {
		return nil
	}
	sub, err := s.repo.SubscriptionByStripeID(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	fields := map[string]interface{}{
		"last_payment_failure_at": nil,
	}
	if sub.Status == models.SubStatusPastDue {
		fields["status"] = models.SubStatusActive
	}
	return s.repo.UpdateSubscriptionFields(sub.ID, fields)
}

// StartCheckout opens a Stripe subscription checkout for a catalog price,
// creating the Stripe customer on first use.
func (s *Service) StartCheckout(ctx context.Context, orgID uint, priceID, successURL, cancelURL string) (string, error) {
	org, err := s.repo.OrganizationByID(orgID)
	if err != nil {
		return "", fmt.Errorf("load organization %d: %w", orgID, err)
	}

	plan, bundle, err := s.catalog.ResolvePrice(priceID)
	if err != nil {
		return "", err
	}
	if plan == nil && bundle == nil {
		return "", fmt.Errorf("price %s matches no plan or bundle", priceID)
	}

	customerID := org.StripeCustomerID
	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, org.Name, orgID)
		if err != nil {
			return "", fmt.Errorf("create stripe customer for org %d: %w", orgID, err)
		}
		if err := s.repo.SetOrganizationStripeCustomer(orgID, customerID); err != nil {
			return "", err
		}
	}

	params := CheckoutParams{
		CustomerID:     customerID,
		PriceID:        priceID,
		OrganizationID: orgID,
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
		IdempotencyKey: uuid.NewString(),
	}
	if plan != nil && plan.IsTrialPlan() {
		params.TrialDays = plan.TrialDays
	}
	return s.provider.CreateCheckoutSession(ctx, params)
}

// ScheduleChange records a pending plan or bundle change on the
// organization's current subscription. Exactly one target must be set.
// The change is confirmed (and the upcoming fields cleared) by the next
// subscription webhook reflecting the new price.
func (s *Service) ScheduleChange(ctx context.Context, orgID uint, targetPlanID, targetBundleID *uint) error {
	_ = ctx
	if (targetPlanID == nil) == (targetBundleID == nil) {
		return errors.New("exactly one of plan or bundle target is required")
	}

	sub, err := s.repo.CurrentSubscriptionForOrg(orgID)
	if err != nil {
		return fmt.Errorf("load current subscription for org %d: %w", orgID, err)
	}

	if err := s.repo.UpdateSubscriptionFields(sub.ID, map[string]interface{}{
		"upcoming_plan_id":   targetPlanID,
		"upcoming_bundle_id": targetBundleID,
	}); err != nil {
		return err
	}

	details := "{}"
	if targetPlanID != nil {
		details = fmt.Sprintf(`{"upcoming_plan_id":%d}`, *targetPlanID)
	} else {
		details = fmt.Sprintf(`{"upcoming_bundle_id":%d}`, *targetBundleID)
	}
	s.auditor.Log(&models.AuditLog{
		ActorID:    fmt.Sprintf("org:%d", orgID),
		Action:     "schedule_plan_change",
		EntityType: "subscription",
		EntityID:   fmt.Sprint(sub.ID),
		Details:    details,
	})
	return nil
}

// ResyncSubscription fetches the subscription from Stripe and reconciles
// it, for the admin manual sync action.
func (s *Service) ResyncSubscription(ctx context.Context, stripeSubscriptionID string) error {
	ssub, err := s.provider.GetSubscription(ctx, stripeSubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", stripeSubscriptionID, err)
	}
	return s.SyncSubscription(ctx, ssub)
}
