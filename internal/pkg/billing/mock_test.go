package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/catalog"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository with the same upsert semantics as
// the GORM implementation.
type fakeRepo struct {
	subs        map[uint]*models.Subscription
	nextSubID   uint
	events      map[string]*models.WebhookEvent
	nextEventID uint
	orgs        map[uint]*models.Organization
	config      map[string]int
	audits      []models.AuditLog
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subs:   map[uint]*models.Subscription{},
		events: map[string]*models.WebhookEvent{},
		orgs:   map[uint]*models.Organization{},
		config: map[string]int{},
	}
}

func (r *fakeRepo) addSub(sub models.Subscription) *models.Subscription {
	r.nextSubID++
	sub.ID = r.nextSubID
	r.subs[sub.ID] = &sub
	return &sub
}

func (r *fakeRepo) UpsertSubscription(sub *models.Subscription) error {
	for _, existing := range r.subs {
		if existing.StripeSubscriptionID == sub.StripeSubscriptionID && existing.OrganizationID == sub.OrganizationID {
			existing.PlanID = sub.PlanID
			existing.BundleID = sub.BundleID
			existing.Status = sub.Status
			existing.CurrentPeriodStart = sub.CurrentPeriodStart
			existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
			existing.TrialStart = sub.TrialStart
			existing.TrialEnd = sub.TrialEnd
			existing.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
			existing.UpcomingPlanID = sub.UpcomingPlanID
			existing.UpcomingBundleID = sub.UpcomingBundleID
			*sub = *existing
			return nil
		}
	}
	r.nextSubID++
	sub.ID = r.nextSubID
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeRepo) SaveSubscription(sub *models.Subscription) error {
	if sub.ID == 0 {
		r.nextSubID++
		sub.ID = r.nextSubID
	}
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateSubscriptionFields(id uint, fields map[string]interface{}) error {
	sub, ok := r.subs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, val := range fields {
		switch key {
		case "status":
			sub.Status = val.(string)
		case "cancellation_reason":
			sub.CancellationReason = val.(string)
		case "card_fingerprint":
			sub.CardFingerprint = val.(string)
		case "upcoming_plan_id":
			sub.UpcomingPlanID = toUintPtr(val)
		case "upcoming_bundle_id":
			sub.UpcomingBundleID = toUintPtr(val)
		case "last_payment_failure_at":
			if val == nil {
				sub.LastPaymentFailureAt = nil
			} else {
				sub.LastPaymentFailureAt = val.(*time.Time)
			}
		default:
			return fmt.Errorf("fakeRepo: unhandled field %q", key)
		}
	}
	return nil
}

func toUintPtr(val interface{}) *uint {
	if val == nil {
		return nil
	}
	if p, ok := val.(*uint); ok {
		return p
	}
	return nil
}

func (r *fakeRepo) SubscriptionByID(id uint) (*models.Subscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeRepo) SubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	for _, sub := range r.subs {
		if sub.StripeSubscriptionID == stripeSubscriptionID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) CurrentSubscriptionForOrg(orgID uint) (*models.Subscription, error) {
	var best *models.Subscription
	for _, sub := range r.subs {
		if sub.OrganizationID != orgID || sub.IsTerminal() || sub.Status == models.SubStatusIncomplete {
			continue
		}
		if best == nil || sub.ID > best.ID {
			best = sub
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRepo) DuplicateFingerprint(excludeID uint, fingerprint string, planIDs []uint) (*models.Subscription, error) {
	for _, sub := range r.subs {
		if sub.ID == excludeID || sub.CardFingerprint != fingerprint || sub.PlanID == nil {
			continue
		}
		for _, planID := range planIDs {
			if *sub.PlanID == planID {
				cp := *sub
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) PastDueSince(cutoff time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range r.subs {
		if sub.Status == models.SubStatusPastDue && sub.LastPaymentFailureAt != nil && sub.LastPaymentFailureAt.Before(cutoff) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if existing, ok := r.events[event.StripeEventID]; ok {
		cp := *existing
		return false, &cp, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	cp := *event
	r.events[event.StripeEventID] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakeRepo) UpdateWebhookEventStatus(id uint, status, errorMessage string) error {
	for _, event := range r.events {
		if event.ID == id {
			event.Status = status
			event.ErrorMessage = errorMessage
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) DeleteProcessedEventsBefore(cutoff time.Time) (int64, error) {
	var pruned int64
	for key, event := range r.events {
		if event.Status == models.WebhookStatusProcessed && event.CreatedAt.Before(cutoff) {
			delete(r.events, key)
			pruned++
		}
	}
	return pruned, nil
}

func (r *fakeRepo) OrganizationByID(id uint) (*models.Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *org
	return &cp, nil
}

func (r *fakeRepo) SetOrganizationStripeCustomer(orgID uint, customerID string) error {
	org, ok := r.orgs[orgID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	org.StripeCustomerID = customerID
	return nil
}

func (r *fakeRepo) ConfigInt(key string, def int) int {
	if val, ok := r.config[key]; ok {
		return val
	}
	return def
}

func (r *fakeRepo) CreateAuditLog(entry *models.AuditLog) error {
	r.audits = append(r.audits, *entry)
	return nil
}

// fakeCatalogRepo is an in-memory catalog.Repository.
type fakeCatalogRepo struct {
	plansByPrice   map[string]*models.Plan
	bundlesByPrice map[string]*models.Bundle
	plans          map[uint]*models.Plan
	bundles        map[uint]*models.Bundle
	limits         map[uint][]models.PlanLimit
	bundlePlans    map[uint][]uint
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		plansByPrice:   map[string]*models.Plan{},
		bundlesByPrice: map[string]*models.Bundle{},
		plans:          map[uint]*models.Plan{},
		bundles:        map[uint]*models.Bundle{},
		limits:         map[uint][]models.PlanLimit{},
		bundlePlans:    map[uint][]uint{},
	}
}

func (r *fakeCatalogRepo) addPlan(plan models.Plan, priceIDs ...string) *models.Plan {
	r.plans[plan.ID] = &plan
	for _, priceID := range priceIDs {
		r.plansByPrice[priceID] = &plan
	}
	return &plan
}

func (r *fakeCatalogRepo) addBundle(bundle models.Bundle, priceIDs ...string) *models.Bundle {
	r.bundles[bundle.ID] = &bundle
	for _, priceID := range priceIDs {
		r.bundlesByPrice[priceID] = &bundle
	}
	return &bundle
}

func (r *fakeCatalogRepo) PlanByPriceID(priceID string) (*models.Plan, error) {
	if plan, ok := r.plansByPrice[priceID]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) BundleByPriceID(priceID string) (*models.Bundle, error) {
	if bundle, ok := r.bundlesByPrice[priceID]; ok {
		return bundle, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) PlanByID(id uint) (*models.Plan, error) {
	if plan, ok := r.plans[id]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) BundleByID(id uint) (*models.Bundle, error) {
	if bundle, ok := r.bundles[id]; ok {
		return bundle, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) PlanLimits(planID uint) ([]models.PlanLimit, error) {
	return r.limits[planID], nil
}

func (r *fakeCatalogRepo) BundlePlanIDs(bundleID uint) ([]uint, error) {
	return r.bundlePlans[bundleID], nil
}

func (r *fakeCatalogRepo) PlanIDsForTool(toolID uint) ([]uint, error) {
	var ids []uint
	for _, plan := range r.plans {
		if plan.ToolID == toolID {
			ids = append(ids, plan.ID)
		}
	}
	return ids, nil
}

// fakeEntRepo is an in-memory entitlements.Repository mirroring the
// usage-preserving conflict-update semantics.
type fakeEntRepo struct {
	limits      map[uint][]models.PlanLimit
	bundlePlans map[uint][]uint
	ents        map[string]*models.OrganizationEntitlement
}

func newFakeEntRepo() *fakeEntRepo {
	return &fakeEntRepo{
		limits:      map[uint][]models.PlanLimit{},
		bundlePlans: map[uint][]uint{},
		ents:        map[string]*models.OrganizationEntitlement{},
	}
}

func entKey(orgID, featureID uint) string {
	return fmt.Sprintf("%d:%d", orgID, featureID)
}

func (r *fakeEntRepo) PlanLimits(planID uint) ([]models.PlanLimit, error) {
	return r.limits[planID], nil
}

func (r *fakeEntRepo) BundlePlanIDs(bundleID uint) ([]uint, error) {
	return r.bundlePlans[bundleID], nil
}

func (r *fakeEntRepo) UpsertEntitlement(ent *models.OrganizationEntitlement) error {
	key := entKey(ent.OrganizationID, ent.FeatureID)
	if existing, ok := r.ents[key]; ok {
		existing.ToolID = ent.ToolID
		existing.LimitAmount = ent.LimitAmount
		existing.ResetPeriod = ent.ResetPeriod
		return nil
	}
	cp := *ent
	r.ents[key] = &cp
	return nil
}

// fakeProvider is an in-memory ProviderClient recording calls.
type fakeProvider struct {
	cancelCalls      []string
	cancelImmediate  []bool
	cancelErr        error
	fingerprints     map[string]string
	customerDefaults map[string]string
	subscriptions    map[string]*StripeSubscription
	createdCustomers int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		fingerprints:     map[string]string{},
		customerDefaults: map[string]string{},
		subscriptions:    map[string]*StripeSubscription{},
	}
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, name string, orgID uint) (string, error) {
	p.createdCustomers++
	return fmt.Sprintf("cus_fake_%d", orgID), nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	return "https://checkout.stripe.test/" + params.PriceID, nil
}

func (p *fakeProvider) CancelSubscription(ctx context.Context, stripeSubscriptionID string, immediate bool) error {
	p.cancelCalls = append(p.cancelCalls, stripeSubscriptionID)
	p.cancelImmediate = append(p.cancelImmediate, immediate)
	return p.cancelErr
}

func (p *fakeProvider) GetSubscription(ctx context.Context, stripeSubscriptionID string) (*StripeSubscription, error) {
	sub, ok := p.subscriptions[stripeSubscriptionID]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", stripeSubscriptionID)
	}
	return sub, nil
}

func (p *fakeProvider) PaymentMethodFingerprint(ctx context.Context, paymentMethodID string) (string, error) {
	return p.fingerprints[paymentMethodID], nil
}

func (p *fakeProvider) CustomerDefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	return p.customerDefaults[customerID], nil
}

func newTestService(repo *fakeRepo, cat *fakeCatalogRepo, ent *fakeEntRepo, provider *fakeProvider) *Service {
	return NewService(
		repo,
		catalog.NewServiceWithoutCache(cat),
		entitlements.NewProvisioner(ent),
		provider,
	)
}
