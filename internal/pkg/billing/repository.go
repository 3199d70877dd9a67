package billing

import (
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	UpsertSubscription(sub *models.Subscription) error
	SaveSubscription(sub *models.Subscription) error
	UpdateSubscriptionFields(id uint, fields map[string]interface{}) error
	SubscriptionByID(id uint) (*models.Subscription, error)
	SubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error)
	CurrentSubscriptionForOrg(orgID uint) (*models.Subscription, error)
	DuplicateFingerprint(excludeID uint, fingerprint string, planIDs []uint) (*models.Subscription, error)
	PastDueSince(cutoff time.Time) ([]models.Subscription, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	UpdateWebhookEventStatus(id uint, status, errorMessage string) error
	DeleteProcessedEventsBefore(cutoff time.Time) (int64, error)

	OrganizationByID(id uint) (*models.Organization, error)
	SetOrganizationStripeCustomer(orgID uint, customerID string) error

	ConfigInt(key string, def int) int
	CreateAuditLog(entry *models.AuditLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// UpsertSubscription atomically inserts or updates by the unique
// (stripe_subscription_id, organization_id) pair. A webhook reflects
// provider ground truth, so the upcoming_* columns are overwritten with
// whatever the caller set (normally nil). The card fingerprint is managed
// separately and never assigned here.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_subscription_id"},
			{Name: "organization_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"bundle_id",
			"status",
			"current_period_start",
			"current_period_end",
			"trial_start",
			"trial_end",
			"cancel_at_period_end",
			"upcoming_plan_id",
			"upcoming_bundle_id",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID and managed columns are populated after upsert.
	return r.db.
		Where("stripe_subscription_id = ? AND organization_id = ?", sub.StripeSubscriptionID, sub.OrganizationID).
		First(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) UpdateSubscriptionFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) SubscriptionByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) SubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CurrentSubscriptionForOrg returns the organization's newest
// non-terminal subscription.
func (r *gormRepository) CurrentSubscriptionForOrg(orgID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("organization_id = ? AND status IN ?", orgID, []string{
			models.SubStatusActive,
			models.SubStatusTrialing,
			models.SubStatusPastDue,
			models.SubStatusPaused,
		}).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) DuplicateFingerprint(excludeID uint, fingerprint string, planIDs []uint) (*models.Subscription, error) {
	if fingerprint == "" || len(planIDs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var sub models.Subscription
	err := r.db.
		Where("id <> ? AND card_fingerprint = ? AND plan_id IN ?", excludeID, fingerprint, planIDs).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) PastDueSince(cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("status = ? AND last_payment_failure_at IS NOT NULL AND last_payment_failure_at < ?",
			models.SubStatusPastDue, cutoff).
		Find(&subs).Error
	return subs, err
}

// CreateWebhookEventIfNotExists inserts a pending ledger row unless one
// already exists for the event ID. The unique constraint makes this safe
// under concurrent duplicate delivery; created reports whether this call
// inserted the row.
func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) UpdateWebhookEventStatus(id uint, status, errorMessage string) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}).Error
}

func (r *gormRepository) DeleteProcessedEventsBefore(cutoff time.Time) (int64, error) {
	tx := r.db.
		Where("status = ? AND created_at < ?", models.WebhookStatusProcessed, cutoff).
		Delete(&models.WebhookEvent{})
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) OrganizationByID(id uint) (*models.Organization, error) {
	return models.FindOrganizationByID(r.db, id)
}

func (r *gormRepository) SetOrganizationStripeCustomer(orgID uint, customerID string) error {
	return r.db.Model(&models.Organization{}).
		Where("id = ?", orgID).
		Update("stripe_customer_id", customerID).Error
}

func (r *gormRepository) ConfigInt(key string, def int) int {
	return models.GetSystemConfigInt(r.db, key, def)
}

func (r *gormRepository) CreateAuditLog(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}
