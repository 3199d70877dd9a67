package entitlements

import (
	"github.com/ToolDockHQ/ToolDock/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the provisioner.
type Repository interface {
	PlanLimits(planID uint) ([]models.PlanLimit, error)
	BundlePlanIDs(bundleID uint) ([]uint, error)
	UpsertEntitlement(ent *models.OrganizationEntitlement) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlements repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) PlanLimits(planID uint) ([]models.PlanLimit, error) {
	var limits []models.PlanLimit
	err := r.db.Preload("Feature").Where("plan_id = ?", planID).Find(&limits).Error
	return limits, err
}

func (r *gormRepository) BundlePlanIDs(bundleID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.BundlePlan{}).
		Where("bundle_id = ?", bundleID).
		Order("plan_id").
		Pluck("plan_id", &ids).Error
	return ids, err
}

// UpsertEntitlement inserts or updates an entitlement keyed by
// (organization_id, feature_id). On conflict only the limit columns are
// assigned, so usage_amount and last_reset_at survive plan changes.
func (r *gormRepository) UpsertEntitlement(ent *models.OrganizationEntitlement) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"},
			{Name: "feature_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tool_id",
			"limit_amount",
			"reset_period",
			"updated_at",
		}),
	}).Create(ent).Error
}
