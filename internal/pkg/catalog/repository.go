package catalog

import (
	"github.com/ToolDockHQ/ToolDock/app/models"
	"gorm.io/gorm"
)

// Repository provides read access to the plan/bundle/feature reference data.
type Repository interface {
	PlanByPriceID(priceID string) (*models.Plan, error)
	BundleByPriceID(priceID string) (*models.Bundle, error)
	PlanByID(id uint) (*models.Plan, error)
	BundleByID(id uint) (*models.Bundle, error)
	PlanLimits(planID uint) ([]models.PlanLimit, error)
	BundlePlanIDs(bundleID uint) ([]uint, error)
	PlanIDsForTool(toolID uint) ([]uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a catalog repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) PlanByPriceID(priceID string) (*models.Plan, error) {
	var p models.Plan
	err := r.db.
		Where("stripe_price_monthly_id = ? OR stripe_price_yearly_id = ?", priceID, priceID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) BundleByPriceID(priceID string) (*models.Bundle, error) {
	var b models.Bundle
	err := r.db.
		Where("stripe_price_monthly_id = ? OR stripe_price_yearly_id = ?", priceID, priceID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) PlanByID(id uint) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) BundleByID(id uint) (*models.Bundle, error) {
	var b models.Bundle
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
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

func (r *gormRepository) PlanIDsForTool(toolID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Plan{}).
		Where("tool_id = ?", toolID).
		Pluck("id", &ids).Error
	return ids, err
}
