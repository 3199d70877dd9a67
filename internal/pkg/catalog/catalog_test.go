package catalog

import (
	"testing"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memRepo struct {
	plansByPrice   map[string]*models.Plan
	bundlesByPrice map[string]*models.Bundle
}

func (r *memRepo) PlanByPriceID(priceID string) (*models.Plan, error) {
	if plan, ok := r.plansByPrice[priceID]; ok {
		return plan, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) BundleByPriceID(priceID string) (*models.Bundle, error) {
	if bundle, ok := r.bundlesByPrice[priceID]; ok {
		return bundle, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) PlanByID(id uint) (*models.Plan, error) { return nil, gorm.ErrRecordNotFound }

func (r *memRepo) BundleByID(id uint) (*models.Bundle, error) { return nil, gorm.ErrRecordNotFound }

func (r *memRepo) PlanLimits(planID uint) ([]models.PlanLimit, error) { return nil, nil }

func (r *memRepo) BundlePlanIDs(bundleID uint) ([]uint, error) { return nil, nil }

func (r *memRepo) PlanIDsForTool(toolID uint) ([]uint, error) { return nil, nil }

func newTestCatalog() (*memRepo, *Service) {
	repo := &memRepo{
		plansByPrice:   map[string]*models.Plan{},
		bundlesByPrice: map[string]*models.Bundle{},
	}
	return repo, NewServiceWithoutCache(repo)
}

func TestResolvePricePlan(t *testing.T) {
	repo, svc := newTestCatalog()
	repo.plansByPrice["price_pro"] = &models.Plan{ID: 11, Name: "Pro"}

	plan, bundle, err := svc.ResolvePrice("price_pro")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, uint(11), plan.ID)
	assert.Nil(t, bundle)
}

func TestResolvePriceBundle(t *testing.T) {
	repo, svc := newTestCatalog()
	repo.bundlesByPrice["price_suite"] = &models.Bundle{ID: 20, Name: "Suite"}

	plan, bundle, err := svc.ResolvePrice("price_suite")
	require.NoError(t, err)
	assert.Nil(t, plan)
	require.NotNil(t, bundle)
	assert.Equal(t, uint(20), bundle.ID)
}

func TestResolvePricePlanWinsOverBundle(t *testing.T) {
	repo, svc := newTestCatalog()
	repo.plansByPrice["price_both"] = &models.Plan{ID: 11}
	repo.bundlesByPrice["price_both"] = &models.Bundle{ID: 20}

	plan, bundle, err := svc.ResolvePrice("price_both")
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Nil(t, bundle, "plans are checked before bundles")
}

func TestResolvePriceUnknown(t *testing.T) {
	_, svc := newTestCatalog()

	plan, bundle, err := svc.ResolvePrice("price_nobody_sells")
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.Nil(t, bundle)
}

func TestResolvePriceEmptyAndWhitespace(t *testing.T) {
	repo, svc := newTestCatalog()
	repo.plansByPrice["price_pro"] = &models.Plan{ID: 11}

	plan, bundle, err := svc.ResolvePrice("")
	require.NoError(t, err)
	assert.Nil(t, plan)
	assert.Nil(t, bundle)

	plan, _, err = svc.ResolvePrice("  price_pro  ")
	require.NoError(t, err)
	require.NotNil(t, plan, "price IDs are trimmed before lookup")
}
