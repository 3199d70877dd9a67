package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ToolDockHQ/ToolDock/app/models"
	"github.com/ToolDockHQ/ToolDock/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const priceCacheTTL = 5 * time.Minute

// Service resolves Stripe price IDs to catalog plans and bundles. Lookups
// go through a redis read-through cache because the same handful of price
// IDs arrives on every webhook.
type Service struct {
	repo     Repository
	useCache bool
}

// NewService creates a catalog service with caching enabled.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, useCache: true}
}

// NewServiceWithoutCache creates a catalog service that always hits the DB.
func NewServiceWithoutCache(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolvePrice maps a Stripe price ID to a plan or a bundle. Plans are
// checked first. Returns (nil, nil, nil) when the price is unknown.
func (s *Service) ResolvePrice(priceID string) (*models.Plan, *models.Bundle, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, nil, nil
	}

	if s.useCache {
		if plan, bundle, ok := s.cachedResolution(priceID); ok {
			return plan, bundle, nil
		}
	}

	plan, err := s.repo.PlanByPriceID(priceID)
	if err == nil {
		s.storeResolution(priceID, "plan", plan.ID)
		return plan, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	bundle, err := s.repo.BundleByPriceID(priceID)
	if err == nil {
		s.storeResolution(priceID, "bundle", bundle.ID)
		return nil, bundle, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	s.storeResolution(priceID, "none", 0)
	return nil, nil, nil
}

// PlanByID loads a plan by primary key.
func (s *Service) PlanByID(id uint) (*models.Plan, error) {
	return s.repo.PlanByID(id)
}

// BundleByID loads a bundle by primary key.
func (s *Service) BundleByID(id uint) (*models.Bundle, error) {
	return s.repo.BundleByID(id)
}

// PlanLimits returns the limit templates for a plan with features preloaded.
func (s *Service) PlanLimits(planID uint) ([]models.PlanLimit, error) {
	return s.repo.PlanLimits(planID)
}

// BundlePlanIDs returns the member plan IDs of a bundle.
func (s *Service) BundlePlanIDs(bundleID uint) ([]uint, error) {
	return s.repo.BundlePlanIDs(bundleID)
}

// PlanIDsForTool returns all plan IDs belonging to a tool.
func (s *Service) PlanIDsForTool(toolID uint) ([]uint, error) {
	return s.repo.PlanIDsForTool(toolID)
}

func priceCacheKey(priceID string) string {
	return "catalog:price:" + priceID
}

func (s *Service) cachedResolution(priceID string) (*models.Plan, *models.Bundle, bool) {
	raw, err := cache.Get(priceCacheKey(priceID))
	if err != nil {
		return nil, nil, false
	}

	kind, idStr, found := strings.Cut(raw, ":")
	if !found {
		return nil, nil, false
	}
	switch kind {
	case "none":
		return nil, nil, true
	case "plan":
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return nil, nil, false
		}
		plan, err := s.repo.PlanByID(uint(id))
		if err != nil {
			return nil, nil, false
		}
		return plan, nil, true
	case "bundle":
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return nil, nil, false
		}
		bundle, err := s.repo.BundleByID(uint(id))
		if err != nil {
			return nil, nil, false
		}
		return nil, bundle, true
	}
	return nil, nil, false
}

func (s *Service) storeResolution(priceID, kind string, id uint) {
	if !s.useCache {
		return
	}
	if err := cache.Set(priceCacheKey(priceID), fmt.Sprintf("%s:%d", kind, id), priceCacheTTL); err != nil {
		log.Warnf("[Catalog] failed to cache price resolution for %s: %v", priceID, err)
	}
}
