package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type catalogRepository interface {
	ListMaterials(ctx context.Context, categoryID string) ([]models.Material, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	ListStores(ctx context.Context) ([]models.Store, error)
	ListSites(ctx context.Context) ([]models.Site, error)
}

type siteDirectory interface {
	SiteAssignments(ctx context.Context, siteID string) ([]models.SiteAssignment, error)
}

// CatalogService serves the reference data requisitions draw from. Listings
// are cached; the catalog changes rarely.
type CatalogService struct {
	repo      catalogRepository
	directory siteDirectory
	cache     *CacheService
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo catalogRepository, directory siteDirectory, cache *CacheService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, directory: directory, cache: cache, logger: logger}
}

// Materials returns active materials, optionally scoped to a category.
func (s *CatalogService) Materials(ctx context.Context, categoryID string) ([]models.Material, error) {
	key := "catalog:materials:" + categoryID
	var cached []models.Material
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	materials, err := s.repo.ListMaterials(ctx, categoryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	if err := s.cache.Set(ctx, key, materials, 0); err != nil {
		s.logger.Warn("failed to cache materials", zap.Error(err))
	}
	return materials, nil
}

// Units returns all measurement units.
func (s *CatalogService) Units(ctx context.Context) ([]models.Unit, error) {
	units, err := s.repo.ListUnits(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list units")
	}
	return units, nil
}

// Stores returns active stores.
func (s *CatalogService) Stores(ctx context.Context) ([]models.Store, error) {
	stores, err := s.repo.ListStores(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stores")
	}
	return stores, nil
}

// Sites returns active sites.
func (s *CatalogService) Sites(ctx context.Context) ([]models.Site, error) {
	sites, err := s.repo.ListSites(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sites")
	}
	return sites, nil
}

// SiteAssignments returns the reviewer assignments of a site. An empty result
// means a submission would park in SUBMITTED until reviewers are assigned.
func (s *CatalogService) SiteAssignments(ctx context.Context, siteID string) ([]models.SiteAssignment, error) {
	assignments, err := s.directory.SiteAssignments(ctx, siteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list site assignments")
	}
	return assignments, nil
}
