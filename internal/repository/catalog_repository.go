package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

// CatalogRepository serves the reference tables requisitions draw from:
// materials, units, stores and sites. All reads, no writes; the catalog is
// seeded by migration and managed out of band.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetMaterial returns one material by id.
func (r *CatalogRepository) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	const query = `SELECT id, code, name, category_id, unit_id, active, created_at FROM materials WHERE id = $1`
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// MaterialsByIDs returns the materials matching the given ids. Missing ids
// are simply absent from the result; callers check coverage themselves.
func (r *CatalogRepository) MaterialsByIDs(ctx context.Context, ids []string) ([]models.Material, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, code, name, category_id, unit_id, active, created_at FROM materials WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build materials query: %w", err)
	}
	query = r.db.Rebind(query)
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	return materials, nil
}

// ListMaterials returns active materials, optionally filtered by category.
func (r *CatalogRepository) ListMaterials(ctx context.Context, categoryID string) ([]models.Material, error) {
	query := `SELECT id, code, name, category_id, unit_id, active, created_at FROM materials WHERE active = TRUE`
	args := []interface{}{}
	if categoryID != "" {
		query += ` AND category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY name`
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListUnits returns all measurement units.
func (r *CatalogRepository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	var units []models.Unit
	if err := r.db.SelectContext(ctx, &units, `SELECT id, name, symbol FROM units ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	return units, nil
}

// GetStore returns one store by id.
func (r *CatalogRepository) GetStore(ctx context.Context, id string) (*models.Store, error) {
	const query = `SELECT id, name, location, active, created_at FROM stores WHERE id = $1`
	var store models.Store
	if err := r.db.GetContext(ctx, &store, query, id); err != nil {
		return nil, err
	}
	return &store, nil
}

// ListStores returns active stores.
func (r *CatalogRepository) ListStores(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.SelectContext(ctx, &stores,
		`SELECT id, name, location, active, created_at FROM stores WHERE active = TRUE ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// GetSite returns one site by id.
func (r *CatalogRepository) GetSite(ctx context.Context, id string) (*models.Site, error) {
	const query = `SELECT id, name, location, active, created_at FROM sites WHERE id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, err
	}
	return &site, nil
}

// ListSites returns active sites.
func (r *CatalogRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := r.db.SelectContext(ctx, &sites,
		`SELECT id, name, location, active, created_at FROM sites WHERE active = TRUE ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}
