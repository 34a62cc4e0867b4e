package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

type mockCatalogRepo struct {
	materials     []models.Material
	materialCalls int
	assignments   []models.SiteAssignment
}

func (m *mockCatalogRepo) ListMaterials(ctx context.Context, categoryID string) ([]models.Material, error) {
	m.materialCalls++
	return m.materials, nil
}

func (m *mockCatalogRepo) ListUnits(ctx context.Context) ([]models.Unit, error)   { return nil, nil }
func (m *mockCatalogRepo) ListStores(ctx context.Context) ([]models.Store, error) { return nil, nil }
func (m *mockCatalogRepo) ListSites(ctx context.Context) ([]models.Site, error)   { return nil, nil }

func (m *mockCatalogRepo) SiteAssignments(ctx context.Context, siteID string) ([]models.SiteAssignment, error) {
	return m.assignments, nil
}

func TestCatalogServiceMaterialsCached(t *testing.T) {
	repo := &mockCatalogRepo{materials: []models.Material{{ID: "mat-1", Name: "Cement", Active: true}}}
	cacheSvc := NewCacheService(newMapCacheRepo(), nil, time.Minute, nil, true)
	svc := NewCatalogService(repo, repo, cacheSvc, nil)

	first, err := svc.Materials(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Materials(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, repo.materialCalls)
}

func TestCatalogServiceSiteAssignments(t *testing.T) {
	repo := &mockCatalogRepo{assignments: []models.SiteAssignment{
		{SiteID: "site-1", UserID: "usr-9", Role: models.RoleDSE},
	}}
	svc := NewCatalogService(repo, repo, nil, nil)

	assignments, err := svc.SiteAssignments(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, models.RoleDSE, assignments[0].Role)
}
