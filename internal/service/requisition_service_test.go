package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockRequisitionRepo struct {
	requests  map[string]models.Request
	created   *models.Request
	submitted models.RequestStatus
	staleOn   bool
}

func (m *mockRequisitionRepo) Create(ctx context.Context, request *models.Request, items []models.RequestItem) error {
	if request.ID == "" {
		request.ID = "req-new"
	}
	request.Items = items
	m.created = request
	return nil
}

func (m *mockRequisitionRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequisitionRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	out := make([]models.Request, 0, len(m.requests))
	for _, r := range m.requests {
		if filter.RequestedBy != "" && r.RequestedBy != filter.RequestedBy {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRequisitionRepo) Submit(ctx context.Context, requestID string, next models.RequestStatus, submittedAt time.Time) error {
	if m.staleOn {
		return sql.ErrNoRows
	}
	m.submitted = next
	return nil
}

type mockReviewerDirectory struct {
	dse    map[string]bool
	padiri map[string]bool
}

func (m *mockReviewerDirectory) SiteHasReviewer(ctx context.Context, siteID string, role models.UserRole) (bool, error) {
	switch role {
	case models.RoleDSE:
		return m.dse[siteID], nil
	case models.RolePadiri:
		return m.padiri[siteID], nil
	}
	return false, nil
}

type mockCatalog struct {
	sites     map[string]models.Site
	materials map[string]models.Material
	stores    map[string]models.Store
}

func (m *mockCatalog) GetSite(ctx context.Context, id string) (*models.Site, error) {
	if s, ok := m.sites[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalog) MaterialsByIDs(ctx context.Context, ids []string) ([]models.Material, error) {
	var out []models.Material
	for _, id := range ids {
		if mat, ok := m.materials[id]; ok {
			out = append(out, mat)
		}
	}
	return out, nil
}

func (m *mockCatalog) GetStore(ctx context.Context, id string) (*models.Store, error) {
	if s, ok := m.stores[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalog) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	if mat, ok := m.materials[id]; ok {
		return &mat, nil
	}
	return nil, sql.ErrNoRows
}

func activeCatalog() *mockCatalog {
	return &mockCatalog{
		sites: map[string]models.Site{"site-1": {ID: "site-1", Active: true}},
		materials: map[string]models.Material{
			"mat-1": {ID: "mat-1", Active: true},
			"mat-2": {ID: "mat-2", Active: true},
		},
		stores: map[string]models.Store{"store-1": {ID: "store-1", Active: true}},
	}
}

func requireAppError(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	assert.Equal(t, want.Code, appErr.Code)
}

func TestRequisitionServiceCreate(t *testing.T) {
	repo := &mockRequisitionRepo{}
	svc := NewRequisitionService(repo, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	request, err := svc.Create(context.Background(), "user-1", dto.CreateRequestRequest{
		SiteID: "site-1",
		Items: []dto.RequestItemInput{
			{MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("100")},
			{MaterialID: "mat-2", UnitID: "unit-2", QtyRequested: dec("5.5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, request.Status)
	assert.Equal(t, "user-1", request.RequestedBy)
	require.Len(t, repo.created.Items, 2)
	assert.True(t, repo.created.Items[0].QtyIssued.IsZero())
}

func TestRequisitionServiceCreateDuplicateMaterial(t *testing.T) {
	svc := NewRequisitionService(&mockRequisitionRepo{}, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateRequestRequest{
		SiteID: "site-1",
		Items: []dto.RequestItemInput{
			{MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("100")},
			{MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("50")},
		},
	})
	requireAppError(t, err, appErrors.ErrDuplicateMaterial)
}

func TestRequisitionServiceCreateUnknownMaterial(t *testing.T) {
	svc := NewRequisitionService(&mockRequisitionRepo{}, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateRequestRequest{
		SiteID: "site-1",
		Items:  []dto.RequestItemInput{{MaterialID: "mat-missing", UnitID: "unit-1", QtyRequested: dec("10")}},
	})
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestRequisitionServiceCreateNonPositiveQuantity(t *testing.T) {
	svc := NewRequisitionService(&mockRequisitionRepo{}, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	_, err := svc.Create(context.Background(), "user-1", dto.CreateRequestRequest{
		SiteID: "site-1",
		Items:  []dto.RequestItemInput{{MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("-3")}},
	})
	requireAppError(t, err, appErrors.ErrValidation)
}

func draftRequest(id, requestedBy string) models.Request {
	return models.Request{
		ID:          id,
		SiteID:      "site-1",
		RequestedBy: requestedBy,
		Status:      models.StatusDraft,
		Items: []models.RequestItem{
			{ID: "item-1", RequestID: id, MaterialID: "mat-1", UnitID: "unit-1", QtyRequested: dec("100")},
		},
	}
}

func TestRequisitionServiceSubmitRouting(t *testing.T) {
	cases := []struct {
		name   string
		dse    bool
		padiri bool
		want   models.RequestStatus
	}{
		{name: "dse assigned", dse: true, padiri: true, want: models.StatusDSEReview},
		{name: "padiri only", dse: false, padiri: true, want: models.StatusPadiriReview},
		{name: "no reviewers", dse: false, padiri: false, want: models.StatusSubmitted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockRequisitionRepo{requests: map[string]models.Request{"req-1": draftRequest("req-1", "user-1")}}
			reviewers := &mockReviewerDirectory{
				dse:    map[string]bool{"site-1": tc.dse},
				padiri: map[string]bool{"site-1": tc.padiri},
			}
			svc := NewRequisitionService(repo, reviewers, activeCatalog(), nil, nil)

			request, err := svc.Submit(context.Background(), "req-1", "user-1", models.RoleSiteEngineer)
			require.NoError(t, err)
			assert.Equal(t, tc.want, request.Status)
			assert.Equal(t, tc.want, repo.submitted)
		})
	}
}

func TestRequisitionServiceSubmitOnlyRequester(t *testing.T) {
	repo := &mockRequisitionRepo{requests: map[string]models.Request{"req-1": draftRequest("req-1", "user-1")}}
	svc := NewRequisitionService(repo, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	_, err := svc.Submit(context.Background(), "req-1", "user-2", models.RoleSiteEngineer)
	requireAppError(t, err, appErrors.ErrForbidden)
}

func TestRequisitionServiceSubmitNotDraft(t *testing.T) {
	submitted := draftRequest("req-1", "user-1")
	submitted.Status = models.StatusDSEReview
	repo := &mockRequisitionRepo{requests: map[string]models.Request{"req-1": submitted}}
	svc := NewRequisitionService(repo, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	_, err := svc.Submit(context.Background(), "req-1", "user-1", models.RoleSiteEngineer)
	requireAppError(t, err, appErrors.ErrInvalidTransition)
}

func TestRequisitionServiceSubmitConcurrent(t *testing.T) {
	repo := &mockRequisitionRepo{
		requests: map[string]models.Request{"req-1": draftRequest("req-1", "user-1")},
		staleOn:  true,
	}
	reviewers := &mockReviewerDirectory{dse: map[string]bool{"site-1": true}}
	svc := NewRequisitionService(repo, reviewers, activeCatalog(), nil, nil)

	_, err := svc.Submit(context.Background(), "req-1", "user-1", models.RoleSiteEngineer)
	requireAppError(t, err, appErrors.ErrStaleStatus)
}

func TestRequisitionServiceListScopesSiteEngineer(t *testing.T) {
	repo := &mockRequisitionRepo{requests: map[string]models.Request{
		"req-1": draftRequest("req-1", "user-1"),
		"req-2": draftRequest("req-2", "user-2"),
	}}
	svc := NewRequisitionService(repo, &mockReviewerDirectory{}, activeCatalog(), nil, nil)

	requests, pagination, err := svc.List(context.Background(), "user-1", models.RoleSiteEngineer, dto.RequestQuery{RequestedBy: "user-2"})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "user-1", requests[0].RequestedBy)
	assert.Equal(t, 1, pagination.TotalCount)
}
