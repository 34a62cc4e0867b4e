package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/noah-isme/site-requisition-api/internal/middleware"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	"github.com/noah-isme/site-requisition-api/internal/service"
)

const createRequisitionPayload = `{
	"siteId": "site-1",
	"items": [
		{"materialId": "mat-1", "unitId": "unit-1", "qtyRequested": "100"}
	]
}`

type requisitionStoreMock struct {
	requests map[string]*models.Request
}

func newRequisitionStoreMock(requests ...*models.Request) *requisitionStoreMock {
	store := &requisitionStoreMock{requests: make(map[string]*models.Request)}
	for _, request := range requests {
		store.requests[request.ID] = request
	}
	return store
}

func (m *requisitionStoreMock) Create(ctx context.Context, request *models.Request, items []models.RequestItem) error {
	request.ID = "req-new"
	request.CreatedAt = time.Now().UTC()
	request.Items = items
	m.requests[request.ID] = request
	return nil
}

func (m *requisitionStoreMock) GetByID(ctx context.Context, id string) (*models.Request, error) {
	request, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return request, nil
}

func (m *requisitionStoreMock) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	out := make([]models.Request, 0, len(m.requests))
	for _, request := range m.requests {
		out = append(out, *request)
	}
	return out, len(out), nil
}

func (m *requisitionStoreMock) Submit(ctx context.Context, requestID string, next models.RequestStatus, submittedAt time.Time) error {
	request, ok := m.requests[requestID]
	if !ok || request.Status != models.StatusDraft {
		return sql.ErrNoRows
	}
	request.Status = next
	request.SubmittedAt = &submittedAt
	return nil
}

func (m *requisitionStoreMock) Review(ctx context.Context, params repository.ReviewParams) error {
	request, ok := m.requests[params.RequestID]
	if !ok || request.Status != params.PriorStatus {
		return sql.ErrNoRows
	}
	request.Status = params.NextStatus
	return nil
}

func (m *requisitionStoreMock) ApplyModification(ctx context.Context, params repository.ModificationParams) (models.RequestStatus, error) {
	request, ok := m.requests[params.RequestID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return request.Status, nil
}

type reviewerDirectoryMock struct {
	dse    bool
	padiri bool
}

func (m *reviewerDirectoryMock) SiteHasReviewer(ctx context.Context, siteID string, role models.UserRole) (bool, error) {
	switch role {
	case models.RoleDSE:
		return m.dse, nil
	case models.RolePadiri:
		return m.padiri, nil
	}
	return false, nil
}

type catalogMock struct{}

func (catalogMock) GetSite(ctx context.Context, id string) (*models.Site, error) {
	return &models.Site{ID: id, Name: "North Site", Active: true}, nil
}

func (catalogMock) MaterialsByIDs(ctx context.Context, ids []string) ([]models.Material, error) {
	materials := make([]models.Material, 0, len(ids))
	for _, id := range ids {
		materials = append(materials, models.Material{ID: id, UnitID: "unit-1", Active: true})
	}
	return materials, nil
}

func draftRequisition(id, requestedBy string) *models.Request {
	return &models.Request{
		ID:          id,
		SiteID:      "site-1",
		RequestedBy: requestedBy,
		Status:      models.StatusDraft,
		Items: []models.RequestItem{{
			ID:           "item-1",
			RequestID:    id,
			MaterialID:   "mat-1",
			UnitID:       "unit-1",
			QtyRequested: decimal.RequireFromString("100"),
			QtyIssued:    decimal.Zero,
			QtyReceived:  decimal.Zero,
		}},
	}
}

func buildRequisitionRouter(store *requisitionStoreMock, reviewers *reviewerDirectoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: c.GetHeader("X-Test-User"),
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	requisitionService := service.NewRequisitionService(store, reviewers, catalogMock{}, nil, nil)
	approvalService := service.NewApprovalService(store, nil, nil, nil)
	requisitionHandler := NewRequisitionHandler(requisitionService, approvalService, nil, nil)

	requisitions := router.Group("/requisitions")
	requisitions.GET("/:id", requisitionHandler.Get)
	requisitions.POST("", internalmiddleware.RequireRoles(models.RoleSiteEngineer), requisitionHandler.Create)
	requisitions.POST("/:id/submit", internalmiddleware.RequireRoles(models.RoleSiteEngineer), requisitionHandler.Submit)
	requisitions.POST("/:id/approve", internalmiddleware.RequireRoles(models.RoleDSE, models.RolePadiri), requisitionHandler.Approve)

	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequisitionRoutesIntegration(t *testing.T) {
	t.Run("create success", func(t *testing.T) {
		router := buildRequisitionRouter(newRequisitionStoreMock(), &reviewerDirectoryMock{})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions", bytes.NewBufferString(createRequisitionPayload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleSiteEngineer))
		req.Header.Set("X-Test-User", "usr-1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"DRAFT"`)
	})

	t.Run("create forbidden for storekeeper", func(t *testing.T) {
		router := buildRequisitionRouter(newRequisitionStoreMock(), &reviewerDirectoryMock{})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions", bytes.NewBufferString(createRequisitionPayload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStorekeeper))
		req.Header.Set("X-Test-User", "usr-2")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("create unauthorized without claims", func(t *testing.T) {
		router := buildRequisitionRouter(newRequisitionStoreMock(), &reviewerDirectoryMock{})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions", bytes.NewBufferString(createRequisitionPayload))
		req.Header.Set("Content-Type", "application/json")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("submit routes to first review level", func(t *testing.T) {
		store := newRequisitionStoreMock(draftRequisition("req-1", "usr-1"))
		router := buildRequisitionRouter(store, &reviewerDirectoryMock{dse: true, padiri: true})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions/req-1/submit", nil)
		req.Header.Set("X-Test-Role", string(models.RoleSiteEngineer))
		req.Header.Set("X-Test-User", "usr-1")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"DSE_REVIEW"`)
	})

	t.Run("submit by another engineer forbidden", func(t *testing.T) {
		store := newRequisitionStoreMock(draftRequisition("req-1", "usr-1"))
		router := buildRequisitionRouter(store, &reviewerDirectoryMock{dse: true})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions/req-1/submit", nil)
		req.Header.Set("X-Test-Role", string(models.RoleSiteEngineer))
		req.Header.Set("X-Test-User", "usr-9")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("dse approval forwards to padiri", func(t *testing.T) {
		pending := draftRequisition("req-2", "usr-1")
		pending.Status = models.StatusDSEReview
		store := newRequisitionStoreMock(pending)
		router := buildRequisitionRouter(store, &reviewerDirectoryMock{dse: true, padiri: true})
		req, _ := http.NewRequest(http.MethodPost, "/requisitions/req-2/approve", bytes.NewBufferString(`{"comment":"ok"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleDSE))
		req.Header.Set("X-Test-User", "usr-5")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"status":"PADIRI_REVIEW"`)
	})

	t.Run("get unknown requisition returns not found", func(t *testing.T) {
		router := buildRequisitionRouter(newRequisitionStoreMock(), &reviewerDirectoryMock{})
		req, _ := http.NewRequest(http.MethodGet, "/requisitions/missing", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		req.Header.Set("X-Test-User", "usr-0")
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}
