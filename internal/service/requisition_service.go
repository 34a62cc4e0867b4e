package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type requisitionRepository interface {
	Create(ctx context.Context, request *models.Request, items []models.RequestItem) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
	Submit(ctx context.Context, requestID string, next models.RequestStatus, submittedAt time.Time) error
}

type reviewerDirectory interface {
	SiteHasReviewer(ctx context.Context, siteID string, role models.UserRole) (bool, error)
}

type materialCatalog interface {
	GetSite(ctx context.Context, id string) (*models.Site, error)
	MaterialsByIDs(ctx context.Context, ids []string) ([]models.Material, error)
}

// RequisitionService covers the requester-facing lifecycle: drafting,
// submission routing and reads. Reviewer and fulfillment actions live in
// their own services.
type RequisitionService struct {
	repo      requisitionRepository
	reviewers reviewerDirectory
	catalog   materialCatalog
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequisitionService constructs RequisitionService.
func NewRequisitionService(repo requisitionRepository, reviewers reviewerDirectory, catalog materialCatalog, validate *validator.Validate, logger *zap.Logger) *RequisitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequisitionService{repo: repo, reviewers: reviewers, catalog: catalog, validator: validate, logger: logger}
}

// Create opens a draft requisition for the requester's site.
func (s *RequisitionService) Create(ctx context.Context, requestedBy string, req dto.CreateRequestRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requisition payload")
	}

	site, err := s.catalog.GetSite(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site")
	}
	if !site.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "site is inactive")
	}

	items := make([]models.RequestItem, 0, len(req.Items))
	materialIDs := make([]string, 0, len(req.Items))
	for _, input := range req.Items {
		if !input.QtyRequested.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("material %s: requested quantity must be positive", input.MaterialID))
		}
		materialIDs = append(materialIDs, input.MaterialID)
		items = append(items, models.RequestItem{
			MaterialID:   input.MaterialID,
			UnitID:       input.UnitID,
			QtyRequested: input.QtyRequested,
			QtyIssued:    decimal.Zero,
			QtyReceived:  decimal.Zero,
		})
	}
	if material, dup := models.DuplicateMaterial(items); dup {
		return nil, appErrors.Clone(appErrors.ErrDuplicateMaterial,
			fmt.Sprintf("material %s appears on more than one line", material))
	}

	materials, err := s.catalog.MaterialsByIDs(ctx, materialIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load materials")
	}
	known := make(map[string]models.Material, len(materials))
	for _, material := range materials {
		known[material.ID] = material
	}
	for _, id := range materialIDs {
		material, ok := known[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("material %s not found", id))
		}
		if !material.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material %s is inactive", id))
		}
	}

	request := &models.Request{
		SiteID:      req.SiteID,
		RequestedBy: requestedBy,
		Status:      models.StatusDraft,
	}
	if req.Notes != "" {
		notes := req.Notes
		request.Notes = &notes
	}
	if err := s.repo.Create(ctx, request, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requisition")
	}

	s.logger.Info("requisition created",
		zap.String("request_id", request.ID),
		zap.String("site_id", request.SiteID),
		zap.Int("items", len(items)))
	return request, nil
}

// Submit routes a draft into review. The review level is resolved from the
// site's reviewer assignments; a site without reviewers parks the request in
// SUBMITTED until one is assigned.
func (s *RequisitionService) Submit(ctx context.Context, requestID, actorID string, role models.UserRole) (*models.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequestedBy != actorID && role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may submit")
	}
	if request.Status != models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot submit in status %s", request.Status))
	}
	if len(request.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requisition has no items")
	}

	hasDSE, err := s.reviewers.SiteHasReviewer(ctx, request.SiteID, models.RoleDSE)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reviewers")
	}
	hasPadiri, err := s.reviewers.SiteHasReviewer(ctx, request.SiteID, models.RolePadiri)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reviewers")
	}

	next := models.RouteReviewStatus(hasDSE, hasPadiri)
	submittedAt := time.Now().UTC()
	if err := s.repo.Submit(ctx, requestID, next, submittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStaleStatus, "requisition was submitted concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit requisition")
	}

	request.Status = next
	request.SubmittedAt = &submittedAt
	s.logger.Info("requisition submitted",
		zap.String("request_id", requestID),
		zap.String("routed_to", string(next)))
	return request, nil
}

// Get returns a requisition with items and approval trail. Site engineers
// only see their own requests.
func (s *RequisitionService) Get(ctx context.Context, requestID, actorID string, role models.UserRole) (*models.Request, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleSiteEngineer && request.RequestedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "requisition belongs to another requester")
	}
	return request, nil
}

// List returns requisitions matching the query. Site engineers are scoped to
// their own requests regardless of the filter.
func (s *RequisitionService) List(ctx context.Context, actorID string, role models.UserRole, query dto.RequestQuery) ([]models.Request, *models.Pagination, error) {
	filter := models.RequestFilter{
		Status:      query.Status,
		SiteID:      query.SiteID,
		RequestedBy: query.RequestedBy,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	if role == models.RoleSiteEngineer {
		filter.RequestedBy = actorID
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requisitions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *RequisitionService) load(ctx context.Context, requestID string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requisition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requisition")
	}
	return request, nil
}
