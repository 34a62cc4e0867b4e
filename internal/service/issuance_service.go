package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type issuanceLedger interface {
	IssueBatch(ctx context.Context, params repository.IssueBatchParams) (*repository.IssueBatchResult, error)
}

type requestReader interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
}

type auditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// IssuanceResult is the outcome of a committed issuance batch.
type IssuanceResult struct {
	Request *models.Request `json:"request"`
	Stocks  []models.Stock  `json:"stocks"`
}

// IssuanceService converts approved quantity into stock OUT movements. The
// batch is all or nothing; validation and the no-oversell check happen under
// row locks inside the ledger transaction.
type IssuanceService struct {
	ledger    issuanceLedger
	requests  requestReader
	audit     auditRecorder
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewIssuanceService constructs IssuanceService.
func NewIssuanceService(ledger issuanceLedger, requests requestReader, audit auditRecorder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *IssuanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceService{ledger: ledger, requests: requests, audit: audit, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Issue commits an issuance batch against an approved requisition.
func (s *IssuanceService) Issue(ctx context.Context, requestID, issuedBy string, req dto.IssueRequest) (*IssuanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid issuance payload")
	}

	lines := make([]repository.IssueLine, 0, len(req.Lines))
	seen := make(map[string]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if _, dup := seen[line.ItemID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "an item appears on more than one line")
		}
		seen[line.ItemID] = struct{}{}
		lines = append(lines, repository.IssueLine{ItemID: line.ItemID, StoreID: line.StoreID, Qty: line.Qty})
	}

	params := repository.IssueBatchParams{
		RequestID: requestID,
		Lines:     lines,
		IssuedBy:  issuedBy,
	}
	if req.Notes != "" {
		notes := req.Notes
		params.Notes = &notes
	}

	result, err := s.ledger.IssueBatch(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requisition not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue materials")
	}

	s.metrics.RecordIssuance()
	s.metrics.RecordTransition(result.Status)
	s.metrics.RecordLowStockAlerts(result.AlertsRaised)
	for range result.Stocks {
		s.metrics.RecordMovement(models.MovementOut, models.SourceIssue)
	}
	if err := s.cache.Invalidate(ctx, "stock:*"); err != nil {
		s.logger.Warn("stock cache invalidation failed", zap.Error(err))
	}
	s.recordAudit(ctx, requestID, issuedBy, result)

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload requisition")
	}

	s.logger.Info("materials issued",
		zap.String("request_id", requestID),
		zap.Int("lines", len(lines)),
		zap.String("status", string(result.Status)),
		zap.Int("alerts_raised", result.AlertsRaised))
	return &IssuanceResult{Request: request, Stocks: result.Stocks}, nil
}

func (s *IssuanceService) recordAudit(ctx context.Context, requestID, issuedBy string, result *repository.IssueBatchResult) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"status": result.Status, "lines": len(result.Stocks)})
	if err != nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &issuedBy,
		Action:     models.AuditActionRequisitionIssue,
		Resource:   "requisition",
		ResourceID: &requestID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record issuance audit log", zap.Error(err))
	}
}
