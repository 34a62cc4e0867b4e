package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/dto"
	"github.com/noah-isme/site-requisition-api/internal/models"
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type receiptRepository interface {
	Receive(ctx context.Context, params repository.ReceiveParams) (*models.Request, error)
}

// ReceiptService confirms site-side receipt of issued materials. Each
// confirmed line must match the outstanding issued quantity exactly; partial
// acknowledgements are rejected so the reconciliation always balances.
type ReceiptService struct {
	repo      receiptRepository
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReceiptService constructs ReceiptService.
func NewReceiptService(repo receiptRepository, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReceiptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{repo: repo, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// Receive confirms receipt for the listed items.
func (s *ReceiptService) Receive(ctx context.Context, requestID, receivedBy string, req dto.ReceiveRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}

	lines := make([]repository.ReceiveLine, 0, len(req.Lines))
	seen := make(map[string]struct{}, len(req.Lines))
	for _, line := range req.Lines {
		if _, dup := seen[line.ItemID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "an item appears on more than one line")
		}
		seen[line.ItemID] = struct{}{}
		if !line.Qty.IsPositive() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "received quantity must be positive")
		}
		lines = append(lines, repository.ReceiveLine{ItemID: line.ItemID, Qty: line.Qty})
	}

	request, err := s.repo.Receive(ctx, repository.ReceiveParams{
		RequestID:  requestID,
		Lines:      lines,
		ReceivedBy: receivedBy,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requisition not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm receipt")
	}

	s.metrics.RecordTransition(request.Status)
	s.recordAudit(ctx, requestID, receivedBy, request.Status, len(lines))

	s.logger.Info("receipt confirmed",
		zap.String("request_id", requestID),
		zap.Int("lines", len(lines)),
		zap.String("status", string(request.Status)))
	return request, nil
}

func (s *ReceiptService) recordAudit(ctx context.Context, requestID, receivedBy string, status models.RequestStatus, lines int) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"status": status, "lines": lines})
	if err != nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &receivedBy,
		Action:     models.AuditActionRequisitionReceive,
		Resource:   "requisition",
		ResourceID: &requestID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record receipt audit log", zap.Error(err))
	}
}
