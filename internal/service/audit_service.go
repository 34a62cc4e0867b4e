package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type auditTrail interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

type approvalTrail interface {
	ListByRequest(ctx context.Context, requestID string) ([]models.Approval, error)
}

// AuditService exposes the read side of the audit and approval trails.
type AuditService struct {
	logs      auditTrail
	approvals approvalTrail
	logger    *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(logs auditTrail, approvals approvalTrail, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{logs: logs, approvals: approvals, logger: logger}
}

// Trail returns the audit log entries for one resource, newest first.
func (s *AuditService) Trail(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if resource == "" || resourceID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resource and resourceId are required")
	}
	logs, err := s.logs.ListByResource(ctx, resource, resourceID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}

// Approvals returns the reviewer action trail of a requisition, oldest first.
func (s *AuditService) Approvals(ctx context.Context, requestID string) ([]models.Approval, error) {
	approvals, err := s.approvals.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approvals")
	}
	return approvals, nil
}
