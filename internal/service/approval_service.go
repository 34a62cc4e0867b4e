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
	"github.com/noah-isme/site-requisition-api/internal/repository"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type reviewRepository interface {
	GetByID(ctx context.Context, id string) (*models.Request, error)
	Review(ctx context.Context, params repository.ReviewParams) error
	ApplyModification(ctx context.Context, params repository.ModificationParams) (models.RequestStatus, error)
}

// ApprovalService handles the reviewer chain: approvals with optional
// quantity overrides, rejections and privileged modifications. The acting
// level always comes from the reviewer's role, never from the payload.
type ApprovalService struct {
	repo      reviewRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApprovalService constructs ApprovalService.
func NewApprovalService(repo reviewRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{repo: repo, metrics: metrics, validator: validate, logger: logger}
}

// Approve records an approval at the reviewer's level. A DSE approval
// forwards to the final review; only the PADIRI approval unlocks issuance.
// Omitted overrides default every line's approved quantity to its requested
// quantity at the final approval.
func (s *ApprovalService) Approve(ctx context.Context, requestID string, reviewer models.UserInfo, req dto.ApproveRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	level, ok := models.ApprovalLevelForRole(reviewer.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot review requisitions")
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !models.CanReview(request.Status, level) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s cannot act on status %s", level, request.Status))
	}

	final := level == models.LevelPadiri
	overrides := make([]models.ApprovalGrant, 0, len(req.Items))
	for _, input := range req.Items {
		overrides = append(overrides, models.ApprovalGrant{ItemID: input.ItemID, QtyApproved: input.QtyApproved})
	}
	// Fail fast against the loaded snapshot; the repository re-resolves the
	// grants under the row lock before writing.
	if _, err := models.ResolveApprovalGrants(request.Items, overrides, final); err != nil {
		return nil, mapRuleViolation(err)
	}

	next := models.NextReviewStatus(level)
	approval := models.Approval{
		RequestID:  requestID,
		Level:      level,
		Action:     models.ActionApproved,
		ReviewerID: reviewer.ID,
		CreatedAt:  time.Now().UTC(),
	}
	if req.Comment != "" {
		comment := req.Comment
		approval.Comment = &comment
	}

	err = s.repo.Review(ctx, repository.ReviewParams{
		RequestID:     requestID,
		PriorStatus:   request.Status,
		NextStatus:    next,
		Overrides:     overrides,
		FinalApproval: final,
		Approval:      approval,
		ReviewedAt:    approval.CreatedAt,
	})
	if err != nil {
		return nil, s.mapReviewError(err)
	}

	s.metrics.RecordTransition(next)
	s.logger.Info("requisition reviewed",
		zap.String("request_id", requestID),
		zap.String("level", string(level)),
		zap.String("next_status", string(next)))
	return s.load(ctx, requestID)
}

// Reject terminates a requisition under review. A reason is mandatory and is
// stored on the approval trail.
func (s *ApprovalService) Reject(ctx context.Context, requestID string, reviewer models.UserInfo, req dto.RejectRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrReasonRequired.Code, appErrors.ErrReasonRequired.Status, "a rejection reason is required")
	}
	level, ok := models.ApprovalLevelForRole(reviewer.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot review requisitions")
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !models.CanReview(request.Status, level) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s cannot act on status %s", level, request.Status))
	}

	reason := req.Reason
	approval := models.Approval{
		RequestID:  requestID,
		Level:      level,
		Action:     models.ActionRejected,
		ReviewerID: reviewer.ID,
		Comment:    &reason,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.repo.Review(ctx, repository.ReviewParams{
		RequestID:   requestID,
		PriorStatus: request.Status,
		NextStatus:  models.StatusRejected,
		Approval:    approval,
		ReviewedAt:  approval.CreatedAt,
	})
	if err != nil {
		return nil, s.mapReviewError(err)
	}

	s.metrics.RecordTransition(models.StatusRejected)
	s.logger.Info("requisition rejected",
		zap.String("request_id", requestID),
		zap.String("level", string(level)))
	return s.load(ctx, requestID)
}

// Modify applies a privileged post-approval modification as one unit. The
// whole command is validated against the current items before any write;
// lines with issued quantity can only have their approved quantity raised.
func (s *ApprovalService) Modify(ctx context.Context, requestID string, reviewer models.UserInfo, req dto.ModifyRequest) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrReasonRequired.Code, appErrors.ErrReasonRequired.Status, "a modification reason is required")
	}
	if reviewer.Role != models.RolePadiri && reviewer.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the final approver or an admin may modify")
	}
	level := models.LevelPadiri
	if len(req.Adds) == 0 && len(req.Edits) == 0 && len(req.Removals) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "modification contains no changes")
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !models.CanModify(request.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot modify in status %s", request.Status))
	}

	cmd := commandFromModifyRequest(req)
	// Fail fast against the loaded snapshot; the authoritative validation
	// re-runs inside the repository transaction on the row-locked items.
	if _, err := models.BuildModifiedItems(request.Items, cmd); err != nil {
		return nil, mapRuleViolation(err)
	}

	reason := req.Reason
	approval := models.Approval{
		RequestID:  requestID,
		Level:      level,
		Action:     models.ActionModified,
		ReviewerID: reviewer.ID,
		Comment:    &reason,
		CreatedAt:  time.Now().UTC(),
	}

	status, err := s.repo.ApplyModification(ctx, repository.ModificationParams{
		RequestID:   requestID,
		PriorStatus: request.Status,
		Command:     cmd,
		Approval:    approval,
		ModifiedAt:  approval.CreatedAt,
	})
	if err != nil {
		return nil, s.mapReviewError(err)
	}

	s.logger.Info("requisition modified",
		zap.String("request_id", requestID),
		zap.String("level", string(level)),
		zap.String("status", string(status)))
	return s.load(ctx, requestID)
}

func (s *ApprovalService) load(ctx context.Context, requestID string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "requisition not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requisition")
	}
	return request, nil
}

func (s *ApprovalService) mapReviewError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrStaleStatus, "requisition was reviewed concurrently")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist review")
}

func commandFromModifyRequest(req dto.ModifyRequest) models.ModificationCommand {
	cmd := models.ModificationCommand{Reason: req.Reason, Removals: req.Removals}
	for _, add := range req.Adds {
		approved := decimal.NullDecimal{}
		if add.QtyApproved != nil {
			approved = decimal.NewNullDecimal(*add.QtyApproved)
		}
		cmd.Adds = append(cmd.Adds, models.ModificationAdd{
			MaterialID:   add.MaterialID,
			UnitID:       add.UnitID,
			QtyRequested: add.QtyRequested,
			QtyApproved:  approved,
		})
	}
	for _, edit := range req.Edits {
		cmd.Edits = append(cmd.Edits, models.ModificationEdit{
			ItemID:       edit.ItemID,
			MaterialID:   edit.MaterialID,
			UnitID:       edit.UnitID,
			QtyRequested: edit.QtyRequested,
			QtyApproved:  edit.QtyApproved,
		})
	}
	return cmd
}

func mapRuleViolation(err error) error {
	switch {
	case errors.Is(err, models.ErrUnknownItem),
		errors.Is(err, models.ErrDuplicateItemLine),
		errors.Is(err, models.ErrNegativeQuantity),
		errors.Is(err, models.ErrNonPositiveQuantity):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, models.ErrItemHasIssuance):
		return appErrors.Wrap(err, appErrors.ErrItemLocked.Code, appErrors.ErrItemLocked.Status, err.Error())
	case errors.Is(err, models.ErrApprovedBelowIssued):
		return appErrors.Wrap(err, appErrors.ErrQuantityExceeded.Code, appErrors.ErrQuantityExceeded.Status, err.Error())
	case errors.Is(err, models.ErrDuplicateMaterialLine):
		return appErrors.Wrap(err, appErrors.ErrDuplicateMaterial.Code, appErrors.ErrDuplicateMaterial.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate command")
	}
}
