package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

const requestColumns = `id, site_id, requested_by, status, notes, submitted_at, approved_at, approved_by,
       issued_at, issued_by, received_at, received_by, closed_at, rejected_by, created_at, updated_at`

const requestItemColumns = `id, request_id, material_id, unit_id, qty_requested, qty_approved,
       qty_issued, qty_received, issued_at, issued_by, received_at, received_by, created_at, updated_at`

// RequisitionRepository persists requests, their items and the reviewer
// actions taken on them. Every mutating operation runs in one transaction and
// revalidates against the currently persisted state under a row lock.
type RequisitionRepository struct {
	db *sqlx.DB
}

// NewRequisitionRepository constructs the repository.
func NewRequisitionRepository(db *sqlx.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// Create inserts a draft request together with its items.
func (r *RequisitionRepository) Create(ctx context.Context, request *models.Request, items []models.RequestItem) (err error) {
	now := time.Now().UTC()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.StatusDraft
	}
	request.CreatedAt = now
	request.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRequest = `INSERT INTO requests (id, site_id, requested_by, status, notes, created_at, updated_at)
VALUES (:id, :site_id, :requested_by, :status, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertRequest, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.RequestID = request.ID
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.QtyIssued = decimal.Zero
		item.QtyReceived = decimal.Zero
		item.CreatedAt = now
		item.UpdatedAt = now
		if err = insertItemTx(ctx, tx, item); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	request.Items = items
	return nil
}

func insertItemTx(ctx context.Context, tx *sqlx.Tx, item *models.RequestItem) error {
	const query = `INSERT INTO request_items
	(id, request_id, material_id, unit_id, qty_requested, qty_approved, qty_issued, qty_received, created_at, updated_at)
	VALUES (:id, :request_id, :material_id, :unit_id, :qty_requested, :qty_approved, :qty_issued, :qty_received, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create request item: %w", err)
	}
	return nil
}

// GetByID fetches a request with its items and approval trail.
func (r *RequisitionRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var request models.Request
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}

	items, err := r.ItemsByRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	request.Items = items

	approvals, err := listApprovals(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	request.Approvals = approvals
	return &request, nil
}

// ItemsByRequest returns all items of a request ordered by creation.
func (r *RequisitionRepository) ItemsByRequest(ctx context.Context, requestID string) ([]models.RequestItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM request_items WHERE request_id = $1 ORDER BY created_at, id`, requestItemColumns)
	var items []models.RequestItem
	if err := r.db.SelectContext(ctx, &items, query, requestID); err != nil {
		return nil, fmt.Errorf("list request items: %w", err)
	}
	return items, nil
}

// List returns requests matching the filter plus the total count.
func (r *RequisitionRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SiteID != "" {
		args = append(args, filter.SiteID)
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, where, pageSize, (page-1)*pageSize)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return requests, total, nil
}

// Submit advances a draft into the routed review state. The update is guarded
// by the DRAFT status so a concurrent submit fails instead of double-applying.
func (r *RequisitionRepository) Submit(ctx context.Context, requestID string, next models.RequestStatus, submittedAt time.Time) error {
	const query = `UPDATE requests SET status = $2, submitted_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, requestID, next, submittedAt, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("submit request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check submit rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReviewParams captures one reviewer action applied atomically.
type ReviewParams struct {
	RequestID     string
	PriorStatus   models.RequestStatus
	NextStatus    models.RequestStatus
	Overrides     []models.ApprovalGrant
	FinalApproval bool
	Approval      models.Approval
	ReviewedAt    time.Time
}

// Review records an approval or rejection: item quantity overrides, the
// status transition and the append-only approval row land in one transaction.
// The request row is locked first and the grants are re-resolved against the
// locked items, so a concurrent issuance or modification cannot slip an
// approved quantity below what is issued or leave a line without a grant.
// A stale prior status aborts with ErrStaleStatus.
func (r *RequisitionRepository) Review(ctx context.Context, params ReviewParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.RequestStatus
	if err = tx.GetContext(ctx, &current, `SELECT status FROM requests WHERE id = $1 FOR UPDATE`, params.RequestID); err != nil {
		return err
	}
	if current != params.PriorStatus {
		err = appErrors.ErrStaleStatus
		return err
	}

	grants := params.Overrides
	if len(params.Overrides) > 0 || params.FinalApproval {
		var items []models.RequestItem
		query := fmt.Sprintf(`SELECT %s FROM request_items WHERE request_id = $1 ORDER BY created_at, id FOR UPDATE`, requestItemColumns)
		if err = tx.SelectContext(ctx, &items, query, params.RequestID); err != nil {
			return fmt.Errorf("lock request items: %w", err)
		}
		if grants, err = models.ResolveApprovalGrants(items, params.Overrides, params.FinalApproval); err != nil {
			err = mapRuleError(err)
			return err
		}
	}

	for _, grant := range grants {
		const query = `UPDATE request_items SET qty_approved = $2, updated_at = $3 WHERE id = $1 AND request_id = $4`
		if _, err = tx.ExecContext(ctx, query, grant.ItemID, grant.QtyApproved, params.ReviewedAt, params.RequestID); err != nil {
			return fmt.Errorf("apply quantity override: %w", err)
		}
	}

	set := "status = $2, updated_at = $3"
	args := []interface{}{params.RequestID, params.NextStatus, params.ReviewedAt}
	switch params.NextStatus {
	case models.StatusApproved:
		set += ", approved_at = $3, approved_by = $4"
		args = append(args, params.Approval.ReviewerID)
	case models.StatusRejected:
		set += ", rejected_by = $4"
		args = append(args, params.Approval.ReviewerID)
	}
	query := fmt.Sprintf(`UPDATE requests SET %s WHERE id = $1`, set)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	if err = insertApprovalTx(ctx, tx, &params.Approval); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

// ModificationParams carries a modification command to apply atomically.
type ModificationParams struct {
	RequestID   string
	PriorStatus models.RequestStatus
	Command     models.ModificationCommand
	Approval    models.Approval
	ModifiedAt  time.Time
}

// ApplyModification validates and persists a modification command as one
// unit. The request row and its items are locked first and the command is
// validated against the locked rows, not against whatever the caller read
// earlier; a concurrent issuance that raised qty_issued in the meantime
// fails the issued-floor check here instead of committing a stale grant.
// The status is re-derived from the resulting items.
func (r *RequisitionRepository) ApplyModification(ctx context.Context, params ModificationParams) (status models.RequestStatus, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin modification: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.RequestStatus
	if err = tx.GetContext(ctx, &current, `SELECT status FROM requests WHERE id = $1 FOR UPDATE`, params.RequestID); err != nil {
		return "", err
	}
	if current != params.PriorStatus {
		err = appErrors.ErrStaleStatus
		return "", err
	}

	var items []models.RequestItem
	query := fmt.Sprintf(`SELECT %s FROM request_items WHERE request_id = $1 ORDER BY created_at, id FOR UPDATE`, requestItemColumns)
	if err = tx.SelectContext(ctx, &items, query, params.RequestID); err != nil {
		return "", fmt.Errorf("lock request items: %w", err)
	}

	proposed, err := models.BuildModifiedItems(items, params.Command)
	if err != nil {
		err = mapRuleError(err)
		return "", err
	}

	for _, id := range params.Command.Removals {
		const query = `DELETE FROM request_items WHERE id = $1 AND request_id = $2 AND qty_issued = 0`
		var result sql.Result
		if result, err = tx.ExecContext(ctx, query, id, params.RequestID); err != nil {
			return "", fmt.Errorf("remove request item: %w", err)
		}
		var rows int64
		if rows, err = result.RowsAffected(); err != nil {
			return "", fmt.Errorf("check removal rows: %w", err)
		}
		if rows == 0 {
			err = appErrors.Clone(appErrors.ErrItemLocked, fmt.Sprintf("item %s cannot be removed", id))
			return "", err
		}
	}

	edited := make(map[string]struct{}, len(params.Command.Edits))
	for _, edit := range params.Command.Edits {
		edited[edit.ItemID] = struct{}{}
	}
	for i := range proposed {
		item := &proposed[i]
		if item.ID == "" {
			item.RequestID = params.RequestID
			item.ID = uuid.NewString()
			item.QtyIssued = decimal.Zero
			item.QtyReceived = decimal.Zero
			item.CreatedAt = params.ModifiedAt
			item.UpdatedAt = params.ModifiedAt
			if err = insertItemTx(ctx, tx, item); err != nil {
				return "", err
			}
			continue
		}
		if _, touched := edited[item.ID]; !touched {
			continue
		}
		item.UpdatedAt = params.ModifiedAt
		const query = `UPDATE request_items
	SET material_id = :material_id, unit_id = :unit_id, qty_requested = :qty_requested,
	    qty_approved = :qty_approved, updated_at = :updated_at
	WHERE id = :id AND request_id = :request_id`
		if _, err = tx.NamedExecContext(ctx, query, item); err != nil {
			return "", fmt.Errorf("edit request item: %w", err)
		}
	}

	status = models.DeriveStatus(current, proposed)
	if _, err = tx.ExecContext(ctx,
		`UPDATE requests SET status = $2, updated_at = $3 WHERE id = $1`,
		params.RequestID, status, params.ModifiedAt); err != nil {
		return "", fmt.Errorf("update request after modification: %w", err)
	}

	if err = insertApprovalTx(ctx, tx, &params.Approval); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit modification: %w", err)
	}
	return status, nil
}

// mapRuleError converts lifecycle rule violations into HTTP-aware errors.
func mapRuleError(err error) error {
	switch {
	case errors.Is(err, models.ErrUnknownItem),
		errors.Is(err, models.ErrDuplicateItemLine),
		errors.Is(err, models.ErrNegativeQuantity),
		errors.Is(err, models.ErrNonPositiveQuantity):
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	case errors.Is(err, models.ErrItemHasIssuance):
		return appErrors.Clone(appErrors.ErrItemLocked, err.Error())
	case errors.Is(err, models.ErrApprovedBelowIssued):
		return appErrors.Clone(appErrors.ErrQuantityExceeded, err.Error())
	case errors.Is(err, models.ErrDuplicateMaterialLine):
		return appErrors.Clone(appErrors.ErrDuplicateMaterial, err.Error())
	default:
		return err
	}
}

// ReceiveLine is one confirmed receipt delta.
type ReceiveLine struct {
	ItemID string
	Qty    decimal.Decimal
}

// ReceiveParams captures a receipt confirmation batch.
type ReceiveParams struct {
	RequestID  string
	Lines      []ReceiveLine
	ReceivedBy string
	ReceivedAt time.Time
}

// Receive confirms receipt of issued quantity. Each line must match the
// outstanding issued-but-unreceived amount exactly; any mismatch aborts the
// whole batch before a single write. The request closes when every item is
// fully received against a fully issued approval.
func (r *RequisitionRepository) Receive(ctx context.Context, params ReceiveParams) (request *models.Request, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin receive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var req models.Request
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1 FOR UPDATE`, requestColumns)
	if err = tx.GetContext(ctx, &req, query, params.RequestID); err != nil {
		return nil, err
	}
	if !models.CanReceive(req.Status) {
		err = appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot receive in status %s", req.Status))
		return nil, err
	}

	var items []models.RequestItem
	query = fmt.Sprintf(`SELECT %s FROM request_items WHERE request_id = $1 ORDER BY created_at, id FOR UPDATE`, requestItemColumns)
	if err = tx.SelectContext(ctx, &items, query, params.RequestID); err != nil {
		return nil, fmt.Errorf("lock request items: %w", err)
	}

	byID := make(map[string]*models.RequestItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	for _, line := range params.Lines {
		item, ok := byID[line.ItemID]
		if !ok {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s does not belong to request %s", line.ItemID, params.RequestID))
			return nil, err
		}
		if item.QtyIssued.IsZero() {
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("item %s has no issued quantity to receive", line.ItemID))
			return nil, err
		}
		outstanding := models.OutstandingReceipt(*item)
		if !line.Qty.Equal(outstanding) {
			err = appErrors.Clone(appErrors.ErrReceiptMismatch,
				fmt.Sprintf("item %s: received quantity must equal outstanding %s", line.ItemID, outstanding.String()))
			return nil, err
		}

		item.QtyReceived = item.QtyReceived.Add(line.Qty)
		item.ReceivedAt = &params.ReceivedAt
		item.ReceivedBy = &params.ReceivedBy
		item.UpdatedAt = params.ReceivedAt
		const update = `UPDATE request_items
	SET qty_received = $2, received_at = $3, received_by = $4, updated_at = $3
	WHERE id = $1`
		if _, err = tx.ExecContext(ctx, update, item.ID, item.QtyReceived, params.ReceivedAt, params.ReceivedBy); err != nil {
			return nil, fmt.Errorf("update received quantity: %w", err)
		}
	}

	next := models.DeriveStatus(req.Status, items)
	set := `status = $2, received_at = $3, received_by = $4, updated_at = $3`
	if next == models.StatusClosed {
		set += `, closed_at = $3`
	}
	if _, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE requests SET %s WHERE id = $1`, set),
		params.RequestID, next, params.ReceivedAt, params.ReceivedBy); err != nil {
		return nil, fmt.Errorf("update request after receipt: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receive: %w", err)
	}

	req.Status = next
	req.ReceivedAt = &params.ReceivedAt
	req.ReceivedBy = &params.ReceivedBy
	if next == models.StatusClosed {
		req.ClosedAt = &params.ReceivedAt
	}
	req.Items = items
	return &req, nil
}
