package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

const approvalColumns = `id, request_id, level, action, reviewer_id, comment, created_at`

// ApprovalRepository reads the append-only reviewer action trail. Writes
// happen inside the requisition transactions so an action and its status
// transition commit together.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// ListByRequest returns the approval trail for a request, oldest first.
func (r *ApprovalRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Approval, error) {
	return listApprovals(ctx, r.db, requestID)
}

func listApprovals(ctx context.Context, q sqlx.QueryerContext, requestID string) ([]models.Approval, error) {
	query := fmt.Sprintf(`SELECT %s FROM approvals WHERE request_id = $1 ORDER BY created_at, id`, approvalColumns)
	var approvals []models.Approval
	if err := sqlx.SelectContext(ctx, q, &approvals, query, requestID); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return approvals, nil
}

func insertApprovalTx(ctx context.Context, tx *sqlx.Tx, approval *models.Approval) error {
	if approval.ID == "" {
		approval.ID = uuid.NewString()
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO approvals (id, request_id, level, action, reviewer_id, comment, created_at)
VALUES (:id, :request_id, :level, :action, :reviewer_id, :comment, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}
