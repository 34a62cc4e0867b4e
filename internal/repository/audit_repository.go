package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

// AuditRepository persists the append-only audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one audit record.
func (r *AuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs
	(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByResource returns the trail for one resource, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at
	FROM audit_logs WHERE resource = $1 AND resource_id = $2 ORDER BY created_at DESC LIMIT $3`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, resource, resourceID, limit); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
