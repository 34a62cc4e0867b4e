package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/site-requisition-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, active, last_login, created_at, updated_at`

// UserRepository provides access to users, refresh token sessions and the
// site assignments that drive review routing.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns the active user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 AND active = TRUE`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with the given id regardless of active flag.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin stamps the successful login time.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC()); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// CreateRefreshToken persists a new refresh session.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked)
	VALUES (:id, :user_id, :token, :expires_at, :created_at, FALSE)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a live (unrevoked, unexpired) refresh session.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at
	FROM refresh_tokens WHERE token = $1 AND revoked = FALSE AND expires_at > NOW()`
	var session models.RefreshToken
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		return nil, err
	}
	return &session, nil
}

// RevokeRefreshToken marks a session revoked. Revoking an already revoked or
// unknown token is not an error.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE token = $1 AND revoked = FALSE`,
		token, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserTokens revokes every live session for a user.
func (r *UserRepository) RevokeUserTokens(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`,
		userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// SiteHasReviewer reports whether any active user with the given role is
// assigned to the site. Submission routing skips levels with no reviewer.
func (r *UserRepository) SiteHasReviewer(ctx context.Context, siteID string, role models.UserRole) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM site_assignments sa
	JOIN users u ON u.id = sa.user_id
	WHERE sa.site_id = $1 AND sa.role = $2 AND u.active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, siteID, role); err != nil {
		return false, fmt.Errorf("check site reviewer: %w", err)
	}
	return exists, nil
}

// SiteAssignments returns the reviewer assignments for a site.
func (r *UserRepository) SiteAssignments(ctx context.Context, siteID string) ([]models.SiteAssignment, error) {
	const query = `SELECT id, site_id, user_id, role, created_at
	FROM site_assignments WHERE site_id = $1 ORDER BY role, created_at`
	var assignments []models.SiteAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, siteID); err != nil {
		return nil, fmt.Errorf("list site assignments: %w", err)
	}
	return assignments, nil
}
