package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/roster-api/internal/models"
)

// AllowedUserRepository manages the access allow-list table.
type AllowedUserRepository struct {
	db *sqlx.DB
}

// NewAllowedUserRepository constructs an AllowedUserRepository.
func NewAllowedUserRepository(db *sqlx.DB) *AllowedUserRepository {
	return &AllowedUserRepository{db: db}
}

// FindByEmail looks an email up case-insensitively. sql.ErrNoRows is returned when absent.
func (r *AllowedUserRepository) FindByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	const query = `SELECT id, name, email, invited_by, created_at, last_login_at FROM allowed_users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.AllowedUser
	if err := r.db.GetContext(ctx, &user, query, strings.TrimSpace(email)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find allowed user: %w", err)
	}
	return &user, nil
}

// Create inserts an allowed user with a lower-cased email.
func (r *AllowedUserRepository) Create(ctx context.Context, user *models.AllowedUser) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO allowed_users (id, name, email, invited_by, created_at) VALUES (:id, :name, :email, :invited_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create allowed user: %w", err)
	}
	return nil
}

// TouchLastLogin stamps the last login time of the email, if present.
func (r *AllowedUserRepository) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	const query = `UPDATE allowed_users SET last_login_at = $2 WHERE LOWER(email) = LOWER($1)`
	if _, err := r.db.ExecContext(ctx, query, strings.TrimSpace(email), at.UTC()); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
