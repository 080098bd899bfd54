package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type allowedUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.AllowedUser, error)
	Create(ctx context.Context, user *models.AllowedUser) error
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
}

// GrantAccessRequest adds an email to the allow-list table.
type GrantAccessRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	InvitedBy string `json:"invited_by" validate:"omitempty,email"`
}

// AccessService answers whether an email may use the roster. The static list from configuration is
// checked before the allowed users table.
type AccessService struct {
	repo      allowedUserRepository
	static    map[string]struct{}
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccessService constructs the service.
func NewAccessService(repo allowedUserRepository, allowedEmails []string, validate *validator.Validate, logger *zap.Logger) *AccessService {
	if validate == nil {
		validate = registerRosterRules(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	static := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		if e := canonicalEmail(email); e != "" {
			static[e] = struct{}{}
		}
	}
	return &AccessService{repo: repo, static: static, validator: validate, logger: logger}
}

// IsAllowed reports whether email is on the static list or in the table. Empty emails never are.
func (s *AccessService) IsAllowed(ctx context.Context, email string) (bool, error) {
	email = canonicalEmail(email)
	if email == "" {
		return false, nil
	}
	if _, ok := s.static[email]; ok {
		return true, nil
	}
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check access")
	}
	return true, nil
}

// Grant stores a new allowed user. Granting an email twice is a conflict.
func (s *AccessService) Grant(ctx context.Context, req GrantAccessRequest) (*models.AllowedUser, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.InvitedBy = strings.TrimSpace(req.InvitedBy)
	if err := s.validator.StructCtx(ctx, req); err != nil {
		return nil, validationError("invalid user payload", err)
	}
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already allowed")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check user")
	}
	user := &models.AllowedUser{Name: req.Name, Email: canonicalEmail(req.Email), InvitedBy: canonicalEmail(req.InvitedBy)}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("access granted", zap.String("email", user.Email), zap.String("invited_by", user.InvitedBy))
	return user, nil
}

// Lookup returns the allowed user stored for email.
func (s *AccessService) Lookup(ctx context.Context, email string) (*models.AllowedUser, error) {
	email = canonicalEmail(email)
	if email == "" {
		return nil, appErrors.Validation("email is required", appErrors.FieldViolation{Field: "email", Rule: RuleRequired})
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// RecordLogin stamps the last login of a table user. Static-list users have no row to stamp.
func (s *AccessService) RecordLogin(ctx context.Context, email string) error {
	if err := s.repo.TouchLastLogin(ctx, canonicalEmail(email), time.Now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record login")
	}
	return nil
}

func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
