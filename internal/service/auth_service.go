package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type accessChecker interface {
	IsAllowed(ctx context.Context, email string) (bool, error)
	RecordLogin(ctx context.Context, email string) error
}

// AuthConfig defines configuration for session tokens.
type AuthConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// StartSessionRequest carries the email confirmed by the identity provider.
type StartSessionRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthService issues and validates session tokens for allowed emails.
type AuthService struct {
	access    accessChecker
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	clock     func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(access accessChecker, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = registerRosterRules(nil)
	}
	if config.Expiry <= 0 {
		config.Expiry = 12 * time.Hour
	}
	return &AuthService{access: access, validator: validate, logger: logger, config: config, clock: time.Now}
}

// StartSession checks the allow-list once and returns a signed token for the email.
func (s *AuthService) StartSession(ctx context.Context, req StartSessionRequest) (*models.Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.StructCtx(ctx, req); err != nil {
		return nil, validationError("invalid session payload", err)
	}

	allowed, err := s.access.IsAllowed(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Warn("session refused", zap.String("email", req.Email))
		return nil, appErrors.Clone(appErrors.ErrForbidden, "email not allowed")
	}

	if err := s.access.RecordLogin(ctx, req.Email); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	issuedAt := s.clock().UTC()
	expiresAt := issuedAt.Add(s.config.Expiry)
	claims := &models.SessionClaims{
		Email: req.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   req.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}

	s.logger.Info("session started", zap.String("email", req.Email))
	return &models.Session{Token: signed, Email: req.Email, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
