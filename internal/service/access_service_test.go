package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-api/internal/models"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

type mockAllowedUserRepo struct {
	users   map[string]models.AllowedUser
	touched []string
	findErr error
}

func newMockAllowedUserRepo(users ...models.AllowedUser) *mockAllowedUserRepo {
	m := &mockAllowedUserRepo{users: make(map[string]models.AllowedUser)}
	for _, u := range users {
		m.users[strings.ToLower(u.Email)] = u
	}
	return m
}

func (m *mockAllowedUserRepo) FindByEmail(ctx context.Context, email string) (*models.AllowedUser, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *mockAllowedUserRepo) Create(ctx context.Context, user *models.AllowedUser) error {
	user.ID = "u-" + user.Email
	user.Email = strings.ToLower(user.Email)
	m.users[user.Email] = *user
	return nil
}

func (m *mockAllowedUserRepo) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	m.touched = append(m.touched, email)
	return nil
}

func TestAccessServiceIsAllowed(t *testing.T) {
	repo := newMockAllowedUserRepo(models.AllowedUser{Email: "secretaria@escola.org"})
	svc := NewAccessService(repo, []string{" Diretora@Escola.org "}, nil, nil)
	ctx := context.Background()

	cases := map[string]bool{
		"diretora@escola.org":   true,
		"DIRETORA@escola.org":   true,
		"Secretaria@Escola.org": true,
		"estranho@example.com":  false,
		"":                      false,
		"   ":                   false,
	}
	for email, want := range cases {
		got, err := svc.IsAllowed(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, want, got, "email %q", email)
	}
}

func TestAccessServiceIsAllowedRepositoryError(t *testing.T) {
	repo := newMockAllowedUserRepo()
	repo.findErr = errors.New("timeout")
	svc := NewAccessService(repo, nil, nil, nil)

	_, err := svc.IsAllowed(context.Background(), "a@b.com")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestAccessServiceGrant(t *testing.T) {
	repo := newMockAllowedUserRepo()
	svc := NewAccessService(repo, nil, nil, nil)
	ctx := context.Background()

	user, err := svc.Grant(ctx, GrantAccessRequest{Name: "Professora Ana", Email: "Ana@Escola.org", InvitedBy: "Diretora@Escola.org"})
	require.NoError(t, err)
	assert.Equal(t, "ana@escola.org", user.Email)
	assert.Equal(t, "diretora@escola.org", user.InvitedBy)

	_, err = svc.Grant(ctx, GrantAccessRequest{Name: "Outra Ana", Email: "ana@escola.org"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Grant(ctx, GrantAccessRequest{Name: "Sem Email", Email: "not-an-email"})
	require.Error(t, err)
	assert.True(t, appErrors.FromError(err).HasRule("email", "email"))

	allowed, err := svc.IsAllowed(ctx, "ANA@escola.org")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAccessServiceLookup(t *testing.T) {
	svc := NewAccessService(newMockAllowedUserRepo(models.AllowedUser{ID: "u1", Email: "ana@escola.org"}), nil, nil, nil)

	user, err := svc.Lookup(context.Background(), "ANA@escola.org")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = svc.Lookup(context.Background(), "ninguem@escola.org")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Lookup(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
