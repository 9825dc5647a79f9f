package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUsers struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	if _, taken := m.byEmail[u.Email]; taken {
		return repository.ErrDuplicate
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func newUserFixture() (*UserService, *memUsers) {
	users := newMemUsers()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(users, tokens, zap.NewNop()), users
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "password123", "Alice", "Smith")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "password123", "", "")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Register(ctx, "a@b.com", "short", "", "")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Register(ctx, "", "password123", "", "")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password123", "", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "password456", "", "")
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestLogin(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "password123", "", "")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	// Unknown accounts get the same error as wrong passwords.
	_, _, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}
