package services

import (
	"context"
	"sync"
	"testing"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAccounts struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*models.User
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{byEmail: make(map[string]*models.User)}
}

func (m *memoryAccounts) Register(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.nextID++
	user.ID = m.nextID
	stored := *user
	m.byEmail[user.Email] = &stored
	return nil
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func TestRegisterIssuesTokenForRole(t *testing.T) {
	service := NewAuthService(newMemoryAccounts(), "secret", nil)

	result, err := service.Register(context.Background(), RegisterInput{
		Name:     " Abebe ",
		Email:    " Abebe@Example.com ",
		Password: "password123",
		Role:     models.RoleTutor,
	})
	require.NoError(t, err)
	assert.Equal(t, "abebe@example.com", result.User.Email)
	assert.Equal(t, "Abebe", result.User.Name)
	assert.NotEqual(t, "password123", result.User.PasswordHash)

	claims, err := utils.ValidateToken(result.Token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "1", claims.UserID)
	assert.Equal(t, models.RoleTutor, claims.Role)
}

func TestRegisterRejectsDuplicateEmailAndUnknownRole(t *testing.T) {
	service := NewAuthService(newMemoryAccounts(), "secret", nil)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = service.Register(ctx, RegisterInput{Name: "B", Email: "A@example.com", Password: "password123", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = service.Register(ctx, RegisterInput{Name: "C", Email: "c@example.com", Password: "password123", Role: "admin"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	service := NewAuthService(newMemoryAccounts(), "secret", nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123", Role: models.RoleStudent})
	require.NoError(t, err)

	result, err := service.Login(ctx, "A@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)

	_, err = service.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = service.Login(ctx, "missing@example.com", "password123")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestMe(t *testing.T) {
	service := NewAuthService(newMemoryAccounts(), "secret", nil)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password123", Role: models.RoleStudent})
	require.NoError(t, err)

	user, err := service.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, err = service.Me(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
