package service

import (
	"context"
	"testing"
	"time"

	"social-graph-service/internal/models"
	"social-graph-service/internal/repository"
	"social-graph-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	users := repository.NewUserRepository(store.NewMemoryStore())
	return NewAuthService(users, "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "Alice",
		Email:    "alice@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Alice", user.UserInformation.Username)
	assert.Equal(t, "alice", user.UserInformation.LowercaseUsername)
	assert.NotEqual(t, "hunter22", user.Password) // stored hashed

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	req := &models.RegisterRequest{Username: "Alice", Email: "alice@example.com", Password: "hunter22"}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Username: "Alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, models.ErrPermissionDenied)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestUserIDFromToken(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{Username: "Alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	userID, err := svc.UserIDFromToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = svc.UserIDFromToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}
