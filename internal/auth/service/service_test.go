package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	"github.com/smallbiznis/quoteflow/internal/auth/repository"
	"github.com/smallbiznis/quoteflow/internal/clock"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn := dbtest.New(t, &authdomain.User{}, &authdomain.Session{})
	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		Log:         zap.NewNop(),
		Cfg:         config.Config{AuthSessionTTL: time.Hour},
		Clock:       clk,
		GenID:       node,
		Repo:        repo,
		SessionRepo: sessionRepo,
	})
	return svc, clk
}

func register(t *testing.T, svc authdomain.Service, email string) *authdomain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Name:     "Maria Silva",
		Email:    email,
		Password: "correct-password",
	})
	require.NoError(t, err)
	return user
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newTestService(t)

	user := register(t, svc, "  Alice@Example.com ")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "correct-password", user.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, authdomain.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidName)

	_, err = svc.Register(ctx, authdomain.RegisterRequest{Name: "Bobby", Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.Register(ctx, authdomain.RegisterRequest{Name: "Bobby", Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "dup@example.com")

	_, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Name: "Another User", Email: "DUP@example.com", Password: "another-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice@example.com")

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLoginAuthenticateLogout(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	user := register(t, svc, "carol@example.com")

	result, err := svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "correct-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RawToken)
	assert.Equal(t, clk.Now().Add(time.Hour), result.ExpiresAt)

	clk.Advance(10 * time.Minute)
	session, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, clk.Now(), session.LastSeenAt)

	require.NoError(t, svc.Logout(ctx, result.RawToken))
	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestAuthenticateExpiredSession(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	register(t, svc, "dave@example.com")

	result, err := svc.Login(ctx, authdomain.LoginRequest{Email: "dave@example.com", Password: "correct-password"})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestAuthenticateUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	_, err = svc.Authenticate(context.Background(), "  ")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService(t)
	user := register(t, svc, "erin@example.com")

	found, err := svc.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", found.Name)

	_, err = svc.CurrentUser(context.Background(), snowflake.ID(42))
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}
