package service_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/veltrane/ragchat/internal/pkg/errors"
	"github.com/veltrane/ragchat/internal/pkg/jwt"
	"github.com/veltrane/ragchat/internal/repo"
	"github.com/veltrane/ragchat/internal/service"
	"github.com/veltrane/ragchat/test/testutil"
)

func randomEmail(t *testing.T) string {
	t.Helper()
	bytes := make([]byte, 8)
	_, err := rand.Read(bytes)
	require.NoError(t, err)
	return hex.EncodeToString(bytes) + "@example.com"
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	secret := []byte("test-secret")
	auth := service.NewAuthService(repo.NewUserRepo(db), secret, time.Hour)
	email := randomEmail(t)

	user, token, err := auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NotEmpty(t, token)

	claims, err := jwt.ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, email, claims.Email)

	loggedIn, _, err := auth.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)

	_, _, err = auth.Login(context.Background(), email, "wrong-password")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestAuthServiceDuplicateEmail(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	auth := service.NewAuthService(repo.NewUserRepo(db), []byte("test-secret"), time.Hour)
	email := randomEmail(t)

	_, _, err := auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)

	_, _, err = auth.Register(context.Background(), email, "password456")
	require.ErrorIs(t, err, appErr.ErrConflict)
}
