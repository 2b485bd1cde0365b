package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestLogin(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateUser(t, db, "alice")
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	token, err := auth.Login(ctx, user.Email, testhelpers.TestPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	_, err = auth.Login(ctx, user.Email, "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@example.com", testhelpers.TestPassword)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestTokensAreUnique(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateUser(t, db, "alice")
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)

	first, err := auth.GenerateToken(user)
	require.NoError(t, err)
	second, err := auth.GenerateToken(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestValidateTokenRejects(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateUser(t, db, "alice")
	auth := service.NewAuthService(db, testSecret, time.Hour, nil)
	ctx := context.Background()

	expired, err := service.NewAuthService(db, testSecret, -time.Minute, nil).GenerateToken(user)
	require.NoError(t, err)

	foreign, err := service.NewAuthService(db, "other-secret", time.Hour, nil).GenerateToken(user)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": user.ID, "jti": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage": "not-a-token",
		"expired": expired,
		"foreign": foreign,
		"none":    none,
	} {
		_, err := auth.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, service.ErrInvalidToken, name)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	user := testhelpers.CreateUser(t, db, "alice")
	auth := service.NewAuthService(db, testSecret, time.Hour, service.NewMemoryTokenStore())
	ctx := context.Background()

	token, err := auth.GenerateToken(user)
	require.NoError(t, err)
	other, err := auth.GenerateToken(user)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.NoError(t, auth.Logout(ctx, claims))

	_, err = auth.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = auth.ValidateToken(ctx, other)
	assert.NoError(t, err)
}

func TestMemoryTokenStore(t *testing.T) {
	store := service.NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "kept", time.Hour))
	require.NoError(t, store.Revoke(ctx, "short", time.Millisecond))
	require.NoError(t, store.Revoke(ctx, "already-expired", -time.Second))

	time.Sleep(10 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, revoked)

	for _, jti := range []string{"short", "already-expired", "unknown"} {
		revoked, err := store.IsRevoked(ctx, jti)
		require.NoError(t, err)
		assert.False(t, revoked, jti)
	}
}
