package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"notes-saas/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: uuid.New(), TenantID: uuid.New(), Role: model.RoleAdmin}
}

func TestTokenRoundTrip(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)

	u := testUser()
	token, err := tm.GenerateToken(u)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, u.ID.String(), claims.UserID)
	require.Equal(t, u.TenantID.String(), claims.TenantID)
	require.Equal(t, "admin", claims.Role)
}

func TestTokenRejections(t *testing.T) {
	tm, err := NewTokenManager("secret", time.Hour)
	require.NoError(t, err)
	u := testUser()

	t.Run("expired", func(t *testing.T) {
		past, _ := NewTokenManager("secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := past.GenerateToken(u)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenManager("other", time.Hour)
		token, err := other.GenerateToken(u)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: u.ID.String()}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: u.ID.String()}).
			SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not.a.token")
		require.Error(t, err)
	})
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	require.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)
	hash, err := h.Hash("password")
	require.NoError(t, err)
	require.NotEqual(t, "password", hash)
	require.True(t, h.Compare(hash, "password"))
	require.False(t, h.Compare(hash, "Password"))
}
