package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/chepyr/taskboard/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", 0)

	token, err := m.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenManager_ClaimsCarryUserIDAndSevenDayExpiry(t *testing.T) {
	m := NewTokenManager("test-secret", 0)
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.Issue("u1")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, issued.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenManager_EmptySecret(t *testing.T) {
	m := NewTokenManager("", 0)
	assert.False(t, m.Configured())

	token, err := m.Issue("u1")
	assert.Empty(t, token)
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	assert.Equal(t, "JWT_SECRET not configured in .env", apperr.PublicMessage(err))
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	valid, err := m.Issue("u1")
	require.NoError(t, err)

	otherKey, err := NewTokenManager("other-secret", time.Hour).Issue("u1")
	require.NoError(t, err)

	expiredManager := NewTokenManager("test-secret", time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredManager.Issue("u1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"tampered signature", tampered, ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"alg none", none, ErrInvalidToken},
		{"missing user id", noUser, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, userID)
		})
	}
}
