package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "career-api", time.Hour)

	token, err := m.Issue("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "career-api", claims.Issuer)
	assert.Equal(t, TokenAccess, claims.Type)
}

func TestTokenManager_Refresh(t *testing.T) {
	m := NewTokenManager(testSecret, "career-api", time.Hour, WithRefreshTTL(48*time.Hour))
	assert.Equal(t, 48*time.Hour, m.RefreshTTL())

	refresh, err := m.IssueRefresh("user-1")
	require.NoError(t, err)
	access, err := m.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	claims, err := m.ParseRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Empty(t, claims.Role)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = m.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseAccess(access)
	assert.NoError(t, err)

	assert.Equal(t, defaultRefreshTTL, NewTokenManager(testSecret, "", time.Hour, WithRefreshTTL(0)).RefreshTTL())
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, "career-api", time.Hour)
	valid, err := m.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	expiredManager := NewTokenManager(testSecret, "career-api", time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredManager.Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager(testSecret, "someone-else", time.Hour).Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	otherSecret, err := NewTokenManager(strings.Repeat("x", 32), "career-api", time.Hour).Issue("user-1", domain.RoleUser)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "career-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "career-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: valid[:len(valid)-2] + "xx"},
		{name: "expired", token: expired},
		{name: "wrong issuer", token: otherIssuer},
		{name: "wrong secret", token: otherSecret},
		{name: "no subject", token: noSubject},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Verify(hash, "correct horse"))
	assert.ErrorIs(t, h.Verify(hash, "wrong horse"), domain.ErrUnauthorized)
	assert.ErrorIs(t, h.Verify("not-a-hash", "correct horse"), domain.ErrUnauthorized)

	_, err = h.Hash("short")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.Hash(strings.Repeat("a", 100))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewHasher_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}

func TestGenerateInviteCodes(t *testing.T) {
	codes, err := GenerateInviteCodes(20)
	require.NoError(t, err)
	require.Len(t, codes, 20)

	seen := map[string]bool{}
	for _, code := range codes {
		raw, err := base64.RawURLEncoding.DecodeString(code)
		require.NoError(t, err)
		assert.Len(t, raw, 16)
		assert.False(t, seen[code])
		seen[code] = true
	}

	none, err := GenerateInviteCodes(0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
