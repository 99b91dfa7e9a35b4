// Package auth issues and verifies access tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cuongbtq/career-assistant/internal/api/domain"
)

// ErrInvalidToken is returned for tokens that are malformed, expired or not ours
var ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)

// TokenType separates short-lived access tokens from refresh tokens
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

const defaultRefreshTTL = 7 * 24 * time.Hour

// Claims are the token claims; Subject is the user id
type Claims struct {
	Role domain.UserRole `json:"role,omitempty"`
	Type TokenType       `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs HS256 access and refresh tokens
type TokenManager struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures a TokenManager
type TokenOption func(*TokenManager)

// WithRefreshTTL sets the lifetime of refresh tokens
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
	}
}

func NewTokenManager(secret, issuer string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		ttl:        ttl,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL is the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// RefreshTTL is the lifetime of issued refresh tokens
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Issue returns a signed access token for the user
func (m *TokenManager) Issue(userID string, role domain.UserRole) (string, error) {
	return m.sign(Claims{Role: role, Type: TokenAccess}, userID, m.ttl)
}

// IssueRefresh returns a signed refresh token. It carries no role: the role
// is read from the user row when the access token is renewed.
func (m *TokenManager) IssueRefresh(userID string) (string, error) {
	return m.sign(Claims{Type: TokenRefresh}, userID, m.refreshTTL)
}

func (m *TokenManager) sign(claims Claims, userID string, ttl time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseAccess verifies raw and requires it to be an access token
func (m *TokenManager) ParseAccess(raw string) (*Claims, error) {
	return m.parseTyped(raw, TokenAccess)
}

// ParseRefresh verifies raw and requires it to be a refresh token
func (m *TokenManager) ParseRefresh(raw string) (*Claims, error) {
	return m.parseTyped(raw, TokenRefresh)
}

func (m *TokenManager) parseTyped(raw string, want TokenType) (*Claims, error) {
	claims, err := m.Parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, want)
	}
	return claims, nil
}

// Parse verifies the signature, issuer and expiry of a token of any type
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims, nil
}
