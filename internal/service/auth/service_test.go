package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/shop-ai/internal/config"
)

func newService(t *testing.T, secret string) *TokenService {
	t.Helper()
	s, err := NewTokenService(&config.AuthConfig{JWTSecret: secret, TokenTTL: 1})
	require.NoError(t, err)
	return s
}

func TestTokenService_RoundTrip(t *testing.T) {
	s := newService(t, "test-secret")

	token, err := s.Issue("u1")
	require.NoError(t, err)

	userID, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestTokenService_Rejects(t *testing.T) {
	s := newService(t, "test-secret")
	other := newService(t, "other-secret")

	foreign, err := other.Issue("u1")
	require.NoError(t, err)

	expired := newService(t, "test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("u1")
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", foreign},
		{"expired", old},
		{"missing user id", noUser},
		{"alg none", "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyX2lkIjoidTEifQ."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_IssueRequiresUser(t *testing.T) {
	s := newService(t, "test-secret")
	_, err := s.Issue(" ")
	assert.Error(t, err)
}

func TestNewTokenService_RandomSecret(t *testing.T) {
	a := newService(t, "")
	b := newService(t, "")

	token, err := a.Issue("u1")
	require.NoError(t, err)
	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
