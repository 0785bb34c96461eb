package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Player())
	assert.NotEmpty(t, claims.ID)
}

func TestTokenIDsAreUnique(t *testing.T) {
	a, err := GenerateAccessToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	b, err := GenerateAccessToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	ca, err := ValidateAccessToken(secret, a)
	require.NoError(t, err)
	cb, err := ValidateAccessToken(secret, b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	valid, err := GenerateAccessToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateAccessToken(secret, "alice", -time.Minute)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"expired", secret, expired},
		{"no subject", secret, noSubject},
		{"none algorithm", secret, unsigned},
		{"garbage", secret, "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAccessToken(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerateAccessTokenNeedsPlayer(t *testing.T) {
	_, err := GenerateAccessToken(secret, "", time.Hour)
	assert.Error(t, err)
}
