package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_Issue(t *testing.T) {
	secret := "test-secret"
	tokens := NewJWT(secret)

	token, err := tokens.Issue("user-123", "u@example.com", 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Parse and verify claims
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestJWT_IssueThenVerify(t *testing.T) {
	tokens := NewJWT("test-secret")

	token, err := tokens.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestJWT_VerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	_, err = NewJWT("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestJWT_VerifyRejectsExpired(t *testing.T) {
	tokens := NewJWT("test-secret")
	token, err := tokens.Issue("user-123", "u@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.Error(t, err)
}

func TestJWT_VerifyRejectsGarbage(t *testing.T) {
	_, err := NewJWT("test-secret").Verify("not-a-token")
	assert.Error(t, err)
}
