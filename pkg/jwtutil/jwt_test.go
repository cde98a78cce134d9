package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestUtil(expirationMinutes int) *JWTUtil {
	return NewJWTUtil(&JWTConfig{
		SigningKey:        "test-signing-key",
		Issuer:            "inventra-test",
		Audience:          "inventra-test",
		ExpirationMinutes: expirationMinutes,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	j := newTestUtil(60)

	token, err := j.GenerateToken(42, "alice@acme.test", "alice", "acme", []string{"admin", "viewer"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID())
	require.Equal(t, "alice@acme.test", claims.Email)
	require.Equal(t, "alice", claims.UserName)
	require.Equal(t, "acme", claims.Tenant)
	require.Equal(t, []string{"admin", "viewer"}, claims.Roles)
	require.Equal(t, "inventra-test", claims.Issuer)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	j := newTestUtil(-5)

	token, err := j.GenerateToken(42, "alice@acme.test", "alice", "acme", nil)
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	require.Error(t, err)
}

func TestParseExpiredAcceptsExpiredToken(t *testing.T) {
	j := newTestUtil(-5)

	token, err := j.GenerateToken(42, "alice@acme.test", "alice", "acme", []string{"admin"})
	require.NoError(t, err)

	claims, err := j.ParseExpired(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID())
	require.Equal(t, "acme", claims.Tenant)
}

func TestParseExpiredRejectsTamperedToken(t *testing.T) {
	j := newTestUtil(60)

	token, err := j.GenerateToken(42, "alice@acme.test", "alice", "acme", nil)
	require.NoError(t, err)

	_, err = j.ParseExpired(token + "x")
	require.Error(t, err)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	j := newTestUtil(60)
	other := NewJWTUtil(&JWTConfig{
		SigningKey:        "a-different-key",
		Issuer:            "inventra-test",
		Audience:          "inventra-test",
		ExpirationMinutes: 60,
	})

	token, err := j.GenerateToken(42, "alice@acme.test", "alice", "acme", nil)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
	_, err = other.ParseExpired(token)
	require.Error(t, err)
}

func TestHasRole(t *testing.T) {
	claims := &UserClaims{Roles: []string{"admin"}}
	require.True(t, claims.HasRole("admin"))
	require.False(t, claims.HasRole("viewer"))
}
