package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	service := NewJWTService("test-signing-key", "attestor", "attestor-api")

	token, jti, err := service.GenerateSessionToken("0xabc123", domain.RoleStudent, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", claims.Commitment)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "attestor", claims.Issuer)

	role, err := service.ExtractRole(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, role)
}

func TestValidateTokenRejections(t *testing.T) {
	service := NewJWTService("test-signing-key", "attestor", "attestor-api")

	t.Run("garbage token", func(t *testing.T) {
		_, err := service.ValidateToken("not-a-token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired token", func(t *testing.T) {
		token, _, err := service.GenerateSessionToken("0xabc123", domain.RoleEmployer, -time.Minute)
		require.NoError(t, err)
		_, err = service.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token, _, err := service.GenerateSessionToken("0xabc123", domain.RoleStudent, time.Minute)
		require.NoError(t, err)
		other := NewJWTService("different-key", "attestor", "attestor-api")
		_, err = other.ValidateToken(token)
		require.Error(t, err)
	})
}
