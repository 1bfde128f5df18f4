package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(testSecret, userID, "PICKER", "SUPERVISOR")
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "PICKER", claims.BaseRole)
	assert.Equal(t, "SUPERVISOR", claims.EffectiveRole)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, uuid.New(), "PICKER", "PICKER")
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	require.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken(testSecret, "not.a.token")
	require.Error(t, err)
}

func TestRefreshTokenCarriesSubject(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateRefreshToken(testSecret, userID)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
}
