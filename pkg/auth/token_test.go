package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "swiftkart-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleAdmin,
	})
	require.NoError(t, err)

	for name, verifier := range map[string]TokenVerifier{
		"jwt-lib": NewJWTVerifier(cfg),
		"hmac":    NewHMACVerifier(cfg),
	} {
		claims, err := verifier.Verify(token)
		require.NoError(t, err, name)
		assert.Equal(t, userID, claims.UserID, name)
		assert.Equal(t, enums.UserRoleAdmin, claims.Role, name)
		assert.NotEmpty(t, claims.ID, name)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for name, verifier := range map[string]TokenVerifier{
		"jwt-lib": NewJWTVerifier(cfg),
		"hmac":    NewHMACVerifier(cfg),
	} {
		_, err := verifier.Verify(tampered)
		assert.Error(t, err, name)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	for name, verifier := range map[string]TokenVerifier{
		"jwt-lib": NewJWTVerifier(cfg),
		"hmac":    NewHMACVerifier(cfg),
	} {
		_, err := verifier.Verify(token)
		assert.Error(t, err, name)
	}
}

func TestMintRejectsInvalidRole(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRole("superuser"),
	})
	assert.Error(t, err)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
	})
	require.NoError(t, err)

	other := cfg
	other.Issuer = "someone-else"
	for name, verifier := range map[string]TokenVerifier{
		"jwt-lib": NewJWTVerifier(other),
		"hmac":    NewHMACVerifier(other),
	} {
		_, err := verifier.Verify(token)
		assert.Error(t, err, name)
	}
}
