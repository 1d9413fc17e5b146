package registration_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-registration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenMinterSignsVerifiableClaims(t *testing.T) {
	cfg := registration.SimpleConfig{
		SigningKey:      "test-signing-key",
		Issuer:          "registration-test",
		TokenExpiration: 900,
	}

	minter := registration.NewTokenMinter(cfg)
	user := &registration.User{ID: uuid.New()}

	token, ttl, err := minter.MintAccessToken(user)
	require.NoError(t, err)
	assert.Equal(t, 900, ttl)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-signing-key"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["sub"])
	assert.Equal(t, "registration-test", claims["iss"])
	assert.Equal(t, "access", claims["use"])
}

func TestTokenMinterRefreshTokenUse(t *testing.T) {
	minter := registration.NewTokenMinter(registration.SimpleConfig{
		SigningKey: "test-signing-key",
	})

	token, ttl, err := minter.MintRefreshToken(&registration.User{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 604800, ttl)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-signing-key"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "refresh", parsed.Claims.(jwt.MapClaims)["use"])
}

func TestSimulatedTokenMinterDefaults(t *testing.T) {
	minter := registration.NewSimulatedTokenMinter(0, 0)

	token, ttl, err := minter.MintAccessToken(nil)
	require.NoError(t, err)
	assert.Equal(t, "SimulatedJWTToken", token)
	assert.Equal(t, 3600, ttl)

	refresh, refreshTTL, err := minter.MintRefreshToken(nil)
	require.NoError(t, err)
	assert.Equal(t, "SimulatedRefreshToken", refresh)
	assert.Equal(t, 604800, refreshTTL)
}
