package registration

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenMinter issues the access/refresh token pair returned on login.
type TokenMinter interface {
	MintAccessToken(user *User) (string, int, error)
	MintRefreshToken(user *User) (string, int, error)
}

type jwtMinter struct {
	config Config
	now    func() time.Time
}

// NewTokenMinter returns a TokenMinter signing HS256 tokens with the
// configured key. Lifetimes come from the config, in seconds.
func NewTokenMinter(config Config) TokenMinter {
	return &jwtMinter{
		config: config,
		now:    time.Now,
	}
}

func (m *jwtMinter) MintAccessToken(user *User) (string, int, error) {
	ttl := m.config.GetTokenExpiration()
	token, err := m.mint(user, ttl, "access")
	return token, ttl, err
}

func (m *jwtMinter) MintRefreshToken(user *User) (string, int, error) {
	ttl := m.config.GetRefreshTokenExpiration()
	token, err := m.mint(user, ttl, "refresh")
	return token, ttl, err
}

func (m *jwtMinter) mint(user *User, ttl int, use string) (string, error) {
	now := m.now()

	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iss": m.config.GetIssuer(),
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(ttl) * time.Second).Unix(),
		"use": use,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(m.config.GetSigningKey()))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// simulatedMinter backs deployments that have not wired a signing key yet.
// The mobile client treats the token as opaque during the migration window.
type simulatedMinter struct {
	accessTTL  int
	refreshTTL int
}

// NewSimulatedTokenMinter returns fixed placeholder tokens with the given
// lifetimes in seconds.
func NewSimulatedTokenMinter(accessTTL, refreshTTL int) TokenMinter {
	if accessTTL <= 0 {
		accessTTL = 3600
	}
	if refreshTTL <= 0 {
		refreshTTL = 604800
	}
	return simulatedMinter{accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (m simulatedMinter) MintAccessToken(*User) (string, int, error) {
	return "SimulatedJWTToken", m.accessTTL, nil
}

func (m simulatedMinter) MintRefreshToken(*User) (string, int, error) {
	return "SimulatedRefreshToken", m.refreshTTL, nil
}
