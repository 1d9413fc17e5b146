package registration

import "fmt"

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the knobs a host application can tune
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() int
	GetRefreshTokenExpiration() int
}

// SimpleConfig is a plain-struct Config for hosts without a config container
type SimpleConfig struct {
	SigningKey             string `json:"signing_key"`
	Issuer                 string `json:"issuer"`
	TokenExpiration        int    `json:"token_expiration"`
	RefreshTokenExpiration int    `json:"refresh_token_expiration"`
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

// GetTokenExpiration is the access token lifetime in seconds
func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 3600
	}
	return c.TokenExpiration
}

// GetRefreshTokenExpiration is the refresh token lifetime in seconds
func (c SimpleConfig) GetRefreshTokenExpiration() int {
	if c.RefreshTokenExpiration <= 0 {
		return 604800
	}
	return c.RefreshTokenExpiration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] REG "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] REG "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] REG "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] REG "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
