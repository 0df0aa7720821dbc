package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenClaims is the subset of auth-token claims the client relies on.
type TokenClaims struct {
	ProviderID string
	Email      string
	ExpiresAt  time.Time
}

// ParseTokenClaims reads the claims of a backend-issued token without verifying the
// signature; the client never holds the signing secret.
func ParseTokenClaims(tokenString string) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	parser := jwt.Parser{}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	out := &TokenClaims{}
	if id, ok := claims["providerId"].(string); ok && id != "" {
		out.ProviderID = id
	} else if sub, ok := claims["sub"].(string); ok {
		out.ProviderID = sub
	}
	if out.ProviderID == "" {
		return nil, errors.New("token does not contain a provider id")
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, ok := claims["exp"].(float64); ok && exp > 0 {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}

// Expired reports whether the token carried an expiry that lies before now.
func (c *TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
