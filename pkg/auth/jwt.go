// Package auth validates bearer tokens and extracts the caller identity.
// Under Lambda the API Gateway authorizer has already verified the token and
// the identity arrives as a header; the validator here covers the
// self-hosted deployment.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims are the token claims the service cares about. The subject or the
// email becomes the caller identifier fed into identity resolution.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CallerID returns the identifier to resolve the caller by: email when
// present, otherwise the subject.
func (c *Claims) CallerID() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// Validator verifies HS256 bearer tokens.
type Validator struct {
	secret []byte
	issuer string
}

// NewValidator creates a validator. An empty issuer skips issuer checking.
func NewValidator(secret, issuer string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("secret key required")
	}
	return &Validator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate parses and verifies a bearer token string.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method)
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.CallerID() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}
	return claims, nil
}

type contextKey struct{}

// WithCallerID stores the authenticated caller identifier on the context.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, contextKey{}, callerID)
}

// CallerIDFrom returns the authenticated caller identifier, if any.
func CallerIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
