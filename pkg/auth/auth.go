// Package auth extracts the caller's identity from HS256 bearer tokens. The
// token subject is the principal, a verified email address. Requests without
// a token proceed as the anonymous principal; malformed tokens are rejected.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type principalKey struct{}

// Authenticator signs and verifies bearer tokens.
type Authenticator struct {
	secret []byte
	log    zerolog.Logger
}

// New returns an authenticator using secret for HS256 signatures.
func New(secret []byte, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		secret: secret,
		log:    log.With().Str("component", "auth").Logger(),
	}
}

// Issue signs a token for principal valid for ttl.
func (a *Authenticator) Issue(principal string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   principal,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Principal verifies tokenString and returns its subject.
func (a *Authenticator) Principal(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware resolves the request's principal from the Authorization header
// and stores it in the context. A missing header yields the anonymous
// principal; a present but invalid token is a 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := a.Principal(tokenString)
		if err != nil {
			a.log.Debug().Err(err).Msg("rejected bearer token")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	// WebSocket clients cannot set headers from browsers, so the token may
	// arrive as a query parameter instead.
	return r.URL.Query().Get("token")
}

// WithPrincipal returns ctx carrying principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the request principal, or the empty string
// for anonymous callers.
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(principalKey{}).(string)
	return principal
}
