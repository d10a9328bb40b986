// Package session keeps the admin's bearer token and user profile between
// panel requests. The token/user pair is the only shared mutable state in
// the system: it is written at login and logout and read everywhere else.
package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"platebook/pkg/domain"
)

// Session is the stored token/user blob keyed by an opaque session id.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Store persists panel sessions keyed by an opaque session ID.
type Store interface {
	Save(ctx context.Context, id string, s Session) error
	Get(ctx context.Context, id string) (Session, bool, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// TokenExpired reports whether the bearer token has expired, which can only
// be checked when the token decodes as a JWT with an exp claim. Opaque
// tokens never expire client-side; the backend remains authoritative.
func TokenExpired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
