// Package session owns the signed-in user, the session token and the admin
// flag for one process (the CLI) or one request (the HTTP server).
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired access token")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrUserExists         = errors.New("an account already exists for this email")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// expirySkew treats tokens about to expire as already expired.
const expirySkew = 30 * time.Second

// Expired reports whether the access token is expired (or about to be) at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(s.ExpiresAt)
}

type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

// AuthEvent is an auth state change notification. Session is nil after a
// sign-out.
type AuthEvent struct {
	Kind    EventKind
	Session *Session
}

// Provider is the authentication side of the backend.
type Provider interface {
	// CurrentSession returns the persisted session, or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp returns a nil session when the backend requires email
	// confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// Subscribe registers fn for auth state changes until the returned
	// function is called.
	Subscribe(fn func(AuthEvent)) (unsubscribe func())
}

// TokenVerifier resolves the user behind an access token.
type TokenVerifier interface {
	UserForToken(ctx context.Context, token string) (User, error)
}
