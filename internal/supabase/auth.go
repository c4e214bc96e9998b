package supabase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/session"
)

// Auth is a session.Provider and session.TokenVerifier backed by GoTrue.
type Auth struct {
	session.Broadcaster

	c      *Client
	store  session.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewAuth persists sessions in store. A nil store keeps them in memory.
func NewAuth(c *Client, store session.Store, clk clock.Clock) *Auth {
	if store == nil {
		store = &session.MemoryStore{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Auth{
		c:      c,
		store:  store,
		clock:  clk,
		logger: slog.Default().With(slog.String("component", "supabase_auth")),
	}
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is a GoTrue session. Signup without auto-confirm answers
// with the bare user instead, which lands in ID and Email.
type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         authUser `json:"user"`
	ID           string   `json:"id"`
	Email        string   `json:"email"`
}

func (a *Auth) toSession(t tokenResponse) *session.Session {
	s := &session.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         session.User{ID: t.User.ID, Email: t.User.Email},
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		s.ExpiresAt = a.clock.Now().Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return s
}

func grant(kind string) url.Values {
	v := url.Values{}
	v.Set("grant_type", kind)
	return v
}

func (a *Auth) establish(kind session.EventKind, t tokenResponse) (*session.Session, error) {
	s := a.toSession(t)
	if err := a.store.Save(s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	a.Publish(session.AuthEvent{Kind: kind, Session: s})
	return s, nil
}

// CurrentSession returns the persisted session, refreshing it first when
// its access token has expired. A session that cannot be refreshed is
// dropped.
func (a *Auth) CurrentSession(ctx context.Context) (*session.Session, error) {
	s, err := a.store.Load()
	if err != nil || s == nil {
		return nil, err
	}
	if !s.Expired(a.clock.Now()) {
		return s, nil
	}
	if s.RefreshToken == "" {
		return nil, a.store.Clear()
	}

	var t tokenResponse
	err = a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  grant("refresh_token"),
		body:   map[string]string{"refresh_token": s.RefreshToken},
	}, &t)
	if err != nil {
		logging.LogError(a.logger, "session refresh failed, signing out locally", err)
		if clearErr := a.store.Clear(); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}
	return a.establish(session.EventTokenRefreshed, t)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	var t tokenResponse
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "token",
		query:  grant("password"),
		body:   map[string]string{"email": email, "password": password},
	}, &t)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", session.ErrInvalidCredentials, apiErr.Message)
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return a.establish(session.EventSignedIn, t)
}

// SignUp returns a nil session when the project requires email confirmation.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*session.Session, error) {
	var t tokenResponse
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "signup",
		body:   map[string]string{"email": email, "password": password},
	}, &t)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Code == "user_already_exists" ||
			strings.Contains(strings.ToLower(apiErr.Message), "already registered")) {
			return nil, session.ErrUserExists
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if t.AccessToken == "" {
		logging.LogOperation(a.logger, "signup_pending_confirmation", slog.String("user_id", t.ID))
		return nil, nil
	}
	return a.establish(session.EventSignedIn, t)
}

// SignOut revokes the session on the backend and always forgets it locally.
func (a *Auth) SignOut(ctx context.Context) error {
	s, loadErr := a.store.Load()

	var remoteErr error
	if s != nil && s.AccessToken != "" {
		remoteErr = a.c.do(ctx, request{
			method: http.MethodPost,
			path:   authPrefix + "logout",
			token:  s.AccessToken,
		}, nil)
	}

	clearErr := a.store.Clear()
	a.Publish(session.AuthEvent{Kind: session.EventSignedOut})

	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}
	return errors.Join(loadErr, clearErr)
}

// UserForToken asks GoTrue who owns token.
func (a *Auth) UserForToken(ctx context.Context, token string) (session.User, error) {
	if token == "" {
		return session.User{}, session.ErrInvalidToken
	}
	var u authUser
	err := a.c.do(ctx, request{method: http.MethodGet, path: authPrefix + "user", token: token}, &u)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return session.User{}, session.ErrInvalidToken
		}
		return session.User{}, fmt.Errorf("resolve token: %w", err)
	}
	if u.ID == "" {
		return session.User{}, session.ErrInvalidToken
	}
	return session.User{ID: u.ID, Email: u.Email}, nil
}
