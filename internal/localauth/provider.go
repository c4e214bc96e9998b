// Package localauth authenticates against accounts stored in the local
// SQLite database, issuing HS256 JWTs as access tokens.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/session"
	"trajet.transportbi.org/localdb"
)

const (
	TokenTTL          = 24 * time.Hour
	MinSecretLength   = 32
	MinPasswordLength = 6
	issuer            = "trajet"
)

var ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// Accounts is the user storage the provider needs.
type Accounts interface {
	CreateUser(ctx context.Context, email, passwordHash string) (localdb.User, error)
	UserByEmail(ctx context.Context, email string) (localdb.User, error)
	UserByID(ctx context.Context, id string) (localdb.User, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Provider is a session.Provider and session.TokenVerifier.
type Provider struct {
	session.Broadcaster

	accounts Accounts
	secret   []byte
	store    session.Store
	clock    clock.Clock
	cost     int
	logger   *slog.Logger
}

func New(accounts Accounts, secret string, store session.Store, clk clock.Clock) (*Provider, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if store == nil {
		store = &session.MemoryStore{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Provider{
		accounts: accounts,
		secret:   []byte(secret),
		store:    store,
		clock:    clk,
		cost:     bcrypt.DefaultCost,
		logger:   slog.Default().With(slog.String("component", "local_auth")),
	}, nil
}

func (p *Provider) issue(u localdb.User) (*session.Session, error) {
	now := p.clock.Now()
	expires := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &session.Session{
		AccessToken: signed,
		ExpiresAt:   expires.Truncate(time.Second).UTC(),
		User:        session.User{ID: u.ID, Email: u.Email},
	}, nil
}

func (p *Provider) establish(u localdb.User) (*session.Session, error) {
	s, err := p.issue(u)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	p.Publish(session.AuthEvent{Kind: session.EventSignedIn, Session: s})
	return s, nil
}

// CurrentSession returns the persisted session while its token is still
// valid. Local tokens are not refreshed; an expired one is dropped.
func (p *Provider) CurrentSession(ctx context.Context) (*session.Session, error) {
	s, err := p.store.Load()
	if err != nil || s == nil {
		return nil, err
	}
	if _, err := p.UserForToken(ctx, s.AccessToken); err != nil {
		logging.LogOperation(p.logger, "dropping_invalid_persisted_session", slog.String("reason", err.Error()))
		return nil, p.store.Clear()
	}
	return s, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	u, err := p.accounts.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, session.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, session.ErrInvalidCredentials
	}
	return p.establish(u)
}

// SignUp creates the account and signs it in; local accounts need no
// confirmation.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*session.Session, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := p.accounts.CreateUser(ctx, email, string(hash))
	if errors.Is(err, gateway.ErrConflict) {
		return nil, session.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return p.establish(u)
}

func (p *Provider) SignOut(context.Context) error {
	err := p.store.Clear()
	p.Publish(session.AuthEvent{Kind: session.EventSignedOut})
	return err
}

// UserForToken verifies the signature, issuer and expiry of token and that
// its subject still exists.
func (p *Provider) UserForToken(ctx context.Context, token string) (session.User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.clock.Now),
	)
	if err != nil {
		return session.User{}, fmt.Errorf("%w: %w", session.ErrInvalidToken, err)
	}

	u, err := p.accounts.UserByID(ctx, c.Subject)
	if errors.Is(err, gateway.ErrNotFound) {
		return session.User{}, session.ErrInvalidToken
	}
	if err != nil {
		return session.User{}, fmt.Errorf("resolve token: %w", err)
	}
	return session.User{ID: u.ID, Email: u.Email}, nil
}
