package session

import (
	"context"
	"log/slog"
	"sync"

	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/logging"
)

// State is a snapshot of a Context.
type State struct {
	User    *User
	Session *Session
	IsAdmin bool
	Loading bool
}

// Context is the explicitly owned session state. Every mutation goes through
// apply, which holds writeMu for the whole resolution so that explicit calls
// and auth events never interleave.
type Context struct {
	provider Provider
	admins   gateway.AdminRegistry
	logger   *slog.Logger

	writeMu  sync.Mutex
	sawEvent bool

	mu      sync.RWMutex
	state   State
	changed chan struct{}

	scope       context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once
}

// New returns a Context in the loading state. Call Start to initialize it
// and Close when its owning scope ends.
func New(provider Provider, admins gateway.AdminRegistry, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		provider: provider,
		admins:   admins,
		logger:   logger.With(slog.String("component", "session")),
		state:    State{Loading: true},
		changed:  make(chan struct{}),
		scope:    context.Background(),
	}
}

// Start subscribes to auth events, then loads the persisted session,
// resolves the admin flag and clears loading. An event delivered while the
// persisted session is loading wins over the loaded value.
func (c *Context) Start(ctx context.Context) error {
	c.scope, c.cancel = context.WithCancel(ctx)
	c.unsubscribe = c.provider.Subscribe(c.handleEvent)

	sess, err := c.provider.CurrentSession(c.scope)
	if err != nil {
		logging.LogError(c.logger, "failed to load persisted session", err)
		sess = nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.sawEvent {
		return err
	}
	c.resolveLocked(c.scope, sess)
	return err
}

// Close releases the auth subscription and abandons in-flight resolution.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		if c.cancel != nil {
			c.cancel()
		}
	})
}

func (c *Context) handleEvent(ev AuthEvent) {
	logging.LogOperation(c.logger, "auth_state_changed", slog.String("event", string(ev.Kind)))
	sess := ev.Session
	if ev.Kind == EventSignedOut {
		sess = nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.sawEvent = true
	c.resolveLocked(c.scope, sess)
}

func (c *Context) setLocked(update func(*State)) {
	update(&c.state)
	close(c.changed)
	c.changed = make(chan struct{})
}

// apply is the single write path. It marks the context loading, resolves
// the admin flag for sess, then publishes the new state.
func (c *Context) apply(ctx context.Context, sess *Session) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.resolveLocked(ctx, sess)
}

// resolveLocked does the work of apply; the caller holds writeMu.
func (c *Context) resolveLocked(ctx context.Context, sess *Session) {
	c.mu.Lock()
	c.setLocked(func(s *State) { s.Loading = true })
	c.mu.Unlock()

	isAdmin := c.resolveAdmin(ctx, sess)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(func(s *State) {
		s.Session = sess
		s.User = nil
		if sess != nil {
			u := sess.User
			s.User = &u
		}
		s.IsAdmin = isAdmin
		s.Loading = false
	})
}

// resolveAdmin fails closed: no user, a lookup error or an absent row all
// mean not admin.
func (c *Context) resolveAdmin(ctx context.Context, sess *Session) bool {
	if sess == nil || sess.User.ID == "" || c.admins == nil {
		return false
	}
	ok, err := c.admins.IsAdmin(ctx, sess.User.ID)
	if err != nil {
		logging.LogError(c.logger, "admin lookup failed, treating user as non-admin", err,
			slog.String("user_id", sess.User.ID))
		return false
	}
	return ok
}

func (c *Context) SignIn(ctx context.Context, email, password string) error {
	sess, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	c.apply(ctx, sess)
	return nil
}

// SignUp creates an account. When the backend returns a session the user is
// signed in immediately.
func (c *Context) SignUp(ctx context.Context, email, password string) error {
	sess, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	if sess != nil {
		c.apply(ctx, sess)
	}
	return nil
}

// SignOut clears user, session and admin flag even when the backend call
// fails; the backend error is still returned.
func (c *Context) SignOut(ctx context.Context) error {
	err := c.provider.SignOut(ctx)
	if err != nil {
		logging.LogError(c.logger, "backend sign-out failed, clearing local session anyway", err)
	}
	c.apply(context.WithoutCancel(ctx), nil)
	return err
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.IsAdmin && !c.state.Loading
}

func (c *Context) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.User
}

func (c *Context) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Session == nil {
		return ""
	}
	return c.state.Session.AccessToken
}

// WithAccessToken decorates ctx with the current access token for gateway calls.
func (c *Context) WithAccessToken(ctx context.Context) context.Context {
	return gateway.WithAccessToken(ctx, c.AccessToken())
}

// WaitSettled blocks until no resolution is in progress.
func (c *Context) WaitSettled(ctx context.Context) (State, error) {
	for {
		c.mu.RLock()
		state, changed := c.state, c.changed
		c.mu.RUnlock()
		if !state.Loading {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}
