package app

import (
	"context"
	"fmt"

	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/clock"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/localauth"
	"trajet.transportbi.org/internal/session"
	"trajet.transportbi.org/internal/supabase"
	"trajet.transportbi.org/localdb"
)

// Backend is the data and auth side of the application: the hosted Supabase
// project or the local SQLite stand-in.
type Backend struct {
	Kind    appconf.Backend
	Gateway gateway.Gateway
	// Local is nil with the Supabase backend.
	Local *localdb.Client

	verifier    session.TokenVerifier
	newProvider func(session.Store) (session.Provider, error)
}

// OpenBackend connects to the backend selected by cfg.Backend.
func OpenBackend(cfg appconf.Config, clk clock.Clock) (*Backend, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	switch cfg.Backend {
	case appconf.BackendSupabase:
		return openSupabase(cfg, clk)
	case appconf.BackendLocal:
		return openLocal(cfg, clk)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openSupabase(cfg appconf.Config, clk clock.Clock) (*Backend, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Backend{
		Kind:     appconf.BackendSupabase,
		Gateway:  client.Gateway(),
		verifier: supabase.NewAuth(client, &session.MemoryStore{}, clk),
		newProvider: func(store session.Store) (session.Provider, error) {
			return supabase.NewAuth(client, store, clk), nil
		},
	}, nil
}

func openLocal(cfg appconf.Config, clk clock.Clock) (*Backend, error) {
	client, err := localdb.NewClient(localdb.NewConfig(cfg.DataPath, cfg.Env, cfg.Verbose), clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	verifier, err := localauth.New(client, cfg.JWTSecret, &session.MemoryStore{}, clk)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Backend{
		Kind:     appconf.BackendLocal,
		Gateway:  client.Gateway(),
		Local:    client,
		verifier: verifier,
		newProvider: func(store session.Store) (session.Provider, error) {
			return localauth.New(client, cfg.JWTSecret, store, clk)
		},
	}, nil
}

// NewProvider returns an auth provider that persists its session in store.
// The CLI passes a file store, the HTTP server a per-request memory store.
func (b *Backend) NewProvider(store session.Store) (session.Provider, error) {
	return b.newProvider(store)
}

func (b *Backend) UserForToken(ctx context.Context, token string) (session.User, error) {
	return b.verifier.UserForToken(ctx, token)
}

// Ping checks that the backend answers.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Local != nil {
		return b.Local.Ping(ctx)
	}
	_, err := b.Gateway.Cities.List(ctx, gateway.Query{}.Take(1))
	return err
}

func (b *Backend) Close() error {
	if b.Local != nil {
		return b.Local.Close()
	}
	return nil
}
