// Package gatewaytest provides scripted gateway tables for tests of the
// flows built on top of the gateway.
package gatewaytest

import (
	"context"
	"sync"
	"time"

	"trajet.transportbi.org/internal/gateway"
)

// Call records one invocation of a Stub.
type Call struct {
	Op    string
	ID    string
	Query gateway.Query
	Patch gateway.Patch
}

// Stub is a gateway.Table that returns scripted rows or a scripted error.
// List honours Limit only; filtering is the caller's business.
type Stub[T any] struct {
	TableName string
	Rows      []T
	Err       error
	Delay     time.Duration
	// GetFunc overrides Get, Update and ToggleActive results when set.
	GetFunc func(id string) (T, error)

	mu    sync.Mutex
	calls []Call
}

func NewStub[T any](name string, rows ...T) *Stub[T] {
	return &Stub[T]{TableName: name, Rows: rows}
}

// Failing returns a stub whose every call fails with err.
func Failing[T any](name string, err error) *Stub[T] {
	return &Stub[T]{TableName: name, Err: err}
}

func (s *Stub[T]) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// Calls returns a copy of the recorded calls.
func (s *Stub[T]) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Stub[T]) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Stub[T]) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stub[T]) Name() string { return s.TableName }

func (s *Stub[T]) List(ctx context.Context, q gateway.Query) ([]T, error) {
	s.record(Call{Op: "list", Query: q})
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	rows := append([]T(nil), s.Rows...)
	s.mu.Unlock()
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (s *Stub[T]) lookup(id string) (T, error) {
	var zero T
	if s.Err != nil {
		return zero, s.Err
	}
	if s.GetFunc != nil {
		return s.GetFunc(id)
	}
	return zero, gateway.ErrNotFound
}

func (s *Stub[T]) Get(ctx context.Context, id string) (T, error) {
	s.record(Call{Op: "get", ID: id})
	if err := s.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return s.lookup(id)
}

func (s *Stub[T]) Insert(ctx context.Context, record T) (T, error) {
	s.record(Call{Op: "insert"})
	if err := s.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	if s.Err != nil {
		var zero T
		return zero, s.Err
	}
	s.mu.Lock()
	s.Rows = append(s.Rows, record)
	s.mu.Unlock()
	return record, nil
}

func (s *Stub[T]) Update(ctx context.Context, id string, patch gateway.Patch) (T, error) {
	s.record(Call{Op: "update", ID: id, Patch: patch})
	if err := s.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return s.lookup(id)
}

func (s *Stub[T]) Delete(ctx context.Context, id string) error {
	s.record(Call{Op: "delete", ID: id})
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.Err
}

func (s *Stub[T]) ToggleActive(ctx context.Context, id string) (T, error) {
	s.record(Call{Op: "toggle_active", ID: id})
	if err := s.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return s.lookup(id)
}

// Admins is a scripted gateway.AdminRegistry.
type Admins struct {
	IDs map[string]bool
	Err error

	mu    sync.Mutex
	calls int
}

func NewAdmins(ids ...string) *Admins {
	a := &Admins{IDs: make(map[string]bool, len(ids))}
	for _, id := range ids {
		a.IDs[id] = true
	}
	return a
}

func (a *Admins) IsAdmin(_ context.Context, userID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.Err != nil {
		return false, a.Err
	}
	return a.IDs[userID], nil
}

func (a *Admins) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// SetErr changes the scripted error under the stub's lock.
func (a *Admins) SetErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Err = err
}
