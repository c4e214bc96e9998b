package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"trajet.transportbi.org/internal/logging"
)

// Observer receives one notification per gateway call.
type Observer interface {
	ObserveGatewayCall(table, operation, outcome string, duration time.Duration)
}

// Outcome classifies a call result for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

type instrumented[T any] struct {
	next     Table[T]
	observer Observer
	logger   *slog.Logger
}

// Instrument wraps t so every call is timed, reported to observer and, on
// failure, logged. A nil observer only logs.
func Instrument[T any](t Table[T], observer Observer, logger *slog.Logger) Table[T] {
	if t == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented[T]{
		next:     t,
		observer: observer,
		logger:   logger.With(slog.String("component", "gateway"), slog.String("table", t.Name())),
	}
}

func (i *instrumented[T]) observe(op string, start time.Time, err error) {
	outcome := Outcome(err)
	if i.observer != nil {
		i.observer.ObserveGatewayCall(i.next.Name(), op, outcome, time.Since(start))
	}
	if outcome == "error" {
		logging.LogError(i.logger, "gateway call failed", err, slog.String("operation", op))
	}
}

func (i *instrumented[T]) Name() string { return i.next.Name() }

func (i *instrumented[T]) List(ctx context.Context, q Query) (rows []T, err error) {
	defer func(start time.Time) { i.observe("list", start, err) }(time.Now())
	return i.next.List(ctx, q)
}

func (i *instrumented[T]) Get(ctx context.Context, id string) (rec T, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, id)
}

func (i *instrumented[T]) Insert(ctx context.Context, record T) (rec T, err error) {
	defer func(start time.Time) { i.observe("insert", start, err) }(time.Now())
	return i.next.Insert(ctx, record)
}

func (i *instrumented[T]) Update(ctx context.Context, id string, patch Patch) (rec T, err error) {
	defer func(start time.Time) { i.observe("update", start, err) }(time.Now())
	return i.next.Update(ctx, id, patch)
}

func (i *instrumented[T]) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, id)
}

func (i *instrumented[T]) ToggleActive(ctx context.Context, id string) (rec T, err error) {
	defer func(start time.Time) { i.observe("toggle_active", start, err) }(time.Now())
	return i.next.ToggleActive(ctx, id)
}

type instrumentedAdmins struct {
	next     AdminRegistry
	observer Observer
	logger   *slog.Logger
}

func (a *instrumentedAdmins) IsAdmin(ctx context.Context, userID string) (ok bool, err error) {
	defer func(start time.Time) {
		outcome := Outcome(err)
		if a.observer != nil {
			a.observer.ObserveGatewayCall(TableAdmins, "lookup", outcome, time.Since(start))
		}
		if outcome == "error" {
			logging.LogError(a.logger, "admin lookup failed", err)
		}
	}(time.Now())
	return a.next.IsAdmin(ctx, userID)
}

// Instrumented returns a copy of g with every table wrapped by Instrument.
func (g Gateway) Instrumented(observer Observer, logger *slog.Logger) Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	out := Gateway{
		Cities:   Instrument(g.Cities, observer, logger),
		BusLines: Instrument(g.BusLines, observer, logger),
		Agencies: Instrument(g.Agencies, observer, logger),
		Routes:   Instrument(g.Routes, observer, logger),
	}
	if g.Admins != nil {
		out.Admins = &instrumentedAdmins{
			next:     g.Admins,
			observer: observer,
			logger:   logger.With(slog.String("component", "gateway"), slog.String("table", TableAdmins)),
		}
	}
	return out
}
