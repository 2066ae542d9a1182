package main

import (
	"context"
	"log/slog"
	"time"
)

// Dispatcher routes logical operations to the adapter registered for a
// backend tag. It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	adapters map[BackendTag]Adapter
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given adapters. A later
// adapter with the same tag replaces an earlier one.
// If logger is nil, a discard logger is used.
func NewDispatcher(logger *slog.Logger, adapters ...Adapter) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := make(map[BackendTag]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Tag()] = a
	}
	return &Dispatcher{adapters: m, logger: logger}
}

// DefaultAdapters returns one adapter per supported backend, configured
// from cfg.
func DefaultAdapters(cfg *Config) []Adapter {
	return []Adapter{
		NewSQLiteAdapter(),
		NewPostgresAdapter(cfg.PostgresDriver),
		NewMySQLAdapter(),
	}
}

// Execute runs op against the backend selected by tag, opening and closing
// a connection from descriptor. It returns either a Result or an *OpError.
//
// Cancellation of ctx is ignored once the call starts: an operation always
// runs to completion.
func (d *Dispatcher) Execute(ctx context.Context, tag BackendTag, descriptor string, op Operation) (*Result, error) {
	a, ok := d.adapters[tag]
	if !ok {
		d.logger.Debug("rejected operation", slog.String("backend", string(tag)), slog.String("op", op.Kind()))
		return nil, newError(KindUnsupportedBackend, tag, nil)
	}

	start := time.Now()
	res, err := run(context.WithoutCancel(ctx), a, descriptor, op, d.logger)

	attrs := []any{
		slog.String("backend", string(tag)),
		slog.String("op", op.Kind()),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		if e, ok := err.(*OpError); ok {
			attrs = append(attrs, slog.String("kind", e.Kind.String()))
		}
		if code := driverCode(err); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		attrs = append(attrs, slog.Any("error", err))
		d.logger.Debug("operation failed", attrs...)
		return nil, err
	}
	d.logger.Debug("operation succeeded", attrs...)
	return res, nil
}
