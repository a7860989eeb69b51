package log

import (
	"context"

	"github.com/rs/zerolog"
)

// loggerKey is the context key for request-scoped loggers. An unexported
// struct type cannot collide with keys from other packages.
type loggerKey struct{}

// WithLogger returns a child context carrying the given logger. Request
// middleware uses this to attach per-request fields once.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx returns the logger carried by ctx, falling back to the global logger
// when none was attached.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
