package logging

import (
	"context"
)

type contextKey struct{}

// WithLogger attaches a request-scoped logger to the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the logger from the context.
// Returns a no-op logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextKey{}).(Logger); ok {
		return logger
	}
	return Nop()
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (n noOpLogger) Debug(msg string, fields ...Field) {}
func (n noOpLogger) Info(msg string, fields ...Field)  {}
func (n noOpLogger) Warn(msg string, fields ...Field)  {}
func (n noOpLogger) Error(msg string, fields ...Field) {}
func (n noOpLogger) Fatal(msg string, fields ...Field) {}
func (n noOpLogger) With(fields ...Field) Logger       { return n }
func (n noOpLogger) WithError(err error) Logger        { return n }
