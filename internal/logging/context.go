package logging

import (
	"context"

	"github.com/sirupsen/logrus"
)

// loggerKey is the context key holding the request-scoped log entry.
type loggerKey struct{}

// WithLogger returns a copy of ctx carrying the given log entry.
//
// Parameters:
//   - ctx: Parent context.
//   - log: Entry to attach, usually pre-populated with entry and stage fields.
//
// Returns:
//   - context.Context: Derived context.
func WithLogger(ctx context.Context, log *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the log entry carried by ctx.
// A context without one yields an entry on the standard logger so callers never get nil.
//
// Parameters:
//   - ctx: Context to inspect, may be nil.
//
// Returns:
//   - *logrus.Entry: Request-scoped entry.
func FromContext(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok && log != nil {
			return log
		}
	}

	return logrus.NewEntry(logrus.StandardLogger())
}

// WithFields adds fields to the entry carried by ctx and returns the derived context and entry.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, *logrus.Entry) {
	log := FromContext(ctx).WithFields(fields)

	return WithLogger(ctx, log), log
}
