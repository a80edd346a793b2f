// Package logging configures logrus and carries request-scoped fields
// (trace id, user id) through context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	userIDKey
)

// Options selects level and output format.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// New builds a logger from opts. Unknown levels fall back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(opts.Format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// Component returns an entry tagged with the component name.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	if log == nil {
		return Discard().WithField("component", name)
	}
	return log.WithField("component", name)
}

// Discard returns a logger that drops everything. Used by tests and as a
// default for optional loggers.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// NewTraceID generates a trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace id on ctx.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceID returns the trace id on ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithUserID stores the authenticated user's id on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the user id on ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// FromContext decorates entry with the request fields found on ctx.
func FromContext(ctx context.Context, entry *logrus.Entry) *logrus.Entry {
	fields := logrus.Fields{}
	if id := TraceID(ctx); id != "" {
		fields["trace_id"] = id
	}
	if id := UserID(ctx); id != "" {
		fields["user_id"] = id
	}
	if len(fields) == 0 {
		return entry.WithContext(ctx)
	}
	return entry.WithContext(ctx).WithFields(fields)
}
