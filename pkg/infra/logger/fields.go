// Package logger carries structured logging fields through a context.
//
// Middleware and handlers attach request scoped fields (request id, trace
// id, session id) to the request context; code further down the call chain
// logs through GetLogger(ctx) and gets those fields on every entry.
package logger

import (
	"context"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"go.opentelemetry.io/otel/trace"
)

// Field keys shared by every component.
const (
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldSessionID = "session_id"
)

type fieldsKey struct{}

// fields keeps insertion order so log output is stable.
type fields struct {
	keys   []string
	values map[string]any
}

func fromContext(ctx context.Context) *fields {
	if f, ok := ctx.Value(fieldsKey{}).(*fields); ok {
		return f
	}
	return &fields{values: map[string]any{}}
}

func (f *fields) clone() *fields {
	out := &fields{
		keys:   append([]string(nil), f.keys...),
		values: make(map[string]any, len(f.values)),
	}
	for k, v := range f.values {
		out.values[k] = v
	}
	return out
}

func (f *fields) set(key string, value any) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

func (f *fields) slice() []any {
	if len(f.keys) == 0 {
		return nil
	}
	out := make([]any, 0, len(f.keys)*2)
	for _, k := range f.keys {
		out = append(out, k, f.values[k])
	}
	return out
}

// WithFields adds key/value pairs to the context. A trailing key without a
// value and non-string keys are ignored.
func WithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) < 2 {
		return ctx
	}
	f := fromContext(ctx).clone()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok && key != "" {
			f.set(key, keysAndValues[i+1])
		}
	}
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID adds request_id to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return WithFields(ctx, FieldRequestID, requestID)
}

// WithSessionID adds session_id to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return WithFields(ctx, FieldSessionID, sessionID)
}

// WithTraceContext copies trace_id and span_id from the span context in ctx,
// including a remote span context extracted from incoming headers.
func WithTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return WithFields(ctx, FieldTraceID, sc.TraceID().String(), FieldSpanID, sc.SpanID().String())
}

// Fields returns the context fields as alternating keys and values.
func Fields(ctx context.Context) []any {
	return fromContext(ctx).slice()
}

// GetLogger returns the global logger with the context fields attached.
func GetLogger(ctx context.Context) core.Logger {
	base := logger.Global()
	if f := Fields(ctx); len(f) > 0 {
		return base.With(f...)
	}
	return base
}
