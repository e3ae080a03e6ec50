package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDField names the request ID in log entries and in the gin context
const RequestIDField = "request_id"

type loggerKey struct{}

type requestIDKey struct{}

// WithContext attaches l to ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// ForRequest scopes l to one request. Entries carry the request ID and, when
// ctx holds a valid span, the trace and span IDs. The returned context carries
// the request ID and the scoped logger.
func ForRequest(ctx context.Context, l *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	fields := []zap.Field{zap.String(RequestIDField, requestID)}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()),
		)
	}
	scoped := l.With(fields...)
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	return WithContext(ctx, scoped), scoped
}

// RequestIDFrom returns the request ID stored by ForRequest
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
