package middleware

import (
	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps the request ID copied onto spans
const MaxRequestIDLength = 128

// Tracing returns the handlers that open a server span per request through
// otelgin and tag it with the request ID. Install them after logger.RequestID
// and before logger.AccessLog so access entries carry the trace ID.
func Tracing(serviceName string, tp trace.TracerProvider) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName, otelgin.WithTracerProvider(tp)),
		spanAttributes,
	}
}

func spanAttributes(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	if id := c.GetString(logger.RequestIDField); id != "" {
		if len(id) > MaxRequestIDLength {
			id = id[:MaxRequestIDLength]
		}
		span.SetAttributes(attribute.String(logger.RequestIDField, id))
	}

	c.Next()

	if len(c.Errors) > 0 {
		span.SetStatus(codes.Error, c.Errors.Last().Error())
	}
}
