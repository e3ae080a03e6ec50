package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/erp/conversion/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func spanAttr(span tracetest.SpanStub, key attribute.Key) (string, bool) {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.InMemoryExporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	exporter := tracetest.NewInMemoryExporter()
	tp, err := telemetry.NewTracerProviderWithExporter(exporter, "tracing-test", nil)
	require.NoError(t, err)

	router := gin.New()
	router.Use(logger.RequestID())
	router.Use(Tracing("tracing-test", tp.Provider())...)
	return router, exporter
}

func TestTracing(t *testing.T) {
	router, exporter := newTracedRouter(t)
	var traceID trace.TraceID
	router.GET("/items/:id", func(c *gin.Context) {
		traceID = trace.SpanContextFromContext(c.Request.Context()).TraceID()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(logger.RequestIDHeader, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
	assert.Contains(t, spans[0].Name, "/items/:id")
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID())

	id, ok := spanAttr(spans[0], logger.RequestIDField)
	require.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id)
}

func TestTracing_MarksHandlerErrors(t *testing.T) {
	router, exporter := newTracedRouter(t)
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("converter rejected value"))
		c.Status(http.StatusUnprocessableEntity)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestTracing_NoopProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Tracing("tracing-test", noop.NewTracerProvider())...)
	router.GET("/ping", func(c *gin.Context) {
		assert.False(t, trace.SpanFromContext(c.Request.Context()).IsRecording())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
