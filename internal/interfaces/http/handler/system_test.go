package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("conversion-service", "1.0.0", nil)
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("conversion-service", "1.0.0", nil)
	c, w := newTestContext()

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "conversion-service", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("conversion-service", "1.0.0", nil)
	c, w := newTestContext()

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}

// pingFunc adapts a function to Pinger
type pingFunc func() error

func (f pingFunc) Ping() error { return f() }

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		database   Pinger
		wantStatus int
		want       HealthResponse
	}{
		{"without database", nil, http.StatusOK, HealthResponse{Status: "healthy", Database: "none"}},
		{"reachable database", pingFunc(func() error { return nil }), http.StatusOK, HealthResponse{Status: "healthy", Database: "ok"}},
		{"unreachable database", pingFunc(func() error { return errors.New("database is closed") }), http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Database: "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler("conversion-service", "1.0.0", tt.database)
			c, w := newTestContext()

			h.Health(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var got HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Database, got.Database)
			assert.NotEmpty(t, got.Time)
		})
	}
}
