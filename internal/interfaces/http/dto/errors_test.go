package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCodes = []string{
	ErrCodeUnknown,
	ErrCodeInternal,
	ErrCodeValidation,
	ErrCodeBadRequest,
	ErrCodeInvalidInput,
	ErrCodeInvalidJSON,
	ErrCodeRequestTooLarge,
	ErrCodeNotFound,
	ErrCodeAlreadyExists,
	ErrCodeInvalidState,
	ErrCodeUnknownType,
	ErrCodeNotConvertible,
	ErrCodeConversionFailed,
	ErrCodeInvalidRegistration,
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeUnknownType, http.StatusBadRequest},
		{ErrCodeNotConvertible, http.StatusUnprocessableEntity},
		{ErrCodeConversionFailed, http.StatusUnprocessableEntity},
		{ErrCodeInvalidRegistration, http.StatusBadRequest},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"NOT_CONVERTIBLE", ErrCodeNotConvertible},
		{"CONVERTER_FAILED", ErrCodeConversionFailed},
		{"INVALID_REGISTRATION", ErrCodeInvalidRegistration},
		// API codes pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestErrorCodeConstants(t *testing.T) {
	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[code]
			assert.True(t, ok, "Error code %s should be in ErrorCodeHTTPStatus map", code)
			assert.True(t, strings.HasPrefix(code, "ERR_"), "Error code should start with ERR_")
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_CONVERTIBLE", "no converter", "req-123")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotConvertible, resp.Error.Code)
	assert.Equal(t, "no converter", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse(ErrCodeNotFound, "missing", ""))
	require.NoError(t, err)

	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_NOT_FOUND","message":"missing"}}`, string(data))
}

func TestSuccessResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(ConvertResponse{
		Value:      42,
		SourceType: "string",
		TargetType: "int",
	}))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"success":true,"data":{"value":42,"source_type":"string","target_type":"int"}}`,
		string(data))
}
