package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloneforge/cloneforge-engine/pkg/apperrors"
)

func TestWriteAppError(t *testing.T) {
	cause := errors.New("pgx: connection refused")
	appErr := apperrors.Wrap(apperrors.CodeInternal, "storage operation failed", cause)

	t.Run("production hides the diagnostic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteAppError(rec, appErr, false))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "INTERNAL", body["error"])
		assert.Equal(t, "storage operation failed", body["message"])
		assert.Empty(t, body["internal"])
		assert.NotContains(t, rec.Body.String(), "pgx")
	})

	t.Run("development exposes the diagnostic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteAppError(rec, appErr, true))

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "pgx: connection refused", body["internal"])
	})

	t.Run("plain errors become INTERNAL", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteAppError(rec, errors.New("boom"), false))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "INTERNAL", body["error"])
		assert.NotContains(t, body["message"], "boom")
	})

	t.Run("status follows the code", func(t *testing.T) {
		tests := []struct {
			code   apperrors.Code
			status int
		}{
			{apperrors.CodeBadRequest, http.StatusBadRequest},
			{apperrors.CodeNotFound, http.StatusNotFound},
			{apperrors.CodeRateLimited, http.StatusTooManyRequests},
			{apperrors.CodeGatewayTimeout, http.StatusGatewayTimeout},
			{apperrors.CodeAIProviderDown, http.StatusBadGateway},
			{apperrors.CodeAIValidationError, http.StatusUnprocessableEntity},
			{apperrors.CodeAIQualityError, http.StatusUnprocessableEntity},
		}

		for _, tt := range tests {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteAppError(rec, apperrors.New(tt.code, "x"), false))
			assert.Equal(t, tt.status, rec.Code, string(tt.code))
		}
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]string{"a": "b"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a": "b"}`, rec.Body.String())
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, ErrorResponse(rec, http.StatusBadRequest, "BAD_REQUEST", "url is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "BAD_REQUEST", body["error"])
	assert.Equal(t, "url is required", body["message"])
}
