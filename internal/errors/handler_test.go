package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstilecli/internal/shared/testutil"
)

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "dataset not loaded",
			err:        fmt.Errorf("rank: %w", ErrNotLoaded),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDatasetNotLoaded,
			wantCode:   "DATASET_NOT_LOADED",
		},
		{
			name:       "invalid parameter",
			err:        InvalidParameterError("start", errors.New("out of range")),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   "INVALID_PARAMETER",
		},
		{
			name:       "load running",
			err:        ErrLoadRunning,
			wantStatus: http.StatusConflict,
			wantType:   TypeLoadRunning,
			wantCode:   "LOAD_RUNNING",
		},
		{
			name:       "app validation error",
			err:        NewAppValidationError("bad window", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "app not found error",
			err:        fmt.Errorf("profile: %w", NewNotFoundError("station X", errors.New("station not found"))),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "storage error",
			err:        NewStorageError("save workbook", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/rankings/station", nil)
			w := httptest.NewRecorder()
			handler.HandleError(w, req, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/rankings/station", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
		})
	}
}

func TestErrorHandler_NilError(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, w.Body.Len())
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandlePanic(w, httptest.NewRequest(http.MethodPost, "/api/load", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "nil map", body["panic"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFound(t *testing.T) {
	handler := NewErrorHandler(nil, false)
	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
