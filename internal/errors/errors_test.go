package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantMsg  string
		wantType ErrorType
	}{
		{
			name:     "parsing error with cause",
			err:      NewParsingError("bad row", fmt.Errorf("boom")),
			wantMsg:  "[PARSING] bad row: boom",
			wantType: ErrTypeParsing,
		},
		{
			name:     "validation error without cause",
			err:      NewAppValidationError("n must be positive", nil),
			wantMsg:  "[VALIDATION] n must be positive",
			wantType: ErrTypeValidation,
		},
		{
			name:     "config error with cause",
			err:      NewConfigError("invalid configuration", fmt.Errorf("bad port")),
			wantMsg:  "[CONFIG] invalid configuration: bad port",
			wantType: ErrTypeConfig,
		},
		{
			name:     "not found",
			err:      NewNotFoundError("station", nil),
			wantMsg:  "[NOT_FOUND] station not found",
			wantType: ErrTypeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, IsType(tt.err, tt.wantType))
			assert.True(t, IsType(fmt.Errorf("wrapped: %w", tt.err), tt.wantType))
		})
	}

	t.Run("unwrap reaches the cause", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewStorageError("write report", cause).WithContext("path", "out.xlsx")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "out.xlsx", err.Context["path"])
	})

	t.Run("IsType on foreign error", func(t *testing.T) {
		assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	})
}

func TestRowError(t *testing.T) {
	cause := errors.New("not an integer")

	t.Run("message with field", func(t *testing.T) {
		err := NewFormatRowError("turnstile_210102.txt", 7, "ENTRIES", "x12", cause)
		assert.Equal(t, `format error at turnstile_210102.txt:7 field ENTRIES="x12": not an integer`, err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("message without field", func(t *testing.T) {
		err := NewParseRowError("a.txt", 3, "", "", cause)
		assert.Equal(t, "parse error at a.txt:3: not an integer", err.Error())
		assert.Equal(t, KindParse, err.Kind)
	})

	t.Run("json carries the cause", func(t *testing.T) {
		data, err := json.Marshal(NewParseRowError("a.txt", 3, "TIME", "25:00:00", cause))
		require.NoError(t, err)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "parse", got["kind"])
		assert.Equal(t, "TIME", got["field"])
		assert.Equal(t, "not an integer", got["error"])
	})

	t.Run("file error", func(t *testing.T) {
		err := &FileError{Path: "missing.txt", Err: cause}
		assert.Contains(t, err.Error(), "missing.txt")
		assert.ErrorIs(t, err, cause)
	})
}

func TestAPIError(t *testing.T) {
	err := InvalidParameterError("n", errors.New("must be between 1 and 1000"))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_PARAMETER", err.ErrorCode)
	assert.Equal(t, "must be between 1 and 1000", err.Details)

	nf := NotFoundError("station")
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)
	assert.Equal(t, "station not found", nf.Error())
}
