package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hilirisasi/internal/shared/testutil"
	"hilirisasi/pkg/contracts/domain"
)

func TestLoadError(t *testing.T) {
	tests := []struct {
		name     string
		err      *LoadError
		sentinel error
		message  string
	}{
		{
			name:     "not found",
			err:      NewLoadError(LoadSourceNotFound, "data/a.xlsx", "Input Data", fs.ErrNotExist),
			sentinel: ErrSourceNotFound,
			message:  `load data/a.xlsx sheet "Input Data": source not found: file does not exist`,
		},
		{
			name:     "column missing",
			err:      NewLoadError(LoadColumnMissing, "a.xlsx", "Input Data", nil).At("REVENUE", 1),
			sentinel: ErrColumnMissing,
			message:  `load a.xlsx sheet "Input Data": required column missing column "REVENUE" row 1`,
		},
		{
			name:     "bad date",
			err:      NewLoadError(LoadDateUnparseable, "a.xlsx", "", errors.New("soon")).At("MONTH", 12),
			sentinel: ErrDateUnparseable,
			message:  `load a.xlsx: unparseable date column "MONTH" row 12: soon`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.sentinel)

			wrapped := fmt.Errorf("refresh: %w", tt.err)
			assert.True(t, IsLoadError(wrapped))
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}

	assert.ErrorIs(t, NewLoadError(LoadSourceNotFound, "a", "", fs.ErrNotExist), fs.ErrNotExist)
	assert.False(t, IsLoadError(errors.New("plain")))
}

func TestEmptySelectionError(t *testing.T) {
	err := &EmptySelectionError{Operation: "top_by", Measure: "revenue"}
	assert.Equal(t, "top_by by revenue: empty selection", err.Error())
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, "summary: empty selection", (&EmptySelectionError{Operation: "summary"}).Error())
}

func TestAPIError_Is(t *testing.T) {
	err := fmt.Errorf("lookup: %w", DatasetNotFound("v3"))
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAppError(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := NewConfigError("invalid config file", cause).WithContext("path", "config.yaml")
	assert.Equal(t, "[CONFIG] invalid config file: yaml: line 3", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "config.yaml", err.Context["path"])
	assert.Equal(t, "[NOT_FOUND] dataset not found", NewNotFoundError("dataset").Error())
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		typ       string
		extension map[string]any
	}{
		{"dataset not found", DatasetNotFound("v3"), http.StatusNotFound, TypeDatasetNotFound, map[string]any{"error_code": "DATASET_NOT_FOUND"}},
		{"source missing", NewLoadError(LoadSourceNotFound, "a.xlsx", "", fs.ErrNotExist), http.StatusNotFound, TypeDataNotFound, map[string]any{"load_error": "source_not_found"}},
		{"bad date", NewLoadError(LoadDateUnparseable, "a.xlsx", "Input Data", nil).At("MONTH", 7), http.StatusUnprocessableEntity, TypeDataCorrupted, map[string]any{"column": "MONTH", "row": float64(7), "sheet": "Input Data"}},
		{"empty selection", &EmptySelectionError{Operation: "top_by", Measure: "revenue"}, http.StatusNotFound, TypeEmptySelection, nil},
		{"unknown measure", fmt.Errorf("%w: %q", domain.ErrUnknownMeasure, "weight"), http.StatusBadRequest, TypeValidation, nil},
		{"app validation", NewAppValidationError("year must be positive"), http.StatusBadRequest, TypeValidation, nil},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout, nil},
		{"internal", errors.New("boom"), http.StatusInternalServerError, TypeInternal, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/v3/summary", nil)
			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.typ, body["type"])
			assert.Equal(t, float64(tt.status), body["status"])
			assert.Equal(t, "/api/v1/datasets/v3/summary", body["instance"])
			for k, v := range tt.extension {
				assert.Equal(t, v, body[k], k)
			}
			assert.NotContains(t, body, "stack")

			assert.True(t, handler.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("boom"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "stack")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/datasets", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "DELETE")
}
