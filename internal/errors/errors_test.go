package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "simple message",
			apiError: &APIError{
				StatusCode: http.StatusBadRequest,
				ErrorCode:  "INVALID_REQUEST",
				Message:    "Invalid request format",
			},
			want: "Invalid request format",
		},
		{
			name: "empty message",
			apiError: &APIError{
				StatusCode: http.StatusInternalServerError,
				ErrorCode:  "INTERNAL_ERROR",
				Message:    "",
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.apiError.Error()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{
			name:       "bad request error",
			apiError:   ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "deal not found",
			apiError:   ErrDealNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store disabled",
			apiError:   ErrStoreDisabled,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)

			err := tt.apiError.Render(w, r)
			assert.NoError(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	got := New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")

	want := &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "INVALID_REQUEST",
		Message:    "Invalid request format",
		Details:    nil,
	}
	assert.Equal(t, want, got)
}

func TestNewWithDetails(t *testing.T) {
	tests := []struct {
		name    string
		details interface{}
	}{
		{
			name:    "string details",
			details: "field 'name' is required",
		},
		{
			name:    "map details",
			details: map[string]string{"field": "name", "error": "required"},
		},
		{
			name:    "validation error details",
			details: ValidationError{Field: "email", Message: "invalid format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", tt.details)

			assert.Equal(t, http.StatusBadRequest, got.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", got.ErrorCode)
			assert.Equal(t, tt.details, got.Details)
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{
			name:       "ErrInvalidRequest",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "ErrValidationFailed",
			err:        ErrValidationFailed,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "ErrUnauthorized",
			err:        ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "ErrInvalidCredentials",
			err:        ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "ErrForbidden",
			err:        ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "ErrNotFound",
			err:        ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "ErrDealNotFound",
			err:        ErrDealNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "DEAL_NOT_FOUND",
		},
		{
			name:       "ErrJobNotFound",
			err:        ErrJobNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "JOB_NOT_FOUND",
		},
		{
			name:       "ErrRateLimitExceeded",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMIT_EXCEEDED",
		},
		{
			name:       "ErrInternalServer",
			err:        ErrInternalServer,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
		{
			name:       "ErrStoreDisabled",
			err:        ErrStoreDisabled,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "STORE_DISABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	got := InvalidRequestWithError(assert.AnError)

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", got.ErrorCode)
	assert.Equal(t, assert.AnError.Error(), got.Details)
}

func TestErrValidation(t *testing.T) {
	got := ErrValidation("HoldYears", "must be between 1 and 30")

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", got.ErrorCode)

	details, ok := got.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "HoldYears", details.Field)
	assert.Equal(t, "must be between 1 and 30", details.Message)
}

func TestDomainErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{
			name:       "underwriting failure",
			err:        ErrUnderwriting(assert.AnError),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNDERWRITING_FAILED",
		},
		{
			name:       "rent roll import failure",
			err:        ErrRentRollImport(assert.AnError),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "RENTROLL_IMPORT_FAILED",
		},
		{
			name:       "job execution failure",
			err:        ErrJobExecution(assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "JOB_EXECUTION_FAILED",
		},
		{
			name:       "filesystem failure",
			err:        FileSystemError("save", assert.AnError),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "FILESYSTEM_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, assert.AnError.Error(), tt.err.Details)
		})
	}
}

func TestNotFoundError(t *testing.T) {
	got := NotFoundError("deal")

	assert.Equal(t, http.StatusNotFound, got.StatusCode)
	assert.Equal(t, "NOT_FOUND", got.ErrorCode)
	assert.Equal(t, "deal not found", got.Message)
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "PurchasePrice", Message: "must be positive"},
		{Field: "ExitCapRate", Message: "must be positive"},
	}

	got := NewValidationErrors(fields)

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", got.ErrorCode)

	details, ok := got.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, ErrDealNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DEAL_NOT_FOUND", resp.Error.ErrorCode)
}

func TestErrPanic(t *testing.T) {
	got := ErrPanic("boom")

	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", got.ErrorCode)

	details, ok := got.Details.(PanicRecovery)
	require.True(t, ok)
	assert.Equal(t, "boom", details.Message)
}
