package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantCode   string
		wantStatus int
	}{
		{"unavailable", Unavailable("room is not available for these dates"), CodeUnavailable, http.StatusConflict},
		{"not found", NotFoundWithID("Allocation", "a1"), CodeNotFound, http.StatusNotFound},
		{"invalid state", InvalidState("allocation is not reserved"), CodeInvalidState, http.StatusUnprocessableEntity},
		{"conflict", Conflict("confirmed allocations cannot be released"), CodeConflict, http.StatusConflict},
		{"invalid input", InvalidInput("weight must be positive"), CodeInvalidInput, http.StatusBadRequest},
		{"internal", Internal("snapshot write failed", errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.appErr.Code)
			}
			if tt.appErr.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.appErr.StatusCode())
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "allocation not found",
			},
			expected: "NOT_FOUND: allocation not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "snapshot write failed",
				Err:     errors.New("connection reset"),
			},
			expected: "INTERNAL_ERROR: snapshot write failed (caused by: connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Internal("wrapped", originalErr)

	if unwrapped := errors.Unwrap(appErr); unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Unavailable("taken")
	if got := AsAppError(appErr); got != appErr {
		t.Errorf("AsAppError should return the same *AppError unchanged")
	}

	plain := errors.New("plain")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("expected plain error to map to %s, got %s", CodeInternal, got.Code)
	}
	if errors.Unwrap(got) != plain {
		t.Errorf("expected wrapped plain error to be preserved")
	}
}
