package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		message   string
		details   string
		requestID string
	}{
		{
			name:      "Basic error",
			code:      ErrCodeInvalidInput,
			message:   "Unsupported disease",
			details:   "flu is not one of the supported diseases",
			requestID: "req-123",
		},
		{
			name:      "Database error",
			code:      ErrCodeDatabase,
			message:   "Database connection failed",
			details:   "Unable to connect to PostgreSQL",
			requestID: "req-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError(tt.code, tt.message, tt.details, tt.requestID)

			if err.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, err.Code)
			}

			if err.Message != tt.message {
				t.Errorf("Expected message %s, got %s", tt.message, err.Message)
			}

			if err.Details != tt.details {
				t.Errorf("Expected details %s, got %s", tt.details, err.Details)
			}

			if err.RequestID != tt.requestID {
				t.Errorf("Expected requestID %s, got %s", tt.requestID, err.RequestID)
			}

			if time.Since(err.Timestamp) > time.Minute {
				t.Errorf("Timestamp should be recent, got %v", err.Timestamp)
			}

			expectedError := tt.code + ": " + tt.message
			if err.Error() != expectedError {
				t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("top_n", "must not be negative", -1)

	if err.Field != "top_n" {
		t.Errorf("Expected field top_n, got %s", err.Field)
	}
	if err.Value != -1 {
		t.Errorf("Expected value -1, got %v", err.Value)
	}

	expectedError := "validation error for field 'top_n': must not be negative"
	if err.Error() != expectedError {
		t.Errorf("Expected error string %s, got %s", expectedError, err.Error())
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", fmt.Errorf("parsing: %w", NewValidationError("limit", "bad", "x")), ErrCodeValidation},
		{"disease", fmt.Errorf("%w: %q", ErrUnsupportedDisease, "flu"), ErrCodeInvalidInput},
		{"format", ErrUnsupportedFormat, ErrCodeUnsupportedFileType},
		{"no genes", ErrNoGenes, ErrCodeNoGenes},
		{"not found", fmt.Errorf("analysis abc: %w", ErrNotFound), ErrCodeNotFound},
		{"malformed", fmt.Errorf("loading stroke: %w", ErrMalformedRiskTable), ErrCodeDataIntegrity},
		{"other", errors.New("boom"), ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	expected := map[string]string{
		ErrCodeInvalidInput:        "INVALID_INPUT",
		ErrCodeUnsupportedFileType: "UNSUPPORTED_FILE_TYPE",
		ErrCodeNoGenes:             "NO_GENES",
		ErrCodeNotFound:            "NOT_FOUND",
		ErrCodeDatabase:            "DATABASE_ERROR",
		ErrCodeExternalAPI:         "EXTERNAL_API_ERROR",
		ErrCodeDataIntegrity:       "DATA_INTEGRITY",
		ErrCodeRateLimit:           "RATE_LIMIT_EXCEEDED",
		ErrCodeInternalServer:      "INTERNAL_SERVER_ERROR",
		ErrCodeValidation:          "VALIDATION_ERROR",
	}

	for actual, want := range expected {
		if actual != want {
			t.Errorf("Expected %s, got %s", want, actual)
		}
	}
}
