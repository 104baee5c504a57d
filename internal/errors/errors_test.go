package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is through AppError failed")
	}
}

func TestWrap_NilError(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestCodePredicates_ThroughWrapping(t *testing.T) {
	base := ValidationField("email", "bad email")
	wrapped := fmt.Errorf("sign up: %w", base)

	if !IsValidation(wrapped) {
		t.Errorf("IsValidation should see through fmt wrapping")
	}
	if GetField(wrapped) != "email" {
		t.Errorf("GetField() = %q, want email", GetField(wrapped))
	}
	if IsConflict(wrapped) || IsNotFound(wrapped) || IsUnavailable(wrapped) || IsUnauthorized(wrapped) {
		t.Errorf("unexpected predicate match for %v", GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != "" {
		t.Errorf("plain errors have no code")
	}
	if !IsConflict(Conflict("dup")) || !IsNotFound(NotFound("nf")) || !IsUnauthorized(Unauthorized("u")) {
		t.Errorf("constructor codes mismatch")
	}
}
