package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAuthError_BackendRejections(t *testing.T) {
	tests := []struct {
		name      string
		err       *BackendError
		wantCode  ErrorCode
		wantField string
		wantMsg   string
	}{
		{
			name:     "invalid credentials by message",
			err:      &BackendError{Status: 400, Message: "Invalid login credentials"},
			wantCode: ErrCodeInvalidCredentials,
			wantMsg:  "이메일 또는 비밀번호가 올바르지 않습니다.",
		},
		{
			name:     "email not confirmed by code",
			err:      &BackendError{Status: 400, Code: "email_not_confirmed", Message: "whatever"},
			wantCode: ErrCodeEmailNotConfirmed,
		},
		{
			name:     "too many requests by status",
			err:      &BackendError{Status: 429, Message: "slow down"},
			wantCode: ErrCodeRateLimited,
		},
		{
			name:      "duplicate account",
			err:       &BackendError{Status: 422, Message: "User already registered"},
			wantCode:  ErrCodeConflict,
			wantField: "email",
			wantMsg:   "이미 등록된 이메일입니다.",
		},
		{
			name:      "weak password",
			err:       &BackendError{Status: 422, Code: "weak_password", Message: "Password should be at least 8 characters"},
			wantCode:  ErrCodeValidation,
			wantField: "password",
		},
		{
			name:     "signup disabled",
			err:      &BackendError{Status: 422, Message: "Signups not allowed for this instance"},
			wantCode: ErrCodeSignupDisabled,
		},
		{
			name:     "server error is transient",
			err:      &BackendError{Status: 503, Message: "upstream"},
			wantCode: ErrCodeUnavailable,
			wantMsg:  MsgUnavailable,
		},
		{
			name:     "unknown rejection uses fallback",
			err:      &BackendError{Status: 400, Message: "odd"},
			wantCode: ErrCodeValidation,
			wantMsg:  MsgSignInFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyAuthError(fmt.Errorf("sign in: %w", tt.err), MsgSignInFailed)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantField, got.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Message)
			}
			var be *BackendError
			assert.True(t, errors.As(got, &be), "cause must stay reachable")
		})
	}
}

func TestClassifyAuthError_Transport(t *testing.T) {
	assert.Nil(t, ClassifyAuthError(nil, MsgSignInFailed))

	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	got := ClassifyAuthError(netErr, MsgSignInFailed)
	assert.Equal(t, ErrCodeUnavailable, got.Code)
	assert.Equal(t, MsgUnavailable, got.Message)

	assert.Equal(t, ErrCodeTimeout, ClassifyAuthError(context.DeadlineExceeded, MsgSignInFailed).Code)
	assert.Equal(t, ErrCodeCanceled, ClassifyAuthError(context.Canceled, MsgSignInFailed).Code)

	other := ClassifyAuthError(errors.New("boom"), MsgSignUpFailed)
	assert.Equal(t, ErrCodeInternal, other.Code)
	assert.Equal(t, MsgSignUpFailed, other.Message)
}

func TestClassifyAuthError_AppErrorPassesThrough(t *testing.T) {
	in := ValidationField("email", "bad")
	assert.Same(t, in, ClassifyAuthError(fmt.Errorf("wrap: %w", in), MsgSignInFailed))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "x", UserMessage(Validation("x"), "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("plain"), "fallback"))
	assert.Equal(t, "fallback", UserMessage(nil, "fallback"))
}
