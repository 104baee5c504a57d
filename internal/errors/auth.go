package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// BackendError is an error response returned by the hosted auth backend.
type BackendError struct {
	Status int
	// Code is the backend's machine-readable error code, when it sends one.
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: %d: %s", e.Status, e.Message)
}

// Generic user-facing messages shown when nothing more specific applies.
const (
	MsgSignInFailed  = "로그인에 실패했습니다."
	MsgSignUpFailed  = "회원가입에 실패했습니다."
	MsgUnavailable   = "네트워크 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
	MsgGuestFailed   = "게스트 모드 진입에 실패했습니다."
	MsgLoginRequired = "로그인이 필요합니다"
)

type authRule struct {
	codes   []string
	phrases []string
	code    ErrorCode
	field   string
	message string
}

// authRules is matched top to bottom against the backend error code and message.
var authRules = []authRule{
	{
		codes:   []string{"invalid_credentials", "invalid_grant"},
		phrases: []string{"Invalid login credentials"},
		code:    ErrCodeInvalidCredentials,
		message: "이메일 또는 비밀번호가 올바르지 않습니다.",
	},
	{
		codes:   []string{"email_not_confirmed"},
		phrases: []string{"Email not confirmed"},
		code:    ErrCodeEmailNotConfirmed,
		message: "이메일 인증이 필요합니다. 이메일을 확인해주세요.",
	},
	{
		codes:   []string{"over_request_rate_limit", "over_email_send_rate_limit"},
		phrases: []string{"Too many requests", "rate limit"},
		code:    ErrCodeRateLimited,
		message: "너무 많은 시도가 있었습니다. 잠시 후 다시 시도해주세요.",
	},
	{
		codes:   []string{"user_already_exists", "email_exists"},
		phrases: []string{"User already registered"},
		code:    ErrCodeConflict,
		field:   "email",
		message: "이미 등록된 이메일입니다.",
	},
	{
		codes:   []string{"weak_password"},
		phrases: []string{"Password should be at least"},
		code:    ErrCodeValidation,
		field:   "password",
		message: "비밀번호는 8자 이상이어야 합니다.",
	},
	{
		codes:   []string{"email_address_invalid", "validation_failed"},
		phrases: []string{"Invalid email", "Unable to validate email address"},
		code:    ErrCodeValidation,
		field:   "email",
		message: "올바른 이메일 형식이 아닙니다.",
	},
	{
		codes:   []string{"signup_disabled"},
		phrases: []string{"Signup is disabled", "Signups not allowed"},
		code:    ErrCodeSignupDisabled,
		message: "현재 회원가입이 비활성화되어 있습니다.",
	},
}

// ClassifyAuthError maps a backend or transport error to an AppError whose
// Message is fit for display. fallback is used for rejections no rule
// recognizes. AppErrors pass through unchanged.
func ClassifyAuthError(err error, fallback string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrCodeTimeout, MsgUnavailable)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(err, ErrCodeCanceled, fallback)
	}

	var be *BackendError
	if errors.As(err, &be) {
		return classifyBackend(be, err, fallback)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(err, ErrCodeUnavailable, MsgUnavailable)
	}

	return Wrap(err, ErrCodeInternal, fallback)
}

func classifyBackend(be *BackendError, cause error, fallback string) *AppError {
	for _, rule := range authRules {
		if rule.matches(be) {
			return &AppError{Code: rule.code, Message: rule.message, Field: rule.field, Cause: cause}
		}
	}

	switch {
	case be.Status == http.StatusTooManyRequests:
		return Wrap(cause, ErrCodeRateLimited, authRules[2].message)
	case be.Status >= http.StatusInternalServerError:
		return Wrap(cause, ErrCodeUnavailable, MsgUnavailable)
	case be.Status == http.StatusUnauthorized || be.Status == http.StatusForbidden:
		return Wrap(cause, ErrCodeUnauthorized, fallback)
	default:
		return Wrap(cause, ErrCodeValidation, fallback)
	}
}

func (r authRule) matches(be *BackendError) bool {
	for _, c := range r.codes {
		if strings.EqualFold(be.Code, c) {
			return true
		}
	}
	msg := strings.ToLower(be.Message)
	for _, p := range r.phrases {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// UserMessage returns the display message for err, or fallback when err is not an AppError.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
