package domain

import "errors"

// Error kinds. Every error a service returns to a caller unwraps to one of these,
// so transport code can map them to a status class with errors.Is.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// Error is a classified error carrying a stable, human-readable message.
type Error struct {
	kind error
	msg  string
	err  error
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Message returns the message safe to show to the end user.
func (e *Error) Message() string { return e.msg }

// Kind returns ErrBadRequest, ErrUnauthorized or ErrInternal.
func (e *Error) Kind() error { return e.kind }

func (e *Error) Unwrap() []error {
	if e.err != nil {
		return []error{e.kind, e.err}
	}
	return []error{e.kind}
}

// Is matches two classified errors by kind and message so that wrapped
// copies produced by Internal compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind && t.msg == e.msg
}

// Internal wraps an infrastructure failure as an InternalError, keeping the cause
// for logs. Errors that are already classified pass through untouched.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{kind: ErrInternal, msg: "internal error", err: err}
}

// OTP errors
var (
	ErrOTPInvalid        = newError(ErrUnauthorized, "invalid or expired otp")
	ErrOTPDeliveryFailed = newError(ErrInternal, "otp delivery failed")
)

// Challenge session errors
var (
	ErrSessionInvalid   = newError(ErrUnauthorized, "session expired or invalid")
	ErrSessionUsed      = newError(ErrUnauthorized, "session already used")
	ErrSessionForbidden = newError(ErrUnauthorized, "session does not belong to user")
	ErrResendLimit      = newError(ErrBadRequest, "too many resend attempts")
	ErrInvalidPayload   = newError(ErrBadRequest, "invalid request payload")
	ErrMutationFailed   = newError(ErrInternal, "could not apply change")
)

// Account errors
var (
	ErrUserNotFound        = newError(ErrBadRequest, "user not found")
	ErrDematNotFound       = newError(ErrBadRequest, "demat account not found")
	ErrUnknownSegment      = newError(ErrBadRequest, "unknown trading segment")
	ErrLoginSessionInvalid = newError(ErrUnauthorized, "login session invalid or expired")
)

// Funds and scheduling errors
var (
	ErrOutsideWindow   = newError(ErrBadRequest, "outside withdrawal request window")
	ErrInvalidAmount   = newError(ErrBadRequest, "amount must be positive")
	ErrRowNotClaimable = newError(ErrBadRequest, "row is not in the expected status")
	ErrNotFound        = newError(ErrBadRequest, "record not found")
)

// Token errors
var (
	ErrTokenInvalid   = newError(ErrUnauthorized, "invalid token")
	ErrTokenExpired   = newError(ErrUnauthorized, "token has expired")
	ErrTokenMalformed = newError(ErrUnauthorized, "malformed token")
)

// WithCause attaches a cause to a classified error without changing its identity.
func WithCause(e *Error, cause error) error {
	return &Error{kind: e.kind, msg: e.msg, err: cause}
}
