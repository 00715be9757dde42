// Package apperr defines the coded error type shared by every layer of the
// service. Codes are stable and map one-to-one onto HTTP statuses at the API
// boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	EInvalid         = "invalid"
	EUnauthorized    = "unauthorized"
	EForbidden       = "forbidden"
	ETenantInactive  = "tenant inactive"
	EUserInactive    = "user inactive"
	ENotFound        = "not found"
	EEntitlement     = "entitlement exceeded"
	EConflict        = "conflict"
	ETooManyRequests = "too many requests"
	EInternal        = "internal error"
)

// Error carries a machine-readable Code, a caller-safe Msg, the Op where it
// happened and an optional wrapped cause. Err is never shown to callers.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error

	// UpgradeRequired is set on EEntitlement errors.
	UpgradeRequired bool
}

func (e *Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		var b strings.Builder
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
		return b.String()
	} else if e.Msg != "" {
		return e.Msg
	} else if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("<%s>", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Internal wraps an unexpected failure. The cause is kept for logging.
func Internal(op string, err error) *Error {
	return &Error{Code: EInternal, Op: op, Err: err}
}

// ErrorCode returns the code of the outermost *Error in the chain, or
// EInternal for foreign errors.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return EInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}
	return EInternal
}

// ErrorMessage returns the caller-safe message. Internal errors always get the
// generic message, whatever their cause.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) || ErrorCode(err) == EInternal {
		return "An internal error has occurred."
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return ErrorMessage(e.Err)
	}
	return e.Code
}

func UpgradeRequired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.UpgradeRequired
}

func Is(err error, code string) bool {
	return ErrorCode(err) == code
}

var statusByCode = map[string]int{
	EInvalid:         http.StatusBadRequest,
	EConflict:        http.StatusBadRequest,
	EUnauthorized:    http.StatusUnauthorized,
	EUserInactive:    http.StatusUnauthorized,
	EForbidden:       http.StatusForbidden,
	ETenantInactive:  http.StatusForbidden,
	EEntitlement:     http.StatusForbidden,
	ENotFound:        http.StatusNotFound,
	ETooManyRequests: http.StatusTooManyRequests,
	EInternal:        http.StatusInternalServerError,
}

func HTTPStatus(err error) int {
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
