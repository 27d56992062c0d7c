package weread

import (
	"errors"
	"fmt"
)

// Server error codes meaning the session cookie is no longer valid.
const (
	ErrCodeSessionExpired = -2012
	ErrCodeLoginRequired  = -2010
)

// ErrEmptyCredential is returned when a client is created without a cookie.
var ErrEmptyCredential = errors.New("WeRead session credential is empty")

// CredentialExpiredError means WeRead rejected the session cookie. Retrying
// with the same cookie cannot succeed.
type CredentialExpiredError struct {
	Endpoint string
	Code     int
}

func (e *CredentialExpiredError) Error() string {
	return fmt.Sprintf("WeRead cookie expired calling %s (errcode %d): refresh WEREAD_COOKIE or resync CookieCloud", e.Endpoint, e.Code)
}

// APIError is a transient failure: a network error, an HTTP error status or a
// non-zero errcode other than the expiry codes.
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("WeRead request to %s failed: %v", e.Endpoint, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("WeRead API error from %s: %s (code: %d)", e.Endpoint, e.Message, e.Code)
	default:
		return fmt.Sprintf("WeRead API error from %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StructuralMismatchError means a response did not have any known shape.
type StructuralMismatchError struct {
	Endpoint string
	Detail   string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("unexpected response shape from %s: %s", e.Endpoint, e.Detail)
}

// IsCredentialExpired reports whether err carries an expiry code.
func IsCredentialExpired(err error) bool {
	var expired *CredentialExpiredError
	return errors.As(err, &expired)
}

func isExpiryCode(code int) bool {
	return code == ErrCodeSessionExpired || code == ErrCodeLoginRequired
}

func classifyErrcode(endpoint string, code int, message string) error {
	if isExpiryCode(code) {
		return &CredentialExpiredError{Endpoint: endpoint, Code: code}
	}
	if message == "" {
		message = "Unknown error"
	}
	return &APIError{Endpoint: endpoint, Code: code, Message: message}
}

// isRetryableError reports whether another attempt may succeed.
func isRetryableError(err error) bool {
	return !IsCredentialExpired(err)
}
