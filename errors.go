package smartsheet

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors returned by the Smartsheet client.
// Typed errors below unwrap to one of these, so callers can use errors.Is.
var (
	// Input errors
	ErrInvalidArgument = errors.New("smartsheet: invalid argument")
	ErrURLFormat       = errors.New("smartsheet: malformed URL")
	ErrEmptyToken      = errors.New("smartsheet: API token cannot be empty")

	// Authorization-phase errors (callback parsing)
	ErrAccessDenied            = errors.New("smartsheet: access denied")
	ErrUnsupportedResponseType = errors.New("smartsheet: unsupported response type")
	ErrInvalidScope            = errors.New("smartsheet: invalid scope")
	ErrAuthorization           = errors.New("smartsheet: authorization error")

	// Token-phase errors (exchange, refresh, revoke)
	ErrInvalidTokenRequest       = errors.New("smartsheet: invalid token request")
	ErrInvalidOAuthClient        = errors.New("smartsheet: invalid OAuth client")
	ErrInvalidOAuthGrant         = errors.New("smartsheet: invalid OAuth grant")
	ErrUnsupportedOAuthGrantType = errors.New("smartsheet: unsupported OAuth grant type")
	ErrOAuthToken                = errors.New("smartsheet: OAuth token error")

	// Plumbing errors
	ErrSerialization = errors.New("smartsheet: serialization error")
	ErrTransport     = errors.New("smartsheet: transport error")

	// API errors
	ErrUnauthorized = errors.New("smartsheet: unauthorized (invalid or expired token)")
	ErrNotFound     = errors.New("smartsheet: resource not found")
	ErrRateLimited  = errors.New("smartsheet: rate limited (too many requests)")
)

// invalidArgument wraps ErrInvalidArgument with a description of the bad input.
func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// OAuthError is a categorized failure from the authorization callback or the
// token endpoint. Kind is one of the authorization-phase or token-phase sentinels.
type OAuthError struct {
	Kind        error
	Code        string // raw "error" value sent by the service, if any
	Description string
	StatusCode  int // zero for callback errors
}

// Error implements the error interface.
func (e *OAuthError) Error() string {
	msg := e.Kind.Error()
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" [status %d]", e.StatusCode)
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

// Unwrap returns the error kind so errors.Is matches the sentinel.
func (e *OAuthError) Unwrap() error {
	return e.Kind
}

// authorizationErrorKind maps a callback "error" parameter to its sentinel.
func authorizationErrorKind(code string) error {
	switch code {
	case "access_denied":
		return ErrAccessDenied
	case "unsupported_response_type":
		return ErrUnsupportedResponseType
	case "invalid_scope":
		return ErrInvalidScope
	default:
		return ErrAuthorization
	}
}

// tokenErrorKind maps a token endpoint "error" value to its sentinel.
func tokenErrorKind(code string) error {
	switch code {
	case "invalid_request":
		return ErrInvalidTokenRequest
	case "invalid_client":
		return ErrInvalidOAuthClient
	case "invalid_grant":
		return ErrInvalidOAuthGrant
	case "unsupported_grant_type":
		return ErrUnsupportedOAuthGrantType
	default:
		return ErrOAuthToken
	}
}

// SerializationError reports a body that could not be decoded into the expected shape.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return "smartsheet: serialization error: " + e.Err.Error()
}

// Unwrap exposes both ErrSerialization and the underlying decoder error.
func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerialization, e.Err}
}

// TransportError reports a connection or I/O failure while talking to the service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op != "" {
		return "smartsheet: " + e.Op + ": " + e.Err.Error()
	}
	return "smartsheet: transport error: " + e.Err.Error()
}

// Unwrap exposes both ErrTransport and the underlying network error.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// APIError represents an error response from the Smartsheet API.
type APIError struct {
	StatusCode int
	ErrorCode  int
	Message    string
	RefID      string
	RetryAfter time.Duration // from the Retry-After header, if sent
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RefID != "" {
		return fmt.Sprintf("smartsheet: API error %d (code %d): %s (ref_id: %s)", e.StatusCode, e.ErrorCode, e.Message, e.RefID)
	}
	return fmt.Sprintf("smartsheet: API error %d (code %d): %s", e.StatusCode, e.ErrorCode, e.Message)
}

// Is lets errors.Is match the status-derived sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests || e.ErrorCode == ErrorCodeRateLimitExceeded
	}
	return false
}

// IsUnauthorized returns true if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound returns true if the error indicates the resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTransient returns true if err is an APIError whose code is in DefaultTransientCodes.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isDefaultTransient(apiErr.ErrorCode)
	}
	return false
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
