package registry

import (
	"fmt"
)

// AuthError indicates a missing, expired, or rejected bearer token. The
// client raises it locally for auth-required calls when no token is
// configured, and remotely for 401/403 responses.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// NotFoundError indicates that the requested asset or version does not
// exist on the registry.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NetworkError indicates a transport-level failure before any HTTP status
// was received. The underlying error is preserved for unwrapping.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError indicates a non-2xx response that is neither an auth nor a
// not-found condition. Message carries the body's "error" field when the
// registry supplied one.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registry returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("registry returned status %d: %s", e.StatusCode, e.Message)
}
