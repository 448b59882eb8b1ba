// Package gwerrors contains all common errors used by the gateway.
package gwerrors

import (
	"fmt"
	"net/http"
)

var ErrSessionParse = fmt.Errorf("cannot parse session from context")
var ErrSessionNotFound = fmt.Errorf("cannot find the session")
var ErrSessionExpired = fmt.Errorf("the session is expired")
var ErrNotFound = fmt.Errorf("the requested resource cannot be found")
var ErrMissingCredentials = fmt.Errorf("the required credentials cannot be found")
var ErrMissingDBResource = fmt.Errorf("the requested resource cannot be found in the DB")

// ErrCredentialsReplaced is returned when a refreshed access token is not stored because the
// refresh token it was obtained with has been removed or replaced in the meantime.
var ErrCredentialsReplaced = fmt.Errorf("the stored credentials were removed or replaced")

// ErrAuthExpired is returned when the access token could not be refreshed, either because
// there is no refresh token or because the refresh call failed. The stored credentials are
// cleared whenever this error is returned and the user has to log in again.
var ErrAuthExpired = fmt.Errorf("the authentication has expired")

// RequestFailedError is a non-2xx response from the API. Status and body are kept verbatim.
type RequestFailedError struct {
	Status int
	Body   []byte
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed with status %d %s", e.Status, http.StatusText(e.Status))
}

// IsUnauthorized reports whether the API rejected the credentials.
func (e *RequestFailedError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NetworkError means that the API could not be reached or the response could not be read.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
