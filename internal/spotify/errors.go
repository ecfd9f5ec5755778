package spotify

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrEmptyAccessToken = errors.New("token endpoint returned an empty access token")

// AuthExchangeError is returned when the token endpoint answers with a non-2xx status.
type AuthExchangeError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Description)
}

// APIError is returned when the Web API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api returned status %d: %s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the access token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}
