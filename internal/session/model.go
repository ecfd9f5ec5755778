package session

import (
	"time"

	"github.com/eventbot/dashboard/internal/spotify"
)

// PendingLogin is one in-flight authorization round trip, from the redirect to the callback.
type PendingLogin struct {
	ID           string    // Sent as the OAuth state and kept in the pending cookie
	Fingerprint  string    // Binds the login to the user agent that started it
	PKCEVerifier string    // Code verifier, sent only to the token endpoint
	Expiry       time.Time // Expiry time of the login process
}

// Session is a connected Spotify account.
type Session struct {
	ID          string           // Session ID held by the browser in an HttpOnly cookie
	Fingerprint string           // Fingerprint of the user agent that logged in
	CSRFToken   string           // CSRF token bound to the session ID
	AccessToken string           // Bearer token issued by Spotify
	Artists     []spotify.Artist // Last fetched top artists
	Expiry      time.Time        // Expiry time of the session
}

// LoginResult is handed to the HTTP layer after a successful callback.
type LoginResult struct {
	SessionID string
	CSRFToken string
}

// LoginRequest is handed to the HTTP layer when a login starts.
type LoginRequest struct {
	PendingID string
	AuthURL   string
}
