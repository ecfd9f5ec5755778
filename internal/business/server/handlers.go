package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/openkcm/common-sdk/pkg/fingerprint"

	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/serviceerr"
	"github.com/eventbot/dashboard/internal/session"
)

const (
	csrfHeader     = "X-CSRF-Token"
	maxRequestBody = 4 << 10
)

// apiServer serves the dashboard API.
type apiServer struct {
	sManager  *session.Manager
	dashboard *dashboard.Service

	postLoginRedirect string
}

func newAPIServer(sManager *session.Manager, dash *dashboard.Service, postLoginRedirect string) *apiServer {
	if postLoginRedirect == "" {
		postLoginRedirect = "/"
	}

	return &apiServer{
		sManager:          sManager,
		dashboard:         dash,
		postLoginRedirect: postLoginRedirect,
	}
}

// Login starts the authorization round trip and redirects the browser to Spotify.
func (s *apiServer) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slogctx.Debug(ctx, "Login() called")
	defer slogctx.Debug(ctx, "Login() completed")

	fp, err := fingerprint.ExtractFingerprint(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to extract fingerprint", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	loginReq, err := s.sManager.Initiate(ctx, fp)
	if err != nil {
		slogctx.Error(ctx, "Failed to initiate login", "error", err)
		writeError(w, err)
		return
	}

	pendingCookie, err := s.sManager.MakePendingCookie(ctx, loginReq.PendingID)
	if err != nil {
		slogctx.Error(ctx, "Failed to create pending login cookie", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	http.SetCookie(w, pendingCookie)
	http.Redirect(w, r, loginReq.AuthURL, http.StatusFound)
}

// Callback exchanges the authorization code and starts a session.
func (s *apiServer) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	slogctx.Debug(ctx, "Callback() called", "state", query.Get("state"))
	defer slogctx.Debug(ctx, "Callback() completed")

	if providerErr := query.Get("error"); providerErr != "" {
		slogctx.Info(ctx, "Authorization was not granted", "error", providerErr)
		http.SetCookie(w, s.sManager.ExpiredPendingCookie())
		writeError(w, serviceerr.New(serviceerr.CodeAccessDenied, providerErr))
		return
	}

	currentFingerprint, err := fingerprint.ExtractFingerprint(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to extract fingerprint", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	result, err := s.sManager.Finalise(ctx, cookieValue(r, s.sManager.PendingCookieName()), query.Get("state"), query.Get("code"), currentFingerprint)
	if err != nil {
		slogctx.Error(ctx, "Failed to finalise login", "error", err)

		body, status := toErrorModel(err)
		if status == http.StatusForbidden {
			// a fingerprint mismatch is reported as a generic unauthorized error
			body, status = toErrorModel(serviceerr.ErrUnauthorized)
		}

		writeJSON(w, status, body)
		return
	}

	sessionCookie, err := s.sManager.MakeSessionCookie(ctx, result.SessionID)
	if err != nil {
		slogctx.Error(ctx, "Failed to create session cookie", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	csrfCookie, err := s.sManager.MakeCSRFCookie(ctx, result.CSRFToken)
	if err != nil {
		slogctx.Error(ctx, "Failed to create CSRF cookie", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	http.SetCookie(w, sessionCookie)
	http.SetCookie(w, csrfCookie)
	http.SetCookie(w, s.sManager.ExpiredPendingCookie())

	slogctx.Debug(ctx, "Redirecting user", "to", s.postLoginRedirect)
	http.Redirect(w, r, s.postLoginRedirect, http.StatusFound)
}

// Logout ends the session and resets the login cookies.
func (s *apiServer) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slogctx.Debug(ctx, "Logout() called")
	defer slogctx.Debug(ctx, "Logout() completed")

	sessionID, ok := s.requireCSRF(w, r)
	if !ok {
		return
	}

	if err := s.sManager.Logout(ctx, sessionID, cookieValue(r, s.sManager.PendingCookieName())); err != nil {
		slogctx.Error(ctx, "Failed to logout user", "error", err)
		writeError(w, err)
		return
	}

	s.expireLoginCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard returns the dashboard payload, or the logged-out payload without a session.
func (s *apiServer) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slogctx.Debug(ctx, "Dashboard() called")
	defer slogctx.Debug(ctx, "Dashboard() completed")

	sessionID := cookieValue(r, s.sManager.SessionCookieName())

	var sess *session.Session
	if sessionID != "" {
		loaded, err := s.loadSession(ctx, sessionID)
		switch {
		case errors.Is(err, serviceerr.ErrNotFound):
			s.expireLoginCookies(w)
		case err != nil:
			slogctx.Error(ctx, "Failed to load session", "error", err)
			writeError(w, err)
			return
		default:
			sess = &loaded
		}
	}

	payload, err := s.dashboard.Load(ctx, sess)
	if err != nil {
		if !errors.Is(err, dashboard.ErrSessionEnded) {
			slogctx.Error(ctx, "Failed to load dashboard", "error", err)
			writeError(w, err)
			return
		}

		s.expireLoginCookies(w)
	}

	writeJSON(w, http.StatusOK, payload)
}

type linkTelegramResponse struct {
	Sent bool `json:"sent"`
}

// TelegramTest sends the panel notification to the given chat.
func (s *apiServer) TelegramTest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slogctx.Debug(ctx, "TelegramTest() called")
	defer slogctx.Debug(ctx, "TelegramTest() completed")

	sessionID, ok := s.requireCSRF(w, r)
	if !ok {
		return
	}

	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			s.expireLoginCookies(w)
			writeError(w, serviceerr.ErrNotAuthenticated)
			return
		}

		slogctx.Error(ctx, "Failed to load session", "error", err)
		writeError(w, err)
		return
	}

	var req dashboard.LinkTelegramRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		slogctx.Warn(ctx, "Failed to decode request body", "error", err)
		body, status := newBadRequest("invalid request body")
		writeJSON(w, status, body)
		return
	}

	if err := s.dashboard.LinkTelegram(ctx, sess, req); err != nil {
		slogctx.Error(ctx, "Failed to link telegram chat", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, linkTelegramResponse{Sent: true})
}

// Map returns the coverage area of the event radar.
func (s *apiServer) Map(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Map())
}

// Consent records the cookie consent for one year.
func (s *apiServer) Consent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	consentCookie, err := s.sManager.MakeConsentCookie(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to create consent cookie", "error", err)
		writeError(w, serviceerr.ErrUnknown)
		return
	}

	http.SetCookie(w, consentCookie)
	w.WriteHeader(http.StatusNoContent)
}

// requireCSRF returns the session id when the request carries a CSRF token bound to it.
func (s *apiServer) requireCSRF(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	sessionID := cookieValue(r, s.sManager.SessionCookieName())
	if sessionID == "" {
		writeError(w, serviceerr.ErrNotAuthenticated)
		return "", false
	}

	token := r.Header.Get(csrfHeader)
	if token == "" {
		body, status := newBadRequest("missing " + csrfHeader + " header")
		writeJSON(w, status, body)
		return "", false
	}

	if !s.sManager.ValidateCSRFToken(token, sessionID) {
		tokenHash := sha256.Sum256([]byte(token))
		sessionIDHash := sha256.Sum256([]byte(sessionID))
		slogctx.Warn(ctx, "Received invalid csrf token value", "csrf_token_hash", tokenHash[:5], "session_id_hash", sessionIDHash[:5])

		writeError(w, serviceerr.ErrInvalidCSRFToken)
		return "", false
	}

	return sessionID, true
}

// loadSession loads the session bound to the fingerprint of the current request.
func (s *apiServer) loadSession(ctx context.Context, sessionID string) (session.Session, error) {
	fp, err := fingerprint.ExtractFingerprint(ctx)
	if err != nil {
		return session.Session{}, fmt.Errorf("extracting fingerprint: %w", err)
	}

	return s.sManager.LoadSession(ctx, sessionID, fp)
}

func (s *apiServer) expireLoginCookies(w http.ResponseWriter) {
	for _, c := range s.sManager.ExpiredLoginCookies() {
		http.SetCookie(w, c)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return c.Value
}
