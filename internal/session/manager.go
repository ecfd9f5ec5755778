package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/csrf"
	"github.com/patrickmn/go-cache"

	otlpaudit "github.com/openkcm/common-sdk/pkg/otlp/audit"
	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/config"
	"github.com/eventbot/dashboard/internal/pkce"
	"github.com/eventbot/dashboard/internal/serviceerr"
	"github.com/eventbot/dashboard/internal/spotify"
)

const (
	auditInitiator = "eventbot dashboard"
	auditTenant    = "spotify"

	defaultCodeGuardDuration = 10 * time.Minute
)

// Authorizer builds the authorization redirect and redeems authorization codes.
type Authorizer interface {
	AuthURL(challenge pkce.PKCE, state string) (string, error)
	ExchangeCode(ctx context.Context, code, verifier string) (spotify.Token, error)
}

type Manager struct {
	authorizer Authorizer
	sessions   Repository
	pkce       pkce.Source
	audit      *otlpaudit.AuditLogger
	// exchanged holds the authorization codes currently claimed by an exchange.
	exchanged *cache.Cache

	sessionDuration time.Duration
	loginDuration   time.Duration

	sessionCookieTemplate config.CookieTemplate
	csrfCookieTemplate    config.CookieTemplate
	pendingCookieTemplate config.CookieTemplate
	consentCookieTemplate config.CookieTemplate

	csrfSecret []byte
}

func NewManager(
	cfg *config.SessionManager,
	authorizer Authorizer,
	sessions Repository,
	auditLogger *otlpaudit.AuditLogger,
) (*Manager, error) {
	if len(cfg.CSRFSecretParsed) < config.MinCSRFSecretLength {
		return nil, config.ErrCSRFSecretTooShort
	}

	guardDuration := cfg.CodeGuardDuration
	if guardDuration <= 0 {
		guardDuration = defaultCodeGuardDuration
	}

	return &Manager{
		authorizer:            authorizer,
		sessions:              sessions,
		audit:                 auditLogger,
		exchanged:             cache.New(guardDuration, 2*guardDuration),
		sessionDuration:       cfg.SessionDuration,
		loginDuration:         cfg.LoginDuration,
		sessionCookieTemplate: cfg.SessionCookieTemplate,
		csrfCookieTemplate:    cfg.CSRFCookieTemplate,
		pendingCookieTemplate: cfg.PendingCookieTemplate,
		consentCookieTemplate: cfg.ConsentCookieTemplate,
		csrfSecret:            cfg.CSRFSecretParsed,
	}, nil
}

// Initiate stores a new pending login and returns the authorization URL to redirect to.
func (m *Manager) Initiate(ctx context.Context, fingerprint string) (LoginRequest, error) {
	challenge := m.pkce.PKCE()

	login := PendingLogin{
		ID:           m.pkce.State(),
		Fingerprint:  fingerprint,
		PKCEVerifier: challenge.Verifier,
		Expiry:       time.Now().Add(m.loginDuration),
	}

	if err := m.sessions.StorePendingLogin(ctx, login); err != nil {
		return LoginRequest{}, fmt.Errorf("storing pending login: %w", err)
	}

	u, err := m.authorizer.AuthURL(challenge, login.ID)
	if err != nil {
		return LoginRequest{}, fmt.Errorf("generating auth url: %w", err)
	}

	return LoginRequest{
		PendingID: login.ID,
		AuthURL:   u,
	}, nil
}

// Finalise redeems the authorization code of the pending login and creates a session.
// The state returned by the provider must match the pending login held by the browser.
func (m *Manager) Finalise(ctx context.Context, pendingID, state, code, fingerprint string) (_ LoginResult, err error) {
	if code == "" {
		return LoginResult{}, serviceerr.New(serviceerr.CodeInvalidRequest, "missing authorization code")
	}

	if pendingID == "" || state != pendingID {
		return LoginResult{}, serviceerr.ErrStateMismatch
	}

	metadata, err := otlpaudit.NewEventMetadata(auditInitiator, auditTenant, uuid.NewString())
	if err != nil {
		return LoginResult{}, fmt.Errorf("creating audit metadata: %w", err)
	}

	if err := m.exchanged.Add(code, struct{}{}, cache.DefaultExpiration); err != nil {
		slogctx.Warn(ctx, "Authorization code is already being exchanged")
		return LoginResult{}, serviceerr.ErrCodeAlreadyUsed
	}

	defer func() {
		if err != nil {
			// Release the guard so the user can retry the login.
			m.exchanged.Delete(code)
		}
	}()

	login, err := m.sessions.LoadPendingLogin(ctx, pendingID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			m.sendUserLoginFailureAudit(ctx, metadata, pendingID, "pending login not found")
			return LoginResult{}, serviceerr.ErrStateExpired
		}

		return LoginResult{}, fmt.Errorf("loading pending login from the storage: %w", err)
	}

	if time.Now().After(login.Expiry) {
		m.sendUserLoginFailureAudit(ctx, metadata, pendingID, "pending login expired")
		return LoginResult{}, serviceerr.ErrStateExpired
	}

	if login.Fingerprint != fingerprint {
		m.sendUserLoginFailureAudit(ctx, metadata, pendingID, "fingerprint mismatch")
		return LoginResult{}, serviceerr.ErrFingerprintMismatch
	}

	token, err := m.authorizer.ExchangeCode(ctx, code, login.PKCEVerifier)
	if err != nil {
		m.sendUserLoginFailureAudit(ctx, metadata, pendingID, "failed to exchange code for a token")
		return LoginResult{}, exchangeError(err)
	}

	slogctx.Info(ctx, "Exchanged the auth code for a token")

	sessionID := m.pkce.SessionID()
	csrfToken := csrf.NewToken(sessionID, m.csrfSecret)

	session := Session{
		ID:          sessionID,
		Fingerprint: fingerprint,
		CSRFToken:   csrfToken,
		AccessToken: token.AccessToken,
		Expiry:      time.Now().Add(m.sessionDuration),
	}

	if err := m.sessions.StoreSession(ctx, session); err != nil {
		m.sendUserLoginFailureAudit(ctx, metadata, pendingID, "failed to store session")
		return LoginResult{}, fmt.Errorf("storing session: %w", err)
	}

	// The verifier is spent at this point. A leftover pending login expires with its TTL.
	if err := m.sessions.DeletePendingLogin(ctx, pendingID); err != nil {
		slogctx.Warn(ctx, "Failed to delete the pending login", "error", err)
	}

	m.sendUserLoginSuccessAudit(ctx, metadata, pendingID)

	return LoginResult{
		SessionID: sessionID,
		CSRFToken: csrfToken,
	}, nil
}

// LoadSession returns the session or serviceerr.ErrNotFound when the browser is logged out.
// A session presented by another browser than the one that logged in is treated as logged out.
func (m *Manager) LoadSession(ctx context.Context, sessionID, fingerprint string) (Session, error) {
	if sessionID == "" {
		return Session{}, serviceerr.ErrNotFound
	}

	s, err := m.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return Session{}, serviceerr.ErrNotFound
		}

		return Session{}, fmt.Errorf("loading session: %w", err)
	}

	if time.Now().After(s.Expiry) {
		return Session{}, serviceerr.ErrNotFound
	}

	if s.Fingerprint != fingerprint {
		slogctx.Warn(ctx, "Is this an attack? Session fingerprints do not match",
			"session_fingerprint", s.Fingerprint, "request_fingerprint", fingerprint)
		return Session{}, serviceerr.ErrNotFound
	}

	return s, nil
}

// StoreArtists caches the last fetched top artists on the session.
func (m *Manager) StoreArtists(ctx context.Context, s Session, artists []spotify.Artist) (Session, error) {
	s.Artists = artists
	if err := m.sessions.StoreSession(ctx, s); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}

	return s, nil
}

// Logout removes the session and the pending login, if any.
func (m *Manager) Logout(ctx context.Context, sessionID, pendingID string) error {
	var errs []error
	if sessionID != "" {
		if err := m.sessions.DeleteSession(ctx, sessionID); err != nil {
			errs = append(errs, fmt.Errorf("deleting session: %w", err))
		}
	}

	if pendingID != "" {
		if err := m.sessions.DeletePendingLogin(ctx, pendingID); err != nil {
			errs = append(errs, fmt.Errorf("deleting pending login: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) ValidateCSRFToken(token, sessionID string) bool {
	return csrf.Validate(token, sessionID, m.csrfSecret)
}

func (m *Manager) SessionCookieName() string { return m.sessionCookieTemplate.Name }
func (m *Manager) PendingCookieName() string { return m.pendingCookieTemplate.Name }

func (m *Manager) MakeSessionCookie(ctx context.Context, value string) (*http.Cookie, error) {
	sessionCookie := m.sessionCookieTemplate.ToCookie(value)

	err := sessionCookie.Valid()
	if err != nil {
		return nil, fmt.Errorf("invalid session cookie: %w", err)
	}

	if !strings.HasPrefix(sessionCookie.Name, "__Host-Http-") {
		slogctx.Warn(ctx, "Session cookie name does not start with __Host-Http-; this is not recommended in production environments")
	}
	if !sessionCookie.Secure {
		slogctx.Warn(ctx, "Session cookie is not marked as Secure; this is not recommended in production environments")
	}
	if !sessionCookie.HttpOnly {
		slogctx.Warn(ctx, "Session cookie is not marked as HttpOnly; this is not recommended in production environments")
	}

	return sessionCookie, nil
}

func (m *Manager) MakeCSRFCookie(ctx context.Context, value string) (*http.Cookie, error) {
	csrfCookie := m.csrfCookieTemplate.ToCookie(value)

	err := csrfCookie.Valid()
	if err != nil {
		return nil, fmt.Errorf("invalid CSRF cookie: %w", err)
	}

	if !csrfCookie.Secure {
		slogctx.Warn(ctx, "CSRF cookie is not marked as Secure; this is not recommended in production environments")
	}
	if csrfCookie.HttpOnly {
		slogctx.Warn(ctx, "CSRF cookie is marked as HttpOnly; this is not recommended as the CSRF token needs to be accessible from JavaScript")
	}
	if csrfCookie.SameSite != http.SameSiteStrictMode {
		slogctx.Warn(ctx, "CSRF cookie is not marked as SameSite=Strict; this is not recommended in production environments")
	}

	return csrfCookie, nil
}

// MakePendingCookie returns the cookie naming the pending login during the redirect.
// It must survive the top level navigation back from Spotify, so SameSite=Strict does not work.
func (m *Manager) MakePendingCookie(ctx context.Context, value string) (*http.Cookie, error) {
	pendingCookie := m.pendingCookieTemplate.ToCookie(value)

	err := pendingCookie.Valid()
	if err != nil {
		return nil, fmt.Errorf("invalid pending login cookie: %w", err)
	}

	if pendingCookie.SameSite == http.SameSiteStrictMode {
		slogctx.Warn(ctx, "Pending login cookie is marked as SameSite=Strict; the browser will not send it on the callback")
	}
	if !pendingCookie.HttpOnly {
		slogctx.Warn(ctx, "Pending login cookie is not marked as HttpOnly; this is not recommended in production environments")
	}

	return pendingCookie, nil
}

func (m *Manager) MakeConsentCookie(_ context.Context) (*http.Cookie, error) {
	consentCookie := m.consentCookieTemplate.ToCookie("true")

	if err := consentCookie.Valid(); err != nil {
		return nil, fmt.Errorf("invalid consent cookie: %w", err)
	}

	return consentCookie, nil
}

// ExpiredLoginCookies returns the cookies that reset the session, CSRF and pending login cookies.
func (m *Manager) ExpiredLoginCookies() []*http.Cookie {
	return []*http.Cookie{
		m.sessionCookieTemplate.ToExpiredCookie(),
		m.csrfCookieTemplate.ToExpiredCookie(),
		m.pendingCookieTemplate.ToExpiredCookie(),
	}
}

// ExpiredPendingCookie returns the cookie that resets the pending login cookie.
func (m *Manager) ExpiredPendingCookie() *http.Cookie {
	return m.pendingCookieTemplate.ToExpiredCookie()
}

// exchangeError maps a token endpoint failure to the error rendered to the browser.
func exchangeError(err error) error {
	var exchangeErr *spotify.AuthExchangeError
	if errors.As(err, &exchangeErr) {
		if exchangeErr.StatusCode >= http.StatusInternalServerError {
			return errors.Join(serviceerr.New(serviceerr.CodeUpstreamFailure, exchangeErr.Description), err)
		}

		return errors.Join(serviceerr.New(serviceerr.CodeInvalidGrant, exchangeErr.Description), err)
	}

	return errors.Join(serviceerr.New(serviceerr.CodeUpstreamFailure, "token endpoint is unreachable"), err)
}

// sendUserLoginFailureAudit creates the user-login-failure audit event and sends it.
// The function logs any errors encountered while creating or sending the event but
// does not propagate them to the caller.
func (m *Manager) sendUserLoginFailureAudit(ctx context.Context, metadata otlpaudit.EventMetadata, objectID, reason string) {
	if m.audit == nil {
		slogctx.Warn(ctx, "audit logger is nil; skipping user login failure event")
		return
	}

	event, err := otlpaudit.NewUserLoginFailureEvent(metadata, objectID, otlpaudit.LOGINMETHOD_OPENIDCONNECT, otlpaudit.FailReason(reason), objectID)
	if err != nil {
		slogctx.Error(ctx, "creating audit log", "error", err)
		return
	}

	if err := m.audit.SendEvent(ctx, event); err != nil {
		slogctx.Error(ctx, "Failed to send audit log for user login failure", "error", err)
	}
	slogctx.Debug(ctx, "sent audit log for user login failure")
}

func (m *Manager) sendUserLoginSuccessAudit(ctx context.Context, metadata otlpaudit.EventMetadata, objectID string) {
	if m.audit == nil {
		slogctx.Warn(ctx, "audit logger is nil; skipping user login success event")
		return
	}

	event, err := otlpaudit.NewUserLoginSuccessEvent(metadata, objectID, otlpaudit.LOGINMETHOD_OPENIDCONNECT, otlpaudit.MFATYPE_NONE, otlpaudit.USERTYPE_BUSINESS, objectID)
	if err != nil {
		slogctx.Error(ctx, "creating audit log", "error", err)
		return
	}

	if err := m.audit.SendEvent(ctx, event); err != nil {
		slogctx.Error(ctx, "Failed to send audit log for user login success", "error", err)
	}
	slogctx.Debug(ctx, "sent audit log for user login success")
}
