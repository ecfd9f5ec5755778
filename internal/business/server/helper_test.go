package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/csrf"
	"github.com/openkcm/common-sdk/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventbot/dashboard/internal/config"
	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/session"
	"github.com/eventbot/dashboard/internal/spotify"
	"github.com/eventbot/dashboard/internal/telegram"

	dashboardmock "github.com/eventbot/dashboard/internal/dashboard/mock"
	sessionmock "github.com/eventbot/dashboard/internal/session/mock"
)

const (
	testCSRFSecret = "12345678901234567890123456789012"
	testSessionID  = "session-id"
	testToken      = "access-token"
	testCode       = "auth-code"
	testUserAgent  = "dashboard-test-agent"
	testOrigin     = "https://dashboard.example.com"
)

func newTestConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name: "test-app",
			},
		},
		HTTP: config.HTTPServer{
			Address:         "localhost:0",
			ShutdownTimeout: time.Second,
			AllowedOrigins:  []string{testOrigin},
			AuthRateLimit:   100,
		},
		Session: config.SessionManager{
			SessionDuration:   time.Hour,
			LoginDuration:     10 * time.Minute,
			CodeGuardDuration: 10 * time.Minute,
			PostLoginRedirect: "/",
			CSRFSecretParsed:  []byte(testCSRFSecret),
			SessionCookieTemplate: config.CookieTemplate{
				Name: "__Host-Http-SESSION", Path: "/", Secure: true, HTTPOnly: true, SameSite: config.CookieSameSiteStrict,
			},
			CSRFCookieTemplate: config.CookieTemplate{
				Name: "__Host-CSRF", Path: "/", Secure: true, SameSite: config.CookieSameSiteStrict,
			},
			PendingCookieTemplate: config.CookieTemplate{
				Name: "__Host-Http-LOGIN", MaxAge: 600, Path: "/", Secure: true, HTTPOnly: true, SameSite: config.CookieSameSiteLax,
			},
			ConsentCookieTemplate: config.CookieTemplate{
				Name: "cookie_consent", MaxAge: 31536000, Path: "/", SameSite: config.CookieSameSiteLax,
			},
		},
		Map: config.Map{
			AreaName:  "Santiago de Querétaro",
			Longitude: -100.3899,
			Latitude:  20.5888,
			Zoom:      12,
			Style:     "mapbox://styles/mapbox/dark-v11",
		},
	}
}

// upstream fakes the Spotify accounts service, the Spotify Web API and the Telegram Bot API.
type upstream struct {
	server *httptest.Server

	tokenStatus atomic.Int32
	apiStatus   atomic.Int32
	tokenCalls  atomic.Int32
	apiCalls    atomic.Int32
	chatIDs     atomic.Pointer[[]string]
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()

	u := &upstream{}
	u.chatIDs.Store(&[]string{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		u.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, testCode, r.PostForm.Get("code"))
		assert.Len(t, r.PostForm.Get("code_verifier"), 64)

		w.Header().Set("Content-Type", "application/json")
		if status := int(u.tokenStatus.Load()); status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"`+testToken+`","token_type":"Bearer","expires_in":3600,"scope":"user-top-read"}`)
	})
	mux.HandleFunc("GET /v1/me/top/artists", func(w http.ResponseWriter, r *http.Request) {
		u.apiCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if status := int(u.apiStatus.Load()); status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"items":[{"id":"a1","name":"Artist One","images":[]},{"id":"a2","name":"Artist Two","images":[]}]}`)
	})
	mux.HandleFunc("POST /botbot-token/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ChatID string `json:"chat_id"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		ids := append(*u.chatIDs.Load(), body.ChatID)
		u.chatIDs.Store(&ids)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	})

	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)

	return u
}

type testEnv struct {
	cfg      *config.Config
	handler  http.Handler
	upstream *upstream
	sessions *sessionmock.Repository
	repo     *dashboardmock.Repository
	manager  *session.Manager
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	u := newUpstream(t)
	spotifyClient := spotify.NewClient(&config.Spotify{
		RedirectURI: "http://localhost:8080/auth/callback",
		AuthURL:     u.server.URL + "/authorize",
		TokenURL:    u.server.URL + "/api/token",
		APIURL:      u.server.URL + "/v1",
	}, "client-id", u.server.Client())

	sessions := sessionmock.NewInMemRepository()
	manager, err := session.NewManager(&cfg.Session, spotifyClient, sessions, nil)
	require.NoError(t, err)

	repo := dashboardmock.NewInMemRepository()
	dash := dashboard.NewService(
		spotifyClient,
		telegram.NewClient(u.server.URL, "bot-token", u.server.Client()),
		manager,
		repo,
		dashboard.MapArea{
			AreaName: cfg.Map.AreaName,
			Center:   [2]float64{cfg.Map.Longitude, cfg.Map.Latitude},
			Zoom:     cfg.Map.Zoom,
			Style:    cfg.Map.Style,
		},
		5,
	)

	m, err := initMeters(t.Context(), cfg)
	require.NoError(t, err)

	return &testEnv{
		cfg:      cfg,
		handler:  newRouter(cfg, m, newAPIServer(manager, dash, cfg.Session.PostLoginRedirect)),
		upstream: u,
		sessions: sessions,
		repo:     repo,
		manager:  manager,
	}
}

// connect stores a session directly and returns its CSRF token.
func (e *testEnv) connect(t *testing.T) string {
	t.Helper()

	token := csrf.NewToken(testSessionID, []byte(testCSRFSecret))
	require.NoError(t, e.sessions.StoreSession(t.Context(), session.Session{
		ID:          testSessionID,
		Fingerprint: testFingerprint(t),
		AccessToken: testToken,
		CSRFToken:   token,
		Expiry:      time.Now().Add(time.Hour),
	}))

	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", testUserAgent)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	return rec
}

// testFingerprint is the fingerprint of requests sent with testUserAgent.
func testFingerprint(t *testing.T) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", testUserAgent)

	fp, err := fingerprint.NewBuilder(fingerprint.WithHeaderKeys(fingerprintHeaderKeys)).FromHTTPRequest(req)
	require.NoError(t, err)

	return fp
}

func (e *testEnv) withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: e.cfg.Session.SessionCookieTemplate.Name, Value: testSessionID})
	return req
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())

	return v
}

func telegramBody(chatID string) io.Reader {
	return strings.NewReader(`{"chat_id":"` + chatID + `"}`)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}
