package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/openkcm/common-sdk/pkg/fingerprint"
	"github.com/samber/oops"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/config"
	"github.com/eventbot/dashboard/internal/dashboard"
	"github.com/eventbot/dashboard/internal/serviceerr"
	"github.com/eventbot/dashboard/internal/session"
)

const (
	defaultAuthRateLimit = 30
	corsMaxAge           = 300
)

// fingerprintHeaderKeys are hashed into the fingerprint binding a login and its session to one browser.
// Accept differs between page navigations and fetch calls, so only the user agent is used.
var fingerprintHeaderKeys = []string{"user-agent"}

func fingerprintMiddleware(builder *fingerprint.Builder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fp, err := builder.FromHTTPRequest(r)
			if err != nil {
				slogctx.Error(r.Context(), "Failed to build fingerprint", "error", err)
				writeError(w, serviceerr.ErrUnknown)
				return
			}

			next.ServeHTTP(w, r.WithContext(fingerprint.WithFingerprint(r.Context(), fp)))
		})
	}
}

func newRouter(cfg *config.Config, m *meters, api *apiServer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", csrfHeader},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))
	r.Use(fingerprintMiddleware(fingerprint.NewBuilder(fingerprint.WithHeaderKeys(fingerprintHeaderKeys))))

	op := func(operationID string, h http.HandlerFunc) http.Handler {
		return m.traceMiddleware(cfg, operationID)(h)
	}

	authRateLimit := cfg.HTTP.AuthRateLimit
	if authRateLimit <= 0 {
		authRateLimit = defaultAuthRateLimit
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(authRateLimit, time.Minute))

		r.Method(http.MethodGet, "/login", op("Login", api.Login))
		r.Method(http.MethodGet, "/callback", op("Callback", api.Callback))
		r.Method(http.MethodPost, "/logout", op("Logout", api.Logout))
	})

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/dashboard", op("Dashboard", api.Dashboard))
		r.Method(http.MethodPost, "/telegram/test", op("TelegramTest", api.TelegramTest))
		r.Method(http.MethodGet, "/map", op("Map", api.Map))
		r.Method(http.MethodPost, "/consent", op("Consent", api.Consent))
	})

	return r
}

// createHTTPServer creates the API http server using the given config
func createHTTPServer(ctx context.Context, cfg *config.Config, sManager *session.Manager, dash *dashboard.Service) (*http.Server, error) {
	m, err := initMeters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	api := newAPIServer(sManager, dash, cfg.Session.PostLoginRedirect)

	return &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newRouter(cfg, m, api),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// StartHTTPServer starts the HTTP server using the given config and blocks until ctx is done.
func StartHTTPServer(ctx context.Context, cfg *config.Config, sManager *session.Manager, dash *dashboard.Service) error {
	server, err := createHTTPServer(ctx, cfg, sManager, dash)
	if err != nil {
		return err
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address is provided in the format of network://address.
	// Otherwise use tcp network by default.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
