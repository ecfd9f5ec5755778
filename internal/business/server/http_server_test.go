package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHTTPServer_ContextCancellation(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{name: "tcp listener", address: "localhost:0"},
		{name: "unix socket listener", address: "unix://" + filepath.Join(t.TempDir(), "dashboard.sock")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			cfg := newTestConfig()
			cfg.HTTP.Address = tt.address

			errChan := make(chan error, 1)
			go func() {
				errChan <- StartHTTPServer(ctx, cfg, nil, nil)
			}()

			time.Sleep(100 * time.Millisecond)
			cancel()

			select {
			case err := <-errChan:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Server did not shut down within timeout")
			}
		})
	}
}

func TestStartHTTPServer_ListenerError(t *testing.T) {
	cfg := newTestConfig()
	cfg.HTTP.Address = "invalid-network://somewhere"

	err := StartHTTPServer(t.Context(), cfg, nil, nil)
	require.Error(t, err)
}

func TestCreateHTTPServer(t *testing.T) {
	t.Run("creates HTTP server with default config", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.HTTP.Address = "localhost:8080"

		server, err := createHTTPServer(t.Context(), cfg, nil, nil)

		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, "localhost:8080", server.Addr)
		assert.NotNil(t, server.Handler)
	})

	t.Run("creates HTTP server with unix socket", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.HTTP.Address = "unix:///tmp/test.sock"

		server, err := createHTTPServer(t.Context(), cfg, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, "unix:///tmp/test.sock", server.Addr)
	})

	t.Run("unknown routes are not found", func(t *testing.T) {
		env := newTestEnv(t)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "/does-not-exist", nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, env.do(req).Code)
	})
}

func TestFingerprintMiddleware(t *testing.T) {
	var got []string
	handler := fingerprintMiddleware(fingerprint.NewBuilder(fingerprint.WithHeaderKeys(fingerprintHeaderKeys)))(
		http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			fp, err := fingerprint.ExtractFingerprint(r.Context())
			assert.NoError(t, err)
			got = append(got, fp)
		}),
	)

	requests := []struct {
		userAgent string
		accept    string
	}{
		{userAgent: "agent-one", accept: "text/html"},
		{userAgent: "agent-one", accept: "*/*"},
		{userAgent: "agent-two", accept: "*/*"},
	}

	for _, r := range requests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", r.accept)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	require.Len(t, got, 3)
	assert.Len(t, got[0], 64)
	assert.Equal(t, got[0], got[1], "navigation and fetch calls of one browser share a fingerprint")
	assert.NotEqual(t, got[1], got[2])
}
