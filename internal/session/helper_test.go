package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	otlpaudit "github.com/openkcm/common-sdk/pkg/otlp/audit"

	"github.com/eventbot/dashboard/internal/pkce"
	"github.com/eventbot/dashboard/internal/spotify"
)

const testCSRFSecret = "12345678901234567890123456789012"

// fakeAuthorizer records exchanges and answers with a fixed token or error.
type fakeAuthorizer struct {
	token spotify.Token
	err   error
	// block, when set, holds every exchange until it is closed.
	block chan struct{}

	calls     atomic.Int32
	mu        sync.Mutex
	verifiers []string
}

func (f *fakeAuthorizer) AuthURL(challenge pkce.PKCE, state string) (string, error) {
	return "https://accounts.example.com/authorize?code_challenge=" + challenge.Challenge + "&state=" + state, nil
}

func (f *fakeAuthorizer) ExchangeCode(_ context.Context, _, verifier string) (spotify.Token, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.verifiers = append(f.verifiers, verifier)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}

	return f.token, f.err
}

func StartAuditServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"success": true}`))
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func newAuditLogger(t *testing.T) *otlpaudit.AuditLogger {
	t.Helper()

	server := StartAuditServer(t)
	t.Cleanup(server.Close)

	auditLogger, err := otlpaudit.NewLogger(&commoncfg.Audit{Endpoint: server.URL})
	require.NoError(t, err)

	return auditLogger
}
