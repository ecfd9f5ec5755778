package pkce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

func TestSource_PKCE(t *testing.T) {
	p := Source{}
	pkce := p.PKCE()
	assert.Len(t, pkce.Verifier, VerifierLength, "Unexpected verifier length")
	assert.NotEmpty(t, pkce.Challenge, "Empty pkce challenge")
	assert.Equal(t, MethodS256, pkce.Method, "Unexpected PKCE method")
	assert.Equal(t, Challenge(pkce.Verifier), pkce.Challenge, "Challenge does not match verifier")

	for _, r := range pkce.Verifier {
		assert.True(t, strings.ContainsRune(verifierAlphabet, r), "Verifier contains %q", r)
	}
}

func TestSource_PKCE_Unique(t *testing.T) {
	p := Source{}
	assert.NotEqual(t, p.PKCE().Verifier, p.PKCE().Verifier)
}

func TestChallenge(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		want     string
	}{
		{
			name:     "abc123",
			verifier: "abc123",
			want:     "bKE9UspwyIPg8LsQHkJaiehiTeUdstI5JZOvaoQRgJA",
		},
		{
			name:     "RFC 7636 appendix B",
			verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
			want:     "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Challenge(tt.verifier)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Challenge(tt.verifier), "Challenge is not deterministic")
			assert.NotContains(t, got, "=")
			assert.NotContains(t, got, "+")
			assert.NotContains(t, got, "/")
		})
	}
}

func TestChallenge_MatchesOIDCLibrary(t *testing.T) {
	p := Source{}
	for range 16 {
		verifier := p.PKCE().Verifier
		assert.Equal(t, oidc.NewSHACodeChallenge(verifier), Challenge(verifier))
	}
}

func TestSource_State(t *testing.T) {
	p := Source{}
	state := p.State()
	assert.NotEmpty(t, state, "Empty state generated")
	assert.NotEqual(t, state, p.State())
}

func TestSource_SessionID(t *testing.T) {
	p := Source{}
	assert.Len(t, p.SessionID(), 32)
}
