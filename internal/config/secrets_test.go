package config

import (
	"strings"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSRFSecret(t *testing.T) {
	tests := []struct {
		name      string
		secret    commoncfg.SourceRef
		wantErr   error
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:      "valid secret",
			secret:    commoncfg.SourceRef{Source: "embedded", Value: strings.Repeat("s", 32)},
			assertErr: assert.NoError,
		},
		{
			name:      "secret too short",
			secret:    commoncfg.SourceRef{Source: "embedded", Value: "short"},
			wantErr:   ErrCSRFSecretTooShort,
			assertErr: assert.Error,
		},
		{
			name:      "invalid source",
			secret:    commoncfg.SourceRef{Source: "invalid-source", Value: strings.Repeat("s", 32)},
			assertErr: assert.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := SessionManager{CSRFSecret: tt.secret}

			err := sm.ParseCSRFSecret()
			if !tt.assertErr(t, err) {
				return
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}

			if err == nil {
				assert.Equal(t, []byte(tt.secret.Value), sm.CSRFSecretParsed)
			} else {
				assert.Nil(t, sm.CSRFSecretParsed)
			}
		})
	}
}
