package config

import (
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// MinCSRFSecretLength is the minimum size in bytes of the secret signing CSRF tokens.
const MinCSRFSecretLength = 32

var ErrCSRFSecretTooShort = fmt.Errorf("CSRF secret must be at least %d bytes", MinCSRFSecretLength)

// ParseCSRFSecret loads the CSRF secret from its source reference into CSRFSecretParsed.
func (sm *SessionManager) ParseCSRFSecret() error {
	secret, err := commoncfg.LoadValueFromSourceRef(sm.CSRFSecret)
	if err != nil {
		return fmt.Errorf("loading csrf secret from source ref: %w", err)
	}

	if len(secret) < MinCSRFSecretLength {
		return ErrCSRFSecretTooShort
	}

	sm.CSRFSecretParsed = secret

	return nil
}
