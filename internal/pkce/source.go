package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

const (
	MethodS256 = "S256"

	// VerifierLength is the length of a generated code verifier.
	VerifierLength = 64

	verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idAlphabet       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"
)

// PKCE is a verifier and its derived challenge for one authorization round trip.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

type Source struct{}

func (p Source) randString(alphabet string, n int) string {
	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		ret[i] = alphabet[num.Int64()]
	}

	return string(ret)
}

// PKCE generates a new verifier and its S256 challenge.
func (p Source) PKCE() PKCE {
	verifier := p.randString(verifierAlphabet, VerifierLength)

	return PKCE{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
		Method:    MethodS256,
	}
}

// State returns the identifier of a pending login, sent as the OAuth state parameter.
func (p Source) State() string {
	return p.randString(idAlphabet, 43)
}

func (p Source) SessionID() string {
	return p.randString(idAlphabet, 32) // Entropy E = L * log2(63) = 32 * log2(63) = 191.3 bits
}

// Challenge returns the base64url encoded SHA-256 digest of the verifier without padding.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
