// Package pkce generates the one-shot secret material for the
// Authorization-Code-with-PKCE flow: verifier/challenge pairs (RFC 7636,
// S256 only) and opaque anti-CSRF state tokens.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// tokenLength is the number of random bytes behind a verifier or state
// token. 32 bytes gives 256 bits of entropy, well past the 128-bit floor
// required for unguessability.
const tokenLength = 32

// Challenge is a PKCE verifier/challenge pair. The verifier is single-use
// secret material: it must never be logged and is only ever transmitted to
// the token endpoint.
type Challenge struct {
	Verifier  string
	Challenge string
}

// CreateChallenge returns a fresh verifier and its S256 challenge, both
// web-safe base64 with padding stripped.
func CreateChallenge() Challenge {
	verifier := base64.RawURLEncoding.EncodeToString(randomBytes(tokenLength))
	hash := sha256.Sum256([]byte(verifier))
	return Challenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
	}
}

// CreateState returns an opaque random token for redirect correlation,
// comparably unguessable to a verifier.
func CreateState() string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(tokenLength))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// A broken secure RNG makes every credential this process could
		// mint guessable. Refusing to run is the only safe option.
		panic("pkce: secure random source unavailable: " + err.Error())
	}
	return b
}
