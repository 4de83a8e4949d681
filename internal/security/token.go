package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const tokenBytes = 32

// NewOpaqueToken returns a cryptographically random identifier. Used for
// both session ids and password reset tokens; the raw value goes to the
// client, only a hash of it is ever stored.
func NewOpaqueToken() (string, error) {
	b := make([]byte, tokenBytes)

	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// HashSessionID is a deterministic keyed hash of a raw session id.
// Session rows are keyed by this, so a leaked database dump cannot be
// replayed as cookies without the server secret.
func HashSessionID(secret []byte, raw string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// HashResetToken is an unkeyed sha256 of a reset token. The raw token
// already has 256 bits of entropy, and the emailed link must stay
// verifiable without any server-side key material.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
