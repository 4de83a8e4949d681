package security_test

import (
	"encoding/hex"
	"testing"

	"github.com/geocoder89/bookstore/internal/security"
)

func TestNewOpaqueToken(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		tok, err := security.NewOpaqueToken()

		if err != nil {
			t.Fatalf("NewOpaqueToken: %v", err)
		}

		if len(tok) != 64 {
			t.Fatalf("token length = %d, want 64 hex chars", len(tok))
		}

		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("token is not hex: %q", tok)
		}

		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}

		seen[tok] = struct{}{}
	}
}

func TestHashSessionID(t *testing.T) {
	secret := []byte("server-secret")

	a := security.HashSessionID(secret, "raw-session")
	b := security.HashSessionID(secret, "raw-session")

	if a != b {
		t.Fatalf("same input must hash the same: %q vs %q", a, b)
	}

	if a == "raw-session" {
		t.Fatalf("hash must not be the raw id")
	}

	if c := security.HashSessionID([]byte("other-secret"), "raw-session"); c == a {
		t.Fatalf("hash must depend on the secret")
	}

	if d := security.HashSessionID(secret, "other-session"); d == a {
		t.Fatalf("hash must depend on the raw id")
	}
}

func TestHashResetToken(t *testing.T) {
	a := security.HashResetToken("some-token")
	b := security.HashResetToken("some-token")

	if a != b {
		t.Fatalf("reset token hash must be deterministic")
	}

	if a == security.HashResetToken("other-token") {
		t.Fatalf("distinct tokens must hash apart")
	}

	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
}
