package auth

import (
	"bytes"
	"testing"
)

func TestHashSecret_DeterministicPerSalt(t *testing.T) {
	t.Parallel()

	secret := []byte("station-secret")
	salt := []byte("0123456789abcdef")

	h1 := HashSecret(secret, salt)
	h2 := HashSecret(secret, salt)
	if !bytes.Equal(h1, h2) {
		t.Fatalf("same secret and salt must hash identically")
	}
	if len(h1) != 32 {
		t.Fatalf("hash length: got %d want 32", len(h1))
	}

	other := HashSecret(secret, []byte("fedcba9876543210"))
	if bytes.Equal(h1, other) {
		t.Fatalf("different salts must produce different hashes")
	}
}

func TestVerifySecret(t *testing.T) {
	t.Parallel()

	secret := []byte("station-secret")
	salt := []byte("0123456789abcdef")
	stored := HashSecret(secret, salt)

	if !VerifySecret(stored, secret, salt) {
		t.Fatalf("correct secret rejected")
	}
	if VerifySecret(stored, []byte("wrong"), salt) {
		t.Fatalf("wrong secret accepted")
	}
	if VerifySecret(stored, secret, []byte("fedcba9876543210")) {
		t.Fatalf("wrong salt accepted")
	}
}
