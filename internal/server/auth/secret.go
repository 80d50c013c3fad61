package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// HashSecret derives a 32-byte argon2id hash of a station shared secret.
// The same salt must be supplied when verifying.
func HashSecret(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// VerifySecret recomputes the hash for the candidate secret and compares it
// against the stored hash in constant time.
func VerifySecret(storedHash, secret, salt []byte) bool {
	candidate := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare(storedHash, candidate) == 1
}
