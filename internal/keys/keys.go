// Package keys manages the Ed25519 key pair used to sign and verify
// certificates. Keys are stored as PEM files whose body is the base64 of the
// raw 32-byte key material (the seed for private keys), not PKCS#8.
package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/filex"
)

const (
	PrivateKeyFile = "private_key.pem"
	PublicKeyFile  = "public_key.pem"

	privateKeyType = "PRIVATE KEY"
	publicKeyType  = "PUBLIC KEY"
)

// Generate creates a new key pair in dir and returns the written file paths.
// The private key file is readable by the owner only.
func Generate(dir string) (privPath string, pubPath string, err error) {
	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", "", err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key pair: %w", err)
	}

	privPath = filepath.Join(dir, PrivateKeyFile)
	pubPath = filepath.Join(dir, PublicKeyFile)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: privateKeyType, Bytes: priv.Seed()})
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("write private key: %w", err)
	}

	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyType, Bytes: pub})
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return "", "", fmt.Errorf("write public key: %w", err)
	}

	return privPath, pubPath, nil
}

// LoadSigningKey reads a private key PEM file written by Generate.
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	seed, err := readKeyFile(path, privateKeyType, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// LoadVerifyingKey reads a public key PEM file written by Generate.
func LoadVerifyingKey(path string) (ed25519.PublicKey, error) {
	raw, err := readKeyFile(path, publicKeyType, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

// Fingerprint returns a stable identifier for a public key, the hex SHA-256
// of the raw key bytes with a "sha256:" prefix.
func Fingerprint(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func readKeyFile(path, blockType string, wantLen int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s: no PEM block found", common.ErrInvalidKey, path)
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("%w: %s: unexpected PEM type %q", common.ErrInvalidKey, path, block.Type)
	}
	if len(block.Bytes) != wantLen {
		return nil, fmt.Errorf("%w: %s: key is %d bytes, want %d", common.ErrInvalidKey, path, len(block.Bytes), wantLen)
	}
	return block.Bytes, nil
}
