// Package ledger holds the Ledger adapters: a hash-chained in-memory ledger,
// a Kafka-backed ledger and a circuit breaker wrapping either.
package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"chainaudit/internal/audittrail/models"
)

// Key prefixes mirror the identity key nomenclature stored in key_pairs.
const (
	privateKeyPrefix = "idsec_"
	publicKeyPrefix  = "idpub_"
)

var ErrInvalidKey = errors.New("invalid signing key")

// GenerateKeyPair returns a fresh ed25519 key pair in stored form.
func GenerateKeyPair() (models.KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return models.KeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return models.KeyPair{
		PrivateKey: privateKeyPrefix + hex.EncodeToString(priv.Seed()),
		PublicKey:  publicKeyPrefix + hex.EncodeToString(pub),
	}, nil
}

// ParsePrivateKey decodes a stored private key.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := decodeKey(s, privateKeyPrefix, ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

// ParsePublicKey decodes a stored public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := decodeKey(s, publicKeyPrefix, ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

// PublicKeyString renders a public key in stored form.
func PublicKeyString(pub ed25519.PublicKey) string {
	return publicKeyPrefix + hex.EncodeToString(pub)
}

func decodeKey(s, prefix string, size int) ([]byte, error) {
	if len(s) <= len(prefix) || s[:len(prefix)] != prefix {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrInvalidKey, prefix)
	}
	raw, err := hex.DecodeString(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, size, len(raw))
	}
	return raw, nil
}

// Digest is the hash linking an entry to its predecessor on the same chain.
func Digest(prevHash, chainID, parentRef, signerChainID string, payload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|", prevHash, chainID, parentRef, signerChainID)
	h.Write(payload)
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

// Sign signs the digest with the stored private key and returns the signature
// and the matching public key.
func Sign(privateKey, digest string) ([]byte, ed25519.PublicKey, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}
	return ed25519.Sign(priv, []byte(digest)), priv.Public().(ed25519.PublicKey), nil
}
