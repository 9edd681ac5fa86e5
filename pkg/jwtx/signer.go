package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HS256 secret size in bytes. Anything
// shorter is brute-forceable offline.
const MinSecretLength = 32

// Signer turns claims into a signed compact JWT.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Signer signs with a server-held symmetric secret.
type HS256Signer struct {
	secret []byte
}

// NewSignerHS256 validates the secret and returns an HS256 signer.
func NewSignerHS256(secret []byte) (*HS256Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinSecretLength)
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// EdDSASigner signs with an Ed25519 private key. Used by deployments that
// want resource services to verify tokens without sharing a secret.
type EdDSASigner struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewSignerEdDSA loads an Ed25519 private key from PKCS8 PEM bytes.
func NewSignerEdDSA(pemKey []byte) (*EdDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &EdDSASigner{key: key, pub: key.Public().(ed25519.PublicKey)}, nil
}

func (s *EdDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }

func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return t.SignedString(s.key)
}

// Public returns the verification key for this signer.
func (s *EdDSASigner) Public() ed25519.PublicKey { return s.pub }
