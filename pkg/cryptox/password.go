// Package cryptox holds the credential primitives: argon2id password
// hashing and opaque token generation/fingerprinting.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory-hard on purpose: password verification is a
// deliberate suspension point (see the concurrency model), not a hot path.
const (
	saltLength  = 16
	iterations  = 3
	memory      = 64 * 1024 // 64 MiB
	parallelism = 2
	keyLength   = 32
)

// ErrPasswordMismatch is returned by VerifyPassword when the password does
// not match the stored hash.
var ErrPasswordMismatch = errors.New("cryptox: password does not match")

// HashPassword generates a PHC-format argon2id hash string including salt
// and parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a plaintext password against a PHC-style
// argon2id hash using a constant-time comparison.
func VerifyPassword(password, encodedHash string) error {
	parts, err := splitPHC(encodedHash)
	if err != nil {
		return err
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("invalid hash format: failed to parse parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("invalid hash format: failed to decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, iters, mem, par, uint32(len(expected)))

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// DummyVerify burns the same argon2id cost as a real verification without
// a stored hash. Login calls this for unknown emails so that the response
// timing does not reveal whether an account exists.
func DummyVerify(password string) {
	salt := make([]byte, saltLength)
	_ = argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, keyLength)
}

// splitPHC validates the PHC structure:
// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
func splitPHC(encoded string) ([]string, error) {
	parts := make([]string, 0, 6)
	start := 0
	for i := range len(encoded) {
		if encoded[i] == '$' {
			parts = append(parts, encoded[start:i])
			start = i + 1
		}
	}
	parts = append(parts, encoded[start:])

	if len(parts) != 6 {
		return nil, errors.New("invalid hash format: expected 6 parts")
	}
	if parts[1] != "argon2id" {
		return nil, errors.New("invalid hash format: not argon2id")
	}
	if parts[2] != "v=19" {
		return nil, errors.New("invalid hash format: wrong version")
	}
	return parts, nil
}
