package jwtx

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a compact JWT and returns the claims if it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrTokenType   = errors.New("jwtx: unexpected token type")
)

// HS256Verifier validates JWTs signed with the shared HS256 secret.
type HS256Verifier struct {
	secret []byte
	issuer string
}

// NewVerifierHS256 returns a verifier bound to the given secret and issuer.
func NewVerifierHS256(secret []byte, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: secret, issuer: issuer}
}

func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	return verify(tokenStr, jwt.SigningMethodHS256.Alg(), v.issuer, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
}

// EdDSAVerifier validates JWTs signed with the Ed25519 key.
type EdDSAVerifier struct {
	pub    ed25519.PublicKey
	issuer string
}

// NewVerifierEdDSA returns a verifier for the given Ed25519 public key.
func NewVerifierEdDSA(pub ed25519.PublicKey, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{pub: pub, issuer: issuer}
}

func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	return verify(tokenStr, jwt.SigningMethodEdDSA.Alg(), v.issuer, func(*jwt.Token) (any, error) {
		return v.pub, nil
	})
}

// verify runs the shared validation pipeline: signature with a pinned
// algorithm, then issuer, expiry window, and token type.
func verify(tokenStr, alg, issuer string, keyFn jwt.Keyfunc) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{alg}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, keyFn)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, ErrMalformed
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(time.Now().UTC()); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTokenType(TokenTypeAccess); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
