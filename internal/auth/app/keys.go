package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/risinghq/bmsauth/pkg/jwtx"
)

// initSigning builds the signer/verifier pair from config. HS256 takes
// the secret straight from the environment; EdDSA loads a PKCS8 PEM key
// from disk.
func initSigning(cfg Config) (jwtx.Signer, jwtx.Verifier, error) {
	switch strings.ToUpper(cfg.SigningAlg) {
	case "HS256":
		if cfg.SigningSecret == "" {
			return nil, nil, fmt.Errorf("AUTH_SIGNING_SECRET is required for HS256")
		}
		signer, err := jwtx.NewSignerHS256([]byte(cfg.SigningSecret))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid HS256 secret: %w", err)
		}
		verifier := jwtx.NewVerifierHS256([]byte(cfg.SigningSecret), cfg.Issuer)
		return signer, verifier, nil

	case "EDDSA":
		if cfg.SigningKeyFile == "" {
			return nil, nil, fmt.Errorf("AUTH_SIGNING_KEY_FILE is required for EdDSA")
		}
		pemKey, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read signing key: %w", err)
		}
		signer, err := jwtx.NewSignerEdDSA(pemKey)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid EdDSA key: %w", err)
		}
		verifier := jwtx.NewVerifierEdDSA(signer.Public(), cfg.Issuer)
		return signer, verifier, nil

	default:
		return nil, nil, fmt.Errorf("unsupported signing algorithm %q", cfg.SigningAlg)
	}
}
