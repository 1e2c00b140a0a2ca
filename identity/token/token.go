// Package token issues and verifies ed25519-signed session tokens carrying a
// principal.
package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/sessioncookie"
	"github.com/louisbranch/viewkit/weberror"
)

// Env var names for session token verification.
const (
	EnvSessionIssuer    = "VIEWKIT_SESSION_ISSUER"
	EnvSessionAudience  = "VIEWKIT_SESSION_AUDIENCE"
	EnvSessionPublicKey = "VIEWKIT_SESSION_PUBLIC_KEY"
)

// sessionEnv holds raw env values before post-parse validation.
type sessionEnv struct {
	Issuer    string `env:"VIEWKIT_SESSION_ISSUER"`
	Audience  string `env:"VIEWKIT_SESSION_AUDIENCE"`
	PublicKey string `env:"VIEWKIT_SESSION_PUBLIC_KEY"`
}

// Config defines how session tokens are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// claims is the internal claims type used for JWT parsing.
type claims struct {
	jwt.RegisteredClaims
	DisplayName string   `json:"display_name,omitempty"`
	Staff       bool     `json:"staff,omitempty"`
	Superuser   bool     `json:"superuser,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// LoadConfigFromEnv reads session token verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw sessionEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse session token env: %w", err)
	}
	issuer, err := requiredEnv(EnvSessionIssuer, raw.Issuer)
	if err != nil {
		return Config{}, err
	}
	audience, err := requiredEnv(EnvSessionAudience, raw.Audience)
	if err != nil {
		return Config{}, err
	}
	encodedKey, err := requiredEnv(EnvSessionPublicKey, raw.PublicKey)
	if err != nil {
		return Config{}, err
	}
	key, err := parsePublicKey(encodedKey)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", EnvSessionPublicKey, err)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      key,
		Now:      now,
	}, nil
}

func requiredEnv(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return trimmed, nil
}

// parsePublicKey decodes a base64 ed25519 public key, accepting both padded
// and unpadded encodings.
func parsePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(value)
	}
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}

// Verifier validates session tokens against a fixed issuer and audience.
type Verifier struct {
	cfg Config
}

// NewVerifier builds a Verifier, rejecting incomplete configuration.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, weberror.Config("token.Verifier", "issuer is required")
	}
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, weberror.Config("token.Verifier", "audience is required")
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		return nil, weberror.Configf("token.Verifier", "public key must be %d bytes", ed25519.PublicKeySize)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

// Parse verifies raw and returns the principal it carries.
func (v *Verifier) Parse(raw string) (identity.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token is required")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return v.cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, rejectionReason(err))
	}

	if parsed.Issuer == "" || parsed.Issuer != v.cfg.Issuer {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token issuer mismatch")
	}
	if !slices.Contains(parsed.Audience, v.cfg.Audience) {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token audience mismatch")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token subject is required")
	}
	if parsed.ExpiresAt == nil {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token exp is required")
	}

	now := v.cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return identity.Principal{}, weberror.E(weberror.KindUnauthorized, "session token not active yet")
	}

	return identity.Principal{
		ID:          parsed.Subject,
		DisplayName: parsed.DisplayName,
		Staff:       parsed.Staff,
		Superuser:   parsed.Superuser,
		Permissions: parsed.Permissions,
	}, nil
}

// Signer issues session tokens with an ed25519 private key. Services that
// only verify tokens never hold the private key.
type Signer struct {
	Issuer   string
	Audience string
	Key      ed25519.PrivateKey
	Now      func() time.Time
}

// Sign issues a token for the principal valid for ttl.
func (s *Signer) Sign(p identity.Principal, ttl time.Duration) (string, error) {
	if strings.TrimSpace(s.Issuer) == "" || strings.TrimSpace(s.Audience) == "" {
		return "", weberror.Config("token.Signer", "issuer and audience are required")
	}
	if len(s.Key) != ed25519.PrivateKeySize {
		return "", weberror.Configf("token.Signer", "private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if p.Anonymous() {
		return "", weberror.E(weberror.KindInvalidInput, "principal id is required")
	}
	if ttl <= 0 {
		return "", weberror.E(weberror.KindInvalidInput, "token ttl must be positive")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	issuedAt := now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		DisplayName: p.DisplayName,
		Staff:       p.Staff,
		Superuser:   p.Superuser,
		Permissions: p.Permissions,
	})
	signed, err := tok.SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolver builds an identity.Resolver that verifies the named session cookie.
// Invalid or expired tokens are logged and resolve to anonymous.
func Resolver(verifier *Verifier, cookieName string) identity.Resolver {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = sessioncookie.Name
	}
	return func(r *http.Request) (identity.Principal, bool) {
		if r == nil || verifier == nil {
			return identity.Principal{}, false
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie == nil {
			return identity.Principal{}, false
		}
		principal, err := verifier.Parse(cookie.Value)
		if err != nil {
			log.Printf("session token rejected: %v", err)
			return identity.Principal{}, false
		}
		return principal, true
	}
}

// rejectionReason narrows a jwt parse failure to a stable public message.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return "session token signature is invalid"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "session token alg is invalid"
	default:
		return "session token is invalid"
	}
}
