package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/sessioncookie"
	"github.com/louisbranch/viewkit/weberror"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvSessionIssuer, "")
	t.Setenv(EnvSessionAudience, "")
	t.Setenv(EnvSessionPublicKey, "")

	if _, err := LoadConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when env vars are missing")
	}

	pubKey, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	t.Setenv(EnvSessionIssuer, "issuer")
	t.Setenv(EnvSessionAudience, "audience")
	t.Setenv(EnvSessionPublicKey, base64.RawStdEncoding.EncodeToString(pubKey))

	cfg, err := LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load session token config: %v", err)
	}
	if cfg.Issuer != "issuer" || cfg.Audience != "audience" {
		t.Fatal("expected issuer and audience to be loaded")
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		t.Fatalf("expected public key size %d", ed25519.PublicKeySize)
	}
}

func TestNewVerifierRejectsIncompleteConfig(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	if _, err := NewVerifier(Config{Audience: "aud", Key: pub}); !weberror.IsConfig(err) {
		t.Fatalf("missing issuer error = %v, want config error", err)
	}
	if _, err := NewVerifier(Config{Issuer: "iss", Key: pub}); !weberror.IsConfig(err) {
		t.Fatalf("missing audience error = %v, want config error", err)
	}
	if _, err := NewVerifier(Config{Issuer: "iss", Audience: "aud"}); !weberror.IsConfig(err) {
		t.Fatalf("missing key error = %v, want config error", err)
	}
	if _, err := NewVerifier(Config{Issuer: "iss", Audience: "aud", Key: pub}); err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
}

func TestSignAndParseRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	signer := &Signer{Issuer: "issuer", Audience: "audience", Key: priv, Now: func() time.Time { return now }}
	raw, err := signer.Sign(identity.Principal{
		ID:          "u1",
		DisplayName: "User One",
		Staff:       true,
		Permissions: []string{"projects.view"},
	}, time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	principal, err := verifier.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if principal.ID != "u1" || principal.DisplayName != "User One" || !principal.Staff {
		t.Fatalf("principal = %+v", principal)
	}
	if len(principal.Permissions) != 1 || principal.Permissions[0] != "projects.view" {
		t.Fatalf("permissions = %v", principal.Permissions)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	raw := signToken(t, priv, map[string]any{
		"iss": "issuer",
		"aud": "audience",
		"sub": "u1",
		"exp": now.Add(-time.Minute).Unix(),
	})

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	_, err = verifier.Parse(raw)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expired error, got %v", err)
	}
	if got := weberror.HTTPStatus(err); got != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", got, http.StatusUnauthorized)
	}
}

func TestParseRejectsIssuerAndAudienceMismatch(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	wrongIssuer := signToken(t, priv, map[string]any{
		"iss": "other",
		"aud": "audience",
		"sub": "u1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Parse(wrongIssuer); err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer mismatch, got %v", err)
	}

	wrongAudience := signToken(t, priv, map[string]any{
		"iss": "issuer",
		"aud": []string{"other"},
		"sub": "u1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Parse(wrongAudience); err == nil || !strings.Contains(err.Error(), "audience") {
		t.Fatalf("expected audience mismatch, got %v", err)
	}
}

func TestParseRejectsWrongKeyAndAlg(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	forged := signToken(t, otherPriv, map[string]any{
		"iss": "issuer",
		"aud": "audience",
		"sub": "u1",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Parse(forged); err == nil {
		t.Fatalf("expected signature rejection")
	}

	if _, err := verifier.Parse(""); err == nil {
		t.Fatalf("expected empty token rejection")
	}
	if _, err := verifier.Parse("not-a-token"); err == nil {
		t.Fatalf("expected malformed token rejection")
	}
}

func TestParseRequiresSubjectAndExpiry(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	noSubject := signToken(t, priv, map[string]any{
		"iss": "issuer",
		"aud": "audience",
		"exp": now.Add(time.Hour).Unix(),
	})
	if _, err := verifier.Parse(noSubject); err == nil || !strings.Contains(err.Error(), "subject") {
		t.Fatalf("expected subject error, got %v", err)
	}

	noExpiry := signToken(t, priv, map[string]any{
		"iss": "issuer",
		"aud": "audience",
		"sub": "u1",
	})
	if _, err := verifier.Parse(noExpiry); err == nil || !strings.Contains(err.Error(), "exp") {
		t.Fatalf("expected exp error, got %v", err)
	}
}

func TestSignerValidation(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	unconfigured := &Signer{Key: priv}
	if _, err := unconfigured.Sign(identity.Principal{ID: "u1"}, time.Hour); !weberror.IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}

	signer := &Signer{Issuer: "issuer", Audience: "audience", Key: priv}
	if _, err := signer.Sign(identity.Principal{}, time.Hour); err == nil {
		t.Fatalf("expected anonymous principal rejection")
	}
	if _, err := signer.Sign(identity.Principal{ID: "u1"}, 0); err == nil {
		t.Fatalf("expected non-positive ttl rejection")
	}
}

func TestResolverReadsSessionCookie(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	signer := &Signer{Issuer: "issuer", Audience: "audience", Key: priv, Now: func() time.Time { return now }}
	raw, err := signer.Sign(identity.Principal{ID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	verifier, err := NewVerifier(Config{Issuer: "issuer", Audience: "audience", Key: pub, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	resolve := Resolver(verifier, "")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: raw})
	principal, ok := resolve(req)
	if !ok {
		t.Fatalf("resolve ok = false, want true")
	}
	if principal.ID != "u1" {
		t.Fatalf("principal id = %q, want %q", principal.ID, "u1")
	}

	bare := httptest.NewRequest(http.MethodGet, "/projects", nil)
	if _, ok := resolve(bare); ok {
		t.Fatalf("missing cookie should resolve anonymous")
	}

	tampered := httptest.NewRequest(http.MethodGet, "/projects", nil)
	tampered.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: raw + "x"})
	if _, ok := resolve(tampered); ok {
		t.Fatalf("tampered cookie should resolve anonymous")
	}
}

func signToken(t *testing.T, privateKey ed25519.PrivateKey, payload map[string]any) string {
	t.Helper()

	headerJSON, err := json.Marshal(map[string]any{"alg": "EdDSA", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signingInput := encodedHeader + "." + encodedPayload
	signature := ed25519.Sign(privateKey, []byte(signingInput))
	encodedSig := base64.RawURLEncoding.EncodeToString(signature)
	return signingInput + "." + encodedSig
}
