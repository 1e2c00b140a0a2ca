package demo

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/internal/demo/views"
	"github.com/louisbranch/viewkit/render"
	"github.com/louisbranch/viewkit/sessioncookie"
)

const (
	sessionIssuer   = "viewkit-demo"
	sessionAudience = "viewkit-demo-web"
)

// account is a fixed demo credential. The demo ships without registration;
// these users cover the member, permission-holder, and staff cases.
type account struct {
	password    string
	displayName string
	staff       bool
	superuser   bool
	permissions []string
}

var accounts = map[string]account{
	"ada":   {password: "analytical-engine", displayName: "Ada", staff: true, superuser: true},
	"grace": {password: "nanoseconds", displayName: "Grace", staff: true, permissions: []string{"reports.view"}},
	"sam":   {password: "paperclips", displayName: "Sam", permissions: []string{"reports.view"}},
	"mary":  {password: "orbits", displayName: "Mary"},
}

// authenticate checks a username and password against the fixed accounts and
// returns the matching principal.
func authenticate(username, password string) (identity.Principal, bool) {
	name := strings.ToLower(strings.TrimSpace(username))
	acct, ok := accounts[name]
	if !ok {
		// Unknown names take the same comparison path as bad passwords.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return identity.Principal{}, false
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(acct.password)) != 1 {
		return identity.Principal{}, false
	}
	return identity.Principal{
		ID:          name,
		DisplayName: acct.displayName,
		Staff:       acct.staff,
		Superuser:   acct.superuser,
		Permissions: acct.permissions,
	}, true
}

// sessionKeyPair decodes the configured base64 ed25519 seed, or generates a
// throwaway key pair when the setting is empty.
func sessionKeyPair(raw string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("generate session key: %w", err)
		}
		log.Printf("demo: VIEWKIT_DEMO_SESSION_KEY is unset; sessions reset on restart")
		return pub, priv, nil
	}

	seed, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		seed, err = base64.StdEncoding.DecodeString(raw)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode session key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("session key must be a base64 encoded %d byte seed", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv, nil
}

func (a *app) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	a.writeLoginPage(w, r, safeNext(r.FormValue("next")), "", 0)
}

func (a *app) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeLoginPage(w, r, "", "the sign-in form could not be read", http.StatusBadRequest)
		return
	}

	next := safeNext(r.PostForm.Get("next"))
	principal, ok := authenticate(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if !ok {
		a.writeLoginPage(w, r, next, "unknown username or password", http.StatusUnauthorized)
		return
	}

	signed, err := a.signer.Sign(principal, a.sessionTTL)
	if err != nil {
		a.renderer.WriteError(w, r, fmt.Errorf("sign session token: %w", err))
		return
	}
	sessioncookie.Write(w, r, signed)
	flash.Write(w, r, flash.NoticeSuccess("auth.signed_in"))

	target := next
	if target == "" {
		target = a.path("projects.index")
	}
	httpx.WriteRedirect(w, r, target)
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r)
	flash.Write(w, r, flash.NoticeSuccess("auth.signed_out"))
	httpx.WriteRedirect(w, r, a.path("home"))
}

func (a *app) writeLoginPage(w http.ResponseWriter, r *http.Request, next, message string, status int) {
	a.writePage(w, r, render.Page{
		Headline: "Sign in",
		Status:   status,
		Fragment: views.Login(next, message, a.path("login")),
	})
}

// safeNext keeps post-login redirects on this site. Anything but a local
// absolute path is discarded.
func safeNext(raw string) string {
	next := strings.TrimSpace(raw)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}
