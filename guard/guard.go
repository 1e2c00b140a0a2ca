// Package guard provides request gating middleware driven by the resolved
// principal. Guards deny by redirecting anonymous visitors to the login URL
// with the original destination preserved, or with a plain 403 when the
// policy forbids instead.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
)

const (
	defaultLoginURL      = "/auth/login"
	defaultRedirectParam = "next"
	defaultHomeURL       = "/"
)

// Policy controls how guards resolve principals and respond to denials.
type Policy struct {
	// LoginURL receives denied anonymous requests. Defaults to /auth/login.
	LoginURL string
	// RedirectParam carries the original URL through the login redirect.
	// Defaults to next.
	RedirectParam string
	// Forbid responds 403 instead of redirecting to LoginURL.
	Forbid bool
	// Resolve overrides principal resolution. Defaults to the request context.
	Resolve func(*http.Request) identity.Principal
}

func (p Policy) principal(r *http.Request) identity.Principal {
	if p.Resolve != nil {
		return p.Resolve(r)
	}
	return identity.FromRequest(r)
}

func (p Policy) loginURL() string {
	if trimmed := strings.TrimSpace(p.LoginURL); trimmed != "" {
		return trimmed
	}
	return defaultLoginURL
}

func (p Policy) redirectParam() string {
	if trimmed := strings.TrimSpace(p.RedirectParam); trimmed != "" {
		return trimmed
	}
	return defaultRedirectParam
}

// deny writes the configured denial response.
func (p Policy) deny(w http.ResponseWriter, r *http.Request) {
	if p.Forbid {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	httpx.WriteRedirect(w, r, p.loginRedirectURL(r))
}

// loginRedirectURL builds the login URL carrying the original full path.
func (p Policy) loginRedirectURL(r *http.Request) string {
	loginURL := p.loginURL()
	fullPath := requestFullPath(r)
	if fullPath == "" {
		return loginURL
	}
	separator := "?"
	if strings.Contains(loginURL, "?") {
		separator = "&"
	}
	return loginURL + separator + p.redirectParam() + "=" + url.QueryEscape(fullPath)
}

func requestFullPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	fullPath := r.URL.Path
	if r.URL.RawQuery != "" {
		fullPath += "?" + r.URL.RawQuery
	}
	return fullPath
}

// RequireLogin denies requests without an authenticated principal.
func RequireLogin(p Policy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.principal(r).Anonymous() {
				p.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnonymous redirects authenticated principals to redirectURL, for
// login and signup surfaces that only make sense logged out. An empty
// redirectURL falls back to the site root.
func RequireAnonymous(redirectURL string, p Policy) httpx.Middleware {
	if strings.TrimSpace(redirectURL) == "" {
		redirectURL = defaultHomeURL
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.principal(r).Authenticated() {
				httpx.WriteRedirect(w, r, redirectURL)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff denies requests whose principal lacks the staff flag.
func RequireStaff(p Policy) httpx.Middleware {
	return requireFlag(p, func(principal identity.Principal) bool {
		return principal.Staff
	})
}

// RequireSuperuser denies requests whose principal lacks the superuser flag.
func RequireSuperuser(p Policy) httpx.Middleware {
	return requireFlag(p, func(principal identity.Principal) bool {
		return principal.Superuser
	})
}

func requireFlag(p Policy, pass func(identity.Principal) bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pass(p.principal(r)) {
				p.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
