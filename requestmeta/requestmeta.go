// Package requestmeta provides normalized request metadata helpers.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy controls how request metadata resolves the request scheme.
//
// TrustForwardedProto must be explicitly enabled for X-Forwarded-Proto to be
// considered. Keeping this explicit avoids trusting headers from untrusted clients.
type SchemePolicy struct {
	TrustForwardedProto bool
}

// Scheme resolves the effective request scheme under the policy.
func (p SchemePolicy) Scheme(r *http.Request) string {
	if r == nil {
		return ""
	}
	if p.TrustForwardedProto {
		if forwarded := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); forwarded == "http" || forwarded == "https" {
			return forwarded
		}
	}
	if r.URL != nil {
		if scheme := strings.ToLower(strings.TrimSpace(r.URL.Scheme)); scheme == "http" || scheme == "https" {
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// IsHTTPS reports whether a request should be treated as HTTPS under the policy.
func (p SchemePolicy) IsHTTPS(r *http.Request) bool {
	return p.Scheme(r) == "https"
}

// HasSameOriginProof reports whether Origin or Referer proves same-origin
// under the policy. A present Origin header decides on its own; Referer is
// consulted only when Origin is absent.
func (p SchemePolicy) HasSameOriginProof(r *http.Request) bool {
	if r == nil {
		return false
	}
	request := p.requestOrigin(r)
	if request.host == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Origin"))
	if header == "" {
		header = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if header == "" {
		return false
	}
	candidate, ok := parseOrigin(header)
	return ok && candidate.matches(request)
}

// IsHTTPS reports whether a request should be treated as HTTPS under the
// default policy.
func IsHTTPS(r *http.Request) bool {
	return SchemePolicy{}.IsHTTPS(r)
}

// HasSameOriginProof reports whether Origin or Referer proves same-origin
// under the default policy.
func HasSameOriginProof(r *http.Request) bool {
	return SchemePolicy{}.HasSameOriginProof(r)
}

// origin is a normalized scheme/host/port triple.
type origin struct {
	scheme string
	host   string
	port   string
}

// matches reports whether the candidate origin agrees with the request
// origin. The scheme is only compared when the request scheme is known, and
// ports that stay unresolvable after scheme defaults never match.
func (o origin) matches(request origin) bool {
	if request.scheme != "" && o.scheme != request.scheme {
		return false
	}
	if o.host != request.host {
		return false
	}
	if o.port == "" || request.port == "" {
		return false
	}
	return o.port == request.port
}

// requestOrigin derives the request's own origin, preferring the Host header
// and defaulting the port from the resolved scheme.
func (p SchemePolicy) requestOrigin(r *http.Request) origin {
	o := origin{scheme: p.Scheme(r)}
	o.host, o.port = splitHostPort(r.Host)
	if o.host == "" && r.URL != nil {
		o.host, o.port = splitHostPort(r.URL.Host)
	}
	if o.port == "" {
		o.port = schemePort(o.scheme)
	}
	return o
}

// parseOrigin normalizes an Origin or Referer header value. Values without a
// scheme or host do not parse.
func parseOrigin(raw string) (origin, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return origin{}, false
	}
	o := origin{
		scheme: strings.ToLower(strings.TrimSpace(parsed.Scheme)),
		host:   strings.ToLower(strings.TrimSpace(parsed.Hostname())),
		port:   strings.TrimSpace(parsed.Port()),
	}
	if o.scheme == "" || o.host == "" {
		return origin{}, false
	}
	if o.port == "" {
		o.port = schemePort(o.scheme)
	}
	return o, true
}

func schemePort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	}
	return ""
}

func splitHostPort(rawHost string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(rawHost))
	if err != nil {
		return "", ""
	}
	return strings.ToLower(strings.TrimSpace(parsed.Hostname())), strings.TrimSpace(parsed.Port())
}
