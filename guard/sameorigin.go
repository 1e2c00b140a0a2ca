package guard

import (
	"net/http"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/requestmeta"
	"github.com/louisbranch/viewkit/sessioncookie"
)

// mutatingMethods are the methods that require same-origin proof.
var mutatingMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// RequireSameOrigin rejects mutation requests that carry the session cookie
// without Origin or Referer proof of same-origin. Cookie-less requests pass
// through untouched so public forms keep working.
func RequireSameOrigin(policy requestmeta.SchemePolicy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if needsProof(r) && !policy.HasSameOriginProof(r) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// needsProof reports whether the request both mutates state and rides an
// existing session.
func needsProof(r *http.Request) bool {
	if r == nil || !mutatingMethods[r.Method] {
		return false
	}
	_, ok := sessioncookie.Read(r)
	return ok
}
