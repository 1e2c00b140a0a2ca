package guard

import (
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/weberror"
)

// RequirePermission denies requests whose principal lacks perm. The
// permission must follow the <realm>.<action> format, checked at wiring time.
func RequirePermission(perm string, p Policy) (httpx.Middleware, error) {
	perm = strings.TrimSpace(perm)
	if perm == "" {
		return nil, weberror.Config("guard.RequirePermission", "permission is required")
	}
	if !identity.ValidPermission(perm) {
		return nil, weberror.Configf("guard.RequirePermission", "permission %q must be <realm>.<action>", perm)
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.principal(r).Can(perm) {
				p.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// Set lists permissions that must all hold alongside permissions where any
// one suffices.
type Set struct {
	All []string
	Any []string
}

// RequirePermissions denies requests failing the permission set: every All
// entry must hold and, when Any is non-empty, at least one Any entry must
// hold. A set with both lists empty is a wiring error.
func RequirePermissions(set Set, p Policy) (httpx.Middleware, error) {
	if len(set.All) == 0 && len(set.Any) == 0 {
		return nil, weberror.Config("guard.RequirePermissions", "at least one of All or Any is required")
	}
	for _, perm := range set.All {
		if !identity.ValidPermission(strings.TrimSpace(perm)) {
			return nil, weberror.Configf("guard.RequirePermissions", "All permission %q must be <realm>.<action>", perm)
		}
	}
	for _, perm := range set.Any {
		if !identity.ValidPermission(strings.TrimSpace(perm)) {
			return nil, weberror.Configf("guard.RequirePermissions", "Any permission %q must be <realm>.<action>", perm)
		}
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := p.principal(r)
			if !principal.CanAll(set.All) {
				p.deny(w, r)
				return
			}
			if len(set.Any) > 0 && !principal.CanAny(set.Any) {
				p.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
