package identity

import (
	"context"
	"net/http"

	"github.com/louisbranch/viewkit/httpx"
)

// principalContextKey is the context key for the resolved principal.
type principalContextKey struct{}

// WithPrincipal stores a principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, p)
}

// FromContext returns the principal stored in context. Missing values resolve
// to the anonymous principal.
func FromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Principal{}
	}
	value, _ := ctx.Value(principalContextKey{}).(Principal)
	return value
}

// FromRequest returns the principal stored in the request context.
func FromRequest(r *http.Request) Principal {
	if r == nil {
		return Principal{}
	}
	return FromContext(r.Context())
}

// Resolver resolves the principal for a request. The bool reports whether an
// authenticated principal was found.
type Resolver func(*http.Request) (Principal, bool)

// Middleware resolves the principal once per request and stores it in the
// request context for downstream guards and handlers.
func Middleware(resolve Resolver) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolve == nil {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := resolve(r)
			if !ok {
				principal = Principal{}
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
