// Package httpx provides HTTP middleware helpers and response writers shared
// by view scaffolds.
package httpx

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"
)

const requestIDHeader = "X-Request-ID"

// Middleware is a composable handler wrapper.
type Middleware func(http.Handler) http.Handler

var requestIDSeq atomic.Uint64

// Chain applies middleware in declaration order: the first entry becomes the
// outermost wrapper. Nil entries are skipped and a nil handler serves 404.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	wrapped := handler
	if wrapped == nil {
		wrapped = http.NotFoundHandler()
	}
	for i := len(middleware); i > 0; i-- {
		if mw := middleware[i-1]; mw != nil {
			wrapped = mw(wrapped)
		}
	}
	return wrapped
}

// MethodNotAllowed responds 405 and advertises the allowed method.
func MethodNotAllowed(allow string) http.HandlerFunc {
	allow = strings.TrimSpace(allow)
	return func(w http.ResponseWriter, _ *http.Request) {
		if w == nil {
			return
		}
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RequireMethod lets only the given method through to the next handler.
func RequireMethod(method string) Middleware {
	reject := MethodNotAllowed(method)
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				reject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID echoes the incoming X-Request-ID header, or generates one, on
// both the request and the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = newRequestID()
				r.Header.Set(requestIDHeader, id)
			}
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

func newRequestID() string {
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), requestIDSeq.Add(1))
}

// RecoverPanic converts handler panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				logPanic(r, recovered)
				w.WriteHeader(http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// logPanic records the panic with enough request context to correlate it with
// access logs.
func logPanic(r *http.Request, recovered any) {
	method, path, requestID := "-", "-", "-"
	if r != nil {
		if m := strings.TrimSpace(r.Method); m != "" {
			method = m
		}
		if p := strings.TrimSpace(r.URL.Path); p != "" {
			path = p
		}
		if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); id != "" {
			requestID = id
		}
	}
	log.Printf("panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
		method, path, requestID, recovered, strings.TrimSpace(string(debug.Stack())))
}

// RequestContext returns r.Context(), falling back to context.Background()
// for a nil request.
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
