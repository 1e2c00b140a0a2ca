package htmx

import (
	"net/http"
	"sort"
	"strings"
)

// MethodHandler dispatches a request to a handler by HTTP method.
//
// HTMX requests prefer the Partial variant for their method and fall back to
// the full variant; non-HTMX requests do the reverse. HEAD requests follow the
// GET handlers. Methods with neither variant configured receive a 405 response
// with an Allow header listing the configured methods.
type MethodHandler struct {
	Get    http.HandlerFunc
	Post   http.HandlerFunc
	Put    http.HandlerFunc
	Delete http.HandlerFunc

	GetPartial    http.HandlerFunc
	PostPartial   http.HandlerFunc
	PutPartial    http.HandlerFunc
	DeletePartial http.HandlerFunc
}

func (h MethodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	method := ""
	if r != nil {
		method = r.Method
	}
	if method == http.MethodHead {
		method = http.MethodGet
	}

	full, partial := h.variants(method)
	target := full
	fallback := partial
	if IsHTMXRequest(r) {
		target, fallback = partial, full
	}
	if target == nil {
		target = fallback
	}
	if target == nil {
		w.Header().Set("Allow", strings.Join(h.allowedMethods(), ", "))
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	target.ServeHTTP(w, r)
}

func (h MethodHandler) variants(method string) (full, partial http.HandlerFunc) {
	switch method {
	case http.MethodGet:
		return h.Get, h.GetPartial
	case http.MethodPost:
		return h.Post, h.PostPartial
	case http.MethodPut:
		return h.Put, h.PutPartial
	case http.MethodDelete:
		return h.Delete, h.DeletePartial
	}
	return nil, nil
}

func (h MethodHandler) allowedMethods() []string {
	var allowed []string
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		full, partial := h.variants(method)
		if full != nil || partial != nil {
			allowed = append(allowed, method)
		}
	}
	sort.Strings(allowed)
	return allowed
}
