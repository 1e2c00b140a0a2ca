// Package htmx renders templ components for full-page and HTMX partial
// requests.
package htmx

import (
	"bytes"
	"html"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// ResponseHeaderKey names the header HTMX sets on every request it makes.
const ResponseHeaderKey = "HX-Request"

// IsHTMXRequest reports whether HTMX issued the request.
func IsHTMXRequest(r *http.Request) bool {
	return r != nil && strings.EqualFold(r.Header.Get(ResponseHeaderKey), "true")
}

// TitleTag builds an escaped `<title>` element, or "" for blank titles.
func TitleTag(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ""
	}
	return "<title>" + html.EscapeString(trimmed) + "</title>"
}

// RenderPage serves a component pair to both browsers and HTMX.
//
// Non-HTMX requests render full, falling back to fragment when full is nil.
// HTMX requests render full and serve its `<main>` element when one exists;
// when full is nil the fragment is rendered directly. A title tag is injected
// into HTMX responses that lack one.
func RenderPage(w http.ResponseWriter, r *http.Request, fragment templ.Component, full templ.Component, title string) {
	if !IsHTMXRequest(r) {
		page := full
		if page == nil {
			page = fragment
		}
		if page == nil {
			return
		}
		templ.Handler(page).ServeHTTP(w, r)
		return
	}

	target, fromFull := fragment, false
	if full != nil {
		target, fromFull = full, true
	}
	if target == nil {
		return
	}
	writePartial(w, r, target, title, fromFull)
}

// writePartial renders target into a buffer, trims it down to the `<main>`
// element when the render came from the full page, and forwards the captured
// headers and status.
func writePartial(w http.ResponseWriter, r *http.Request, target templ.Component, title string, fromFull bool) {
	buffered := newCapture()
	templ.Handler(target).ServeHTTP(buffered, r)

	body := buffered.body.Bytes()
	if fromFull {
		if inner, ok := mainElement(body); ok {
			body = inner
		}
	}

	copyHeaders(w.Header(), buffered.headers)
	if status := buffered.status(); status != http.StatusOK {
		w.WriteHeader(status)
	}
	_, _ = w.Write(ensureTitle(body, title))
}

// capture buffers a component render so the body can be post-processed before
// it reaches the real ResponseWriter.
type capture struct {
	headers     http.Header
	code        int
	body        bytes.Buffer
	wroteHeader bool
}

func newCapture() *capture {
	return &capture{headers: make(http.Header)}
}

func (c *capture) Header() http.Header {
	return c.headers
}

// WriteHeader keeps the first status only, matching net/http semantics.
func (c *capture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.code = status
}

func (c *capture) Write(body []byte) (int, error) {
	return c.body.Write(body)
}

func (c *capture) status() int {
	if !c.wroteHeader {
		return http.StatusOK
	}
	return c.code
}

// ensureTitle prefixes the body with the title tag unless the body already
// carries one.
func ensureTitle(body []byte, title string) []byte {
	if strings.TrimSpace(title) == "" {
		return body
	}
	if bytes.Contains(bytes.ToLower(body), []byte("<title")) {
		return body
	}
	return append([]byte(title), body...)
}

// copyHeaders forwards buffered headers. Set-Cookie accumulates values; every
// other header keeps single-value semantics so buffered duplicates collapse.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		accumulate := strings.EqualFold(key, "Set-Cookie")
		for _, value := range values {
			if accumulate {
				dst.Add(key, value)
			} else {
				dst.Set(key, value)
			}
		}
	}
}

// mainElement returns the contents of the first `<main>` element.
func mainElement(body []byte) ([]byte, bool) {
	_, after, found := bytes.Cut(body, []byte("<main"))
	if !found {
		return nil, false
	}
	_, content, found := bytes.Cut(after, []byte(">"))
	if !found {
		return nil, false
	}
	inner, _, found := bytes.Cut(content, []byte("</main>"))
	if !found {
		return nil, false
	}
	return inner, true
}
