package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/viewkit/htmx"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/weberror"
)

// WriteErrorPage renders the shell error page for the status code. Statuses
// outside the error-page range coerce to 500.
func (rr *Renderer) WriteErrorPage(w http.ResponseWriter, r *http.Request, status int) {
	if w == nil {
		return
	}
	if !weberror.ShouldRenderErrorPage(status) {
		status = http.StatusInternalServerError
	}

	loc, lang := rr.localize(w, r)
	headline := strings.TrimSpace(http.StatusText(status))
	if headline == "" {
		headline = http.StatusText(http.StatusInternalServerError)
	}

	shell := Shell{
		Headline:  headline,
		Lang:      lang,
		Loc:       loc,
		Principal: rr.principal(r),
		Path:      requestPath(r),
	}
	ctx := httpx.RequestContext(r)
	target := rr.component(ctx, shell, htmx.IsHTMXRequest(r))

	var buf bytes.Buffer
	if err := target.Render(templ.WithChildren(ctx, errorState(status, headline)), &buf); err != nil {
		http.Error(w, weberror.PublicMessage(loc, err), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// WriteError maps the error to an HTTP status and writes the matching
// response: a shell error page for page-worthy statuses, a plain text error
// with the public message otherwise.
func (rr *Renderer) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	status := weberror.HTTPStatus(err)
	if weberror.ShouldRenderErrorPage(status) {
		rr.WriteErrorPage(w, r, status)
		return
	}
	loc, _ := rr.localize(w, r)
	http.Error(w, weberror.PublicMessage(loc, err), status)
}

func errorState(status int, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(
			w,
			`<section class="error-state"><p class="error-code">%d</p><p>%s</p></section>`,
			status,
			html.EscapeString(text),
		)
		return err
	})
}
