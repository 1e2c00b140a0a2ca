// Package render writes localized page responses for full-page and HTMX
// flows.
package render

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/language"

	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/htmx"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/weberror"
)

// Page describes one page response for both full-page and HTMX flows.
type Page struct {
	Headline string
	Status   int
	Fragment templ.Component
	Meta     map[string]string
	Toast    *Toast
}

// Toast is a one-time notice surfaced by the page shell.
type Toast struct {
	Kind    flash.Kind
	Message string
}

// Shell carries the page state a layout needs to wrap a fragment.
type Shell struct {
	Headline  string
	Lang      string
	Loc       Localizer
	Meta      map[string]string
	Toast     *Toast
	Principal identity.Principal
	Path      string
}

// Layout wraps page fragments for full-page and partial responses.
type Layout interface {
	Full(ctx context.Context, shell Shell) templ.Component
	Partial(ctx context.Context, shell Shell) templ.Component
}

type emptyComponent struct{}

func (emptyComponent) Render(context.Context, io.Writer) error {
	return nil
}

// Renderer writes pages through a shared layout and language set.
type Renderer struct {
	layout   Layout
	langs    *languageSet
	headline func(*http.Request) string
	resolve  identity.Resolver
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLayout sets the layout used for page and error responses.
func WithLayout(layout Layout) Option {
	return func(rr *Renderer) {
		rr.layout = layout
	}
}

// WithLanguages sets the supported languages in preference order. The first
// tag is the default.
func WithLanguages(tags ...language.Tag) Option {
	return func(rr *Renderer) {
		rr.langs = newLanguageSet(tags)
	}
}

// WithHeadlineFunc supplies a fallback headline for pages that omit one.
func WithHeadlineFunc(fn func(*http.Request) string) Option {
	return func(rr *Renderer) {
		rr.headline = fn
	}
}

// WithResolver overrides the request principal used by layouts. Without it the
// renderer reads the principal stored by identity.Middleware.
func WithResolver(resolve identity.Resolver) Option {
	return func(rr *Renderer) {
		rr.resolve = resolve
	}
}

// New builds a Renderer with the provided options.
func New(opts ...Option) *Renderer {
	rr := &Renderer{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(rr)
	}
	if rr.langs == nil {
		rr.langs = newLanguageSet(nil)
	}
	return rr
}

// WritePage writes a page response, wrapping its fragment in the configured
// layout. HTMX requests receive the partial layout, everything else the full
// layout. The body renders into a buffer first so failures never produce a
// half-written response.
func (rr *Renderer) WritePage(w http.ResponseWriter, r *http.Request, page Page) error {
	if w == nil {
		return nil
	}

	headline := strings.TrimSpace(page.Headline)
	if headline == "" && rr.headline != nil {
		headline = strings.TrimSpace(rr.headline(r))
	}
	if headline == "" {
		err := weberror.Config("render", "page headline is required")
		log.Printf("render: write page: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	status := page.Status
	if status <= 0 {
		status = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = emptyComponent{}
	}

	loc, lang := rr.localize(w, r)
	partial := htmx.IsHTMXRequest(r)

	toast := page.Toast
	if toast == nil && !partial {
		toast = readFlashToast(w, r, loc)
	}

	shell := Shell{
		Headline:  headline,
		Lang:      lang,
		Loc:       loc,
		Meta:      page.Meta,
		Toast:     toast,
		Principal: rr.principal(r),
		Path:      requestPath(r),
	}

	ctx := httpx.RequestContext(r)
	target := rr.component(ctx, shell, partial)

	var buf bytes.Buffer
	if err := target.Render(templ.WithChildren(ctx, fragment), &buf); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func (rr *Renderer) component(ctx context.Context, shell Shell, partial bool) templ.Component {
	layout := rr.layout
	if layout == nil {
		layout = BaseLayout{}
	}
	if partial {
		return layout.Partial(ctx, shell)
	}
	return layout.Full(ctx, shell)
}

func (rr *Renderer) principal(r *http.Request) identity.Principal {
	if rr.resolve != nil {
		if principal, ok := rr.resolve(r); ok {
			return principal
		}
		return identity.Principal{}
	}
	return identity.FromRequest(r)
}

func readFlashToast(w http.ResponseWriter, r *http.Request, loc Localizer) *Toast {
	notice, ok := flash.ReadAndClear(w, r)
	if !ok {
		return nil
	}
	message := strings.TrimSpace(loc.Sprintf(notice.Key))
	if message == "" {
		message = strings.TrimSpace(notice.Key)
	}
	if message == "" {
		return nil
	}
	return &Toast{Kind: notice.Kind, Message: message}
}

func requestPath(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.Path
}
