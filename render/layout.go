package render

import (
	"context"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/viewkit/htmx"
)

// BaseLayout is the built-in minimal page shell used when no layout is
// configured. Full renders produce a complete HTML document with the headline
// in the title and heading; partial renders produce a title tag followed by
// the fragment for HTMX swaps.
type BaseLayout struct{}

// Full wraps children in a minimal HTML document.
func (BaseLayout) Full(_ context.Context, shell Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html><html lang="`)
		b.WriteString(html.EscapeString(shell.Lang))
		b.WriteString(`"><head><meta charset="utf-8">`)
		writeMetaTags(&b, shell.Meta)
		b.WriteString("<title>")
		b.WriteString(html.EscapeString(shell.Headline))
		b.WriteString("</title></head><body>")
		writeToast(&b, shell.Toast)
		b.WriteString("<main><h1>")
		b.WriteString(html.EscapeString(shell.Headline))
		b.WriteString("</h1>")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main></body></html>")
		return err
	})
}

// Partial wraps children for an HTMX swap.
func (BaseLayout) Partial(_ context.Context, shell Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(htmx.TitleTag(shell.Headline))
		writeToast(&b, shell.Toast)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		return templ.GetChildren(ctx).Render(ctx, w)
	})
}

func writeMetaTags(b *strings.Builder, meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(`<meta name="`)
		b.WriteString(html.EscapeString(name))
		b.WriteString(`" content="`)
		b.WriteString(html.EscapeString(meta[name]))
		b.WriteString(`">`)
	}
}

func writeToast(b *strings.Builder, toast *Toast) {
	if toast == nil {
		return
	}
	b.WriteString(`<div class="toast toast-`)
	b.WriteString(html.EscapeString(string(toast.Kind)))
	b.WriteString(`" role="status">`)
	b.WriteString(html.EscapeString(toast.Message))
	b.WriteString("</div>")
}
