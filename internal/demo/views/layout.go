// Package views renders the demo project tracker's HTML fragments and page
// shell.
package views

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/viewkit/htmx"
	"github.com/louisbranch/viewkit/render"
)

// NavLink is one navigation entry in the page shell.
type NavLink struct {
	Label string
	Path  string
	// StaffOnly hides the link from principals without staff access.
	StaffOnly bool
}

// Layout is the demo's page shell. Full renders wrap fragments in a document
// with shared navigation; partial renders feed HTMX swaps.
type Layout struct {
	Nav        []NavLink
	LoginPath  string
	LogoutPath string
}

var _ render.Layout = Layout{}

// Full wraps children in the demo document shell.
func (l Layout) Full(_ context.Context, shell render.Shell) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html><html lang="`)
		b.WriteString(html.EscapeString(shell.Lang))
		b.WriteString(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		b.WriteString(html.EscapeString(shell.Headline))
		b.WriteString(` | Project Tracker</title></head><body>`)
		l.writeNav(&b, shell)
		writeToast(&b, shell.Toast)
		b.WriteString(`<main><h1>`)
		b.WriteString(html.EscapeString(shell.Headline))
		b.WriteString(`</h1>`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// Partial wraps children for an HTMX swap.
func (l Layout) Partial(_ context.Context, shell render.Shell) templ.Component {
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

func (l Layout) writeNav(b *strings.Builder, shell render.Shell) {
	b.WriteString(`<nav>`)
	staff := shell.Principal.Staff || shell.Principal.Superuser
	for _, link := range l.Nav {
		if link.StaffOnly && !staff {
			continue
		}
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(link.Path))
		if link.Path == shell.Path {
			b.WriteString(`" aria-current="page`)
		}
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(link.Label))
		b.WriteString(`</a> `)
	}
	if shell.Principal.Authenticated() {
		b.WriteString(`<form method="post" action="`)
		b.WriteString(html.EscapeString(l.LogoutPath))
		b.WriteString(`" class="session"><span>`)
		b.WriteString(html.EscapeString(principalLabel(shell.Principal)))
		b.WriteString(`</span> <button type="submit">Sign out</button></form>`)
	} else if l.LoginPath != "" {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(l.LoginPath))
		b.WriteString(`" class="session">Sign in</a>`)
	}
	b.WriteString(`</nav>`)
}

func writeToast(b *strings.Builder, toast *render.Toast) {
	if toast == nil {
		return
	}
	b.WriteString(`<div class="toast toast-`)
	b.WriteString(html.EscapeString(string(toast.Kind)))
	b.WriteString(`" role="status">`)
	b.WriteString(html.EscapeString(toast.Message))
	b.WriteString(`</div>`)
}
