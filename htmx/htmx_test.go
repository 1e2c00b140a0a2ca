package htmx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
)

func bodyComponent(body string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func htmxRequest(path string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r.Header.Set(ResponseHeaderKey, "true")
	return r
}

func TestIsHTMXRequest(t *testing.T) {
	t.Parallel()

	if IsHTMXRequest(nil) {
		t.Fatal("nil request reported as HTMX")
	}
	r := httptest.NewRequest(http.MethodGet, "/projects", nil)
	if IsHTMXRequest(r) {
		t.Fatal("request without header reported as HTMX")
	}
	r.Header.Set(ResponseHeaderKey, "TRUE")
	if !IsHTMXRequest(r) {
		t.Fatal("case-folded header value not detected")
	}
}

func TestTitleTag(t *testing.T) {
	t.Parallel()

	if got := TitleTag("Severity & Scope"); got != "<title>Severity &amp; Scope</title>" {
		t.Fatalf("TitleTag() = %q, want escaped title", got)
	}
	if got := TitleTag("   "); got != "" {
		t.Fatalf("TitleTag(blank) = %q, want empty", got)
	}
}

func TestRenderPageBrowserPrefersFullPage(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/projects", nil)
	RenderPage(w, r, bodyComponent("<div>fragment</div>"), bodyComponent("<html><body>full</body></html>"), TitleTag("Projects"))

	if got := w.Body.String(); got != "<html><body>full</body></html>" {
		t.Fatalf("body = %q, want the full page", got)
	}
}

func TestRenderPageBrowserFallsBackToFragment(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/projects", nil)
	RenderPage(w, r, bodyComponent("<div>fragment</div>"), nil, "")

	if got := w.Body.String(); got != "<div>fragment</div>" {
		t.Fatalf("body = %q, want the fragment", got)
	}
}

func TestRenderPageFragmentTitles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		title string
		want  string
	}{
		{
			name:  "injects title when absent",
			body:  "<main>fragment</main>",
			title: TitleTag("Project List"),
			want:  "<title>Project List</title><main>fragment</main>",
		},
		{
			name:  "keeps existing title",
			body:  "<title>Already Set</title><main>fragment</main>",
			title: TitleTag("Ignored"),
			want:  "<title>Already Set</title><main>fragment</main>",
		},
		{
			name: "no title requested",
			body: "<main>fragment</main>",
			want: "<main>fragment</main>",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			RenderPage(w, htmxRequest("/projects"), bodyComponent(tc.body), nil, tc.title)
			if got := w.Body.String(); got != tc.want {
				t.Fatalf("body = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderPageExtractsMainFromFullPage(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	full := bodyComponent(`<html><head></head><body><main class="page">project list</main></body></html>`)
	RenderPage(w, htmxRequest("/projects"), nil, full, "")

	if got := w.Body.String(); got != "project list" {
		t.Fatalf("body = %q, want the main element content", got)
	}
}

func TestRenderPageForwardsRenderFailureStatus(t *testing.T) {
	t.Parallel()

	failing := templ.ComponentFunc(func(context.Context, io.Writer) error {
		return errors.New("render exploded")
	})
	w := httptest.NewRecorder()
	RenderPage(w, htmxRequest("/projects"), failing, nil, "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestCopyHeaders(t *testing.T) {
	t.Parallel()

	src := http.Header{}
	src.Add("Cache-Control", "no-store")
	src.Add("Cache-Control", "no-cache")
	src.Add("Set-Cookie", "vk_session=s1")
	src.Add("Set-Cookie", "vk_flash=n1")

	dst := http.Header{}
	copyHeaders(dst, src)

	if got := dst.Values("Cache-Control"); len(got) != 1 || got[0] != "no-cache" {
		t.Fatalf("Cache-Control = %v, want the last value only", got)
	}
	if got := dst.Values("Set-Cookie"); len(got) != 2 {
		t.Fatalf("Set-Cookie = %v, want both cookies", got)
	}
}
