package listview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/viewkit/routes"
	"github.com/louisbranch/viewkit/weberror"
)

func TestNewDirectDeleteValidation(t *testing.T) {
	t.Parallel()

	registry := routes.New()
	if err := registry.Add("projects.list", "/projects"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	deleteFunc := func(ctx context.Context, r *http.Request) error { return nil }

	tests := []struct {
		name string
		cfg  DirectDeleteConfig
	}{
		{
			name: "missing_delete",
			cfg:  DirectDeleteConfig{SuccessURL: "/projects"},
		},
		{
			name: "missing_success",
			cfg:  DirectDeleteConfig{Delete: deleteFunc},
		},
		{
			name: "both_success_targets",
			cfg: DirectDeleteConfig{
				Delete:       deleteFunc,
				SuccessURL:   "/projects",
				SuccessRoute: RouteRef{Registry: registry, Name: "projects.list"},
			},
		},
		{
			name: "route_with_id_param",
			cfg: DirectDeleteConfig{
				Delete:       deleteFunc,
				SuccessRoute: RouteRef{Registry: registry, Name: "projects.list", IDParam: "id"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewDirectDelete(tt.cfg); !weberror.IsConfig(err) {
				t.Fatalf("NewDirectDelete() error = %v, want config error", err)
			}
		})
	}
}

func TestDirectDeleteMethods(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			t.Parallel()

			deleted := 0
			view, err := NewDirectDelete(DirectDeleteConfig{
				Delete: func(ctx context.Context, r *http.Request) error {
					deleted++
					return nil
				},
				SuccessURL: "/projects",
			})
			if err != nil {
				t.Fatalf("NewDirectDelete() error = %v", err)
			}

			w := httptest.NewRecorder()
			view.ServeHTTP(w, httptest.NewRequest(method, "/projects/p1/delete", nil))

			if deleted != 1 {
				t.Fatalf("delete calls = %d, want 1", deleted)
			}
			if w.Code != http.StatusFound {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
			}
			if got := w.Header().Get("Location"); got != "/projects" {
				t.Fatalf("Location = %q, want %q", got, "/projects")
			}
		})
	}
}

func TestDirectDeleteRejectsOtherMethods(t *testing.T) {
	t.Parallel()

	deleted := 0
	view, err := NewDirectDelete(DirectDeleteConfig{
		Delete: func(ctx context.Context, r *http.Request) error {
			deleted++
			return nil
		},
		SuccessURL: "/projects",
	})
	if err != nil {
		t.Fatalf("NewDirectDelete() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/projects/p1/delete", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if got := w.Header().Get("Allow"); got != "DELETE, GET, HEAD, POST" {
		t.Fatalf("Allow = %q, want %q", got, "DELETE, GET, HEAD, POST")
	}
	if deleted != 0 {
		t.Fatal("delete was called for a rejected method")
	}
}

func TestDirectDeleteReversesSuccessRoute(t *testing.T) {
	t.Parallel()

	registry := routes.New()
	if err := registry.Add("projects.list", "/projects"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	view, err := NewDirectDelete(DirectDeleteConfig{
		Delete:       func(ctx context.Context, r *http.Request) error { return nil },
		SuccessRoute: RouteRef{Registry: registry, Name: "projects.list"},
	})
	if err != nil {
		t.Fatalf("NewDirectDelete() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/p1/delete", nil))

	if got := w.Header().Get("Location"); got != "/projects" {
		t.Fatalf("Location = %q, want %q", got, "/projects")
	}
}

func TestDirectDeleteMapsErrors(t *testing.T) {
	t.Parallel()

	view, err := NewDirectDelete(DirectDeleteConfig{
		Delete: func(ctx context.Context, r *http.Request) error {
			return weberror.E(weberror.KindNotFound, "project row missing")
		},
		SuccessURL: "/projects",
	})
	if err != nil {
		t.Fatalf("NewDirectDelete() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/projects/p1/delete", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w.Header().Get("Location") != "" {
		t.Fatal("Location header set after a failed delete")
	}
}

type formRecorder struct {
	states []FormState
}

func (rec *formRecorder) render(w http.ResponseWriter, r *http.Request, state FormState) {
	rec.states = append(rec.states, state)
	status := state.Status
	if status <= 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (rec *formRecorder) last(t *testing.T) FormState {
	t.Helper()
	if len(rec.states) == 0 {
		t.Fatal("render was not called")
	}
	return rec.states[len(rec.states)-1]
}

func createRedirectConfig(rec *formRecorder, registry *routes.Registry) CreateRedirectConfig {
	return CreateRedirectConfig{
		NewForm:   func() Form { return &appendForm{} },
		Save:      func(ctx context.Context, form Form) (string, error) { return "p42", nil },
		Render:    rec.render,
		EditRoute: RouteRef{Registry: registry, Name: "projects.edit", IDParam: "id"},
	}
}

func editRegistry(t *testing.T) *routes.Registry {
	t.Helper()
	registry := routes.New()
	if err := registry.Add("projects.edit", "/projects/{id}/edit"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return registry
}

func TestNewCreateRedirectValidation(t *testing.T) {
	t.Parallel()

	registry := editRegistry(t)

	tests := []struct {
		name   string
		mutate func(*CreateRedirectConfig)
	}{
		{name: "missing_form", mutate: func(cfg *CreateRedirectConfig) { cfg.NewForm = nil }},
		{name: "missing_save", mutate: func(cfg *CreateRedirectConfig) { cfg.Save = nil }},
		{name: "missing_render", mutate: func(cfg *CreateRedirectConfig) { cfg.Render = nil }},
		{name: "missing_edit_route", mutate: func(cfg *CreateRedirectConfig) { cfg.EditRoute = RouteRef{} }},
		{
			name:   "missing_id_param",
			mutate: func(cfg *CreateRedirectConfig) { cfg.EditRoute.IDParam = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := createRedirectConfig(&formRecorder{}, registry)
			tt.mutate(&cfg)
			if _, err := NewCreateRedirect(cfg); !weberror.IsConfig(err) {
				t.Fatalf("NewCreateRedirect() error = %v, want config error", err)
			}
		})
	}
}

func TestCreateRedirectGetRendersForm(t *testing.T) {
	t.Parallel()

	rec := &formRecorder{}
	view, err := NewCreateRedirect(createRedirectConfig(rec, editRegistry(t)))
	if err != nil {
		t.Fatalf("NewCreateRedirect() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/new", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	state := rec.last(t)
	if state.Form == nil {
		t.Fatal("Form = nil, want a fresh form")
	}
	if len(state.Errors) != 0 {
		t.Fatalf("Errors = %v, want none", state.Errors)
	}
}

func TestCreateRedirectSubmitRedirectsToEdit(t *testing.T) {
	t.Parallel()

	rec := &formRecorder{}
	view, err := NewCreateRedirect(createRedirectConfig(rec, editRegistry(t)))
	if err != nil {
		t.Fatalf("NewCreateRedirect() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, postForm("/projects/new", "name=atlas"))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got := w.Header().Get("Location"); got != "/projects/p42/edit" {
		t.Fatalf("Location = %q, want %q", got, "/projects/p42/edit")
	}
}

func TestCreateRedirectInvalidRerenders(t *testing.T) {
	t.Parallel()

	rec := &formRecorder{}
	saveCalls := 0
	cfg := createRedirectConfig(rec, editRegistry(t))
	cfg.Save = func(ctx context.Context, form Form) (string, error) {
		saveCalls++
		return "", nil
	}

	view, err := NewCreateRedirect(cfg)
	if err != nil {
		t.Fatalf("NewCreateRedirect() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, postForm("/projects/new", "name="))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if saveCalls != 0 {
		t.Fatal("save was called for an invalid form")
	}
	state := rec.last(t)
	if got := state.Errors["name"]; got != "name is required" {
		t.Fatalf("Errors[name] = %q, want %q", got, "name is required")
	}
}

func TestCreateRedirectMethodNotAllowed(t *testing.T) {
	t.Parallel()

	view, err := NewCreateRedirect(createRedirectConfig(&formRecorder{}, editRegistry(t)))
	if err != nil {
		t.Fatalf("NewCreateRedirect() error = %v", err)
	}

	w := httptest.NewRecorder()
	view.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/projects/new", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if got := w.Header().Get("Allow"); got != "GET, HEAD, POST, PUT" {
		t.Fatalf("Allow = %q, want %q", got, "GET, HEAD, POST, PUT")
	}
}
