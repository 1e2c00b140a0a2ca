package demo

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/louisbranch/viewkit/download"
	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/guard"
	"github.com/louisbranch/viewkit/htmx"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/identity/token"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/internal/demo/storage/sqlite"
	"github.com/louisbranch/viewkit/internal/demo/views"
	"github.com/louisbranch/viewkit/listview"
	"github.com/louisbranch/viewkit/render"
	"github.com/louisbranch/viewkit/requestmeta"
	"github.com/louisbranch/viewkit/routes"
	"github.com/louisbranch/viewkit/tracing"
)

// projectOrderBys lists the orderings both the HTML list and the JSON API
// accept.
var projectOrderBys = []string{"created_at", "name", "severity"}

// app bundles the dependencies the demo handlers share.
type app struct {
	store      storage.Store
	registry   *routes.Registry
	renderer   *render.Renderer
	signer     *token.Signer
	sessionTTL time.Duration
}

// newHandler wires every demo route onto a ServeMux and wraps it with the
// shared middleware stack.
func newHandler(store *sqlite.Store, cfg Config) (http.Handler, error) {
	pub, priv, err := sessionKeyPair(cfg.SessionKey)
	if err != nil {
		return nil, err
	}
	verifier, err := token.NewVerifier(token.Config{
		Issuer:   sessionIssuer,
		Audience: sessionAudience,
		Key:      pub,
	})
	if err != nil {
		return nil, fmt.Errorf("build session verifier: %w", err)
	}

	a := &app{
		store:    store,
		registry: routes.New(),
		signer: &token.Signer{
			Issuer:   sessionIssuer,
			Audience: sessionAudience,
			Key:      priv,
		},
		sessionTTL: cfg.SessionTTL,
	}

	named := []struct{ name, pattern string }{
		{"home", "/{$}"},
		{"login", "/auth/login"},
		{"logout", "/auth/logout"},
		{"projects.index", "/projects"},
		{"projects.new", "/projects/new"},
		{"projects.show", "/projects/{projectID}"},
		{"projects.edit", "/projects/{projectID}/edit"},
		{"projects.delete", "/projects/{projectID}/delete"},
		{"reports", "/reports"},
		{"reports.csv", "/reports/export.csv"},
		{"reports.xls", "/reports/export.xls"},
		{"admin", "/admin"},
		{"api.projects", "/api/projects"},
	}
	for _, route := range named {
		if err := a.registry.Add(route.name, route.pattern); err != nil {
			return nil, err
		}
	}

	a.renderer = render.New(
		render.WithLayout(views.Layout{
			Nav: []views.NavLink{
				{Label: "Home", Path: a.path("home")},
				{Label: "Projects", Path: a.path("projects.index")},
				{Label: "Reports", Path: a.path("reports")},
				{Label: "Admin", Path: a.path("admin"), StaffOnly: true},
			},
			LoginPath:  a.path("login"),
			LogoutPath: a.path("logout"),
		}),
		render.WithLanguages(language.English, language.MustParse("pt-BR")),
		render.WithHeadlineFunc(func(*http.Request) string { return "Project Tracker" }),
	)

	policy := guard.Policy{LoginURL: a.path("login")}
	apiPolicy := guard.Policy{Forbid: true}

	requireLogin := guard.RequireLogin(policy)
	requireAnonymous := guard.RequireAnonymous(a.path("projects.index"), policy)
	requireStaff := guard.RequireStaff(policy)
	requireReports, err := guard.RequirePermission("reports.view", policy)
	if err != nil {
		return nil, err
	}
	requireAPILogin := guard.RequireLogin(apiPolicy)

	projectList, err := listview.NewList(listview.ListConfig[storage.Project]{
		Source:          store.Projects(),
		Render:          a.renderProjectList,
		NewForm:         newProjectForm,
		Save:            a.saveProject,
		SuccessRoute:    listview.RouteRef{Registry: a.registry, Name: "projects.index"},
		SuccessNotice:   flash.NoticeSuccess("projects.created"),
		Defaults:        listview.PageDefaults{Size: 10, MaxSize: 50},
		OrderBys:        projectOrderBys,
		ExpandRelations: []string{"tasks"},
	})
	if err != nil {
		return nil, err
	}

	taskList, err := listview.NewDetailList(listview.DetailListConfig[storage.Task]{
		List: listview.ListConfig[storage.Task]{
			Source:        store.Tasks(),
			Render:        a.renderTaskList,
			NewForm:       newTaskForm,
			Save:          a.saveTask,
			SuccessRoute:  listview.RouteRef{Registry: a.registry, Name: "projects.show", IDParam: "projectID"},
			SuccessNotice: flash.NoticeSuccess("tasks.created"),
			Locked:        archivedProjectLock,
			Defaults:      listview.PageDefaults{Size: 20, MaxSize: 100},
			OrderBys:      []string{"created_at", "title"},
		},
		ResolveParent: a.resolveProject,
	})
	if err != nil {
		return nil, err
	}

	projectCreate, err := listview.NewCreateRedirect(listview.CreateRedirectConfig{
		NewForm:       newProjectForm,
		Save:          a.saveProject,
		Render:        a.renderProjectCreate,
		EditRoute:     listview.RouteRef{Registry: a.registry, Name: "projects.edit", IDParam: "projectID"},
		SuccessNotice: flash.NoticeSuccess("projects.created"),
	})
	if err != nil {
		return nil, err
	}

	projectDelete, err := listview.NewDirectDelete(listview.DirectDeleteConfig{
		Delete:        a.deleteProject,
		SuccessRoute:  listview.RouteRef{Registry: a.registry, Name: "projects.index"},
		SuccessNotice: flash.NoticeSuccess("projects.deleted"),
	})
	if err != nil {
		return nil, err
	}

	reportCSV, err := download.CSV(a.severityReport)
	if err != nil {
		return nil, err
	}
	reportXLS, err := download.Excel(a.severityReport)
	if err != nil {
		return nil, err
	}

	projectEdit := htmx.MethodHandler{
		Get:  a.handleProjectEditPage,
		Post: a.handleProjectEditSubmit,
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+a.pattern("home"), http.HandlerFunc(a.handleHome))
	mux.Handle("GET "+a.pattern("login"), httpx.Chain(http.HandlerFunc(a.handleLoginPage), requireAnonymous))
	mux.Handle("POST "+a.pattern("login"), httpx.Chain(http.HandlerFunc(a.handleLoginSubmit), requireAnonymous))
	mux.Handle("POST "+a.pattern("logout"), http.HandlerFunc(a.handleLogout))
	mux.Handle(a.pattern("projects.index"), httpx.Chain(projectList, requireLogin))
	mux.Handle(a.pattern("projects.new"), httpx.Chain(projectCreate, requireLogin))
	mux.Handle(a.pattern("projects.show"), httpx.Chain(taskList, requireLogin))
	mux.Handle(a.pattern("projects.edit"), httpx.Chain(projectEdit, requireLogin))
	mux.Handle("POST "+a.pattern("projects.delete"), httpx.Chain(projectDelete, requireLogin))
	mux.Handle("GET "+a.pattern("reports"), httpx.Chain(http.HandlerFunc(a.handleReports), requireReports))
	mux.Handle("GET "+a.pattern("reports.csv"), httpx.Chain(reportCSV, requireReports))
	mux.Handle("GET "+a.pattern("reports.xls"), httpx.Chain(reportXLS, requireReports))
	mux.Handle("GET "+a.pattern("admin"), httpx.Chain(http.HandlerFunc(a.handleAdmin), requireStaff))
	mux.Handle("GET "+a.pattern("api.projects"), httpx.Chain(http.HandlerFunc(a.handleAPIListProjects), requireAPILogin))
	mux.Handle("POST "+a.pattern("api.projects"), httpx.Chain(http.HandlerFunc(a.handleAPICreateProject), requireAPILogin))
	mux.HandleFunc("GET /healthz", a.handleHealthz)

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		tracing.Middleware(serviceName),
		identity.Middleware(token.Resolver(verifier, "")),
		guard.RequireSameOrigin(requestmeta.SchemePolicy{}),
	), nil
}

// pattern returns the ServeMux pattern registered under name.
func (a *app) pattern(name string) string {
	pattern, _ := a.registry.Pattern(name)
	return pattern
}

// path reverses a fixed route. Every reversed name is registered during
// wiring, so the root fallback is unreachable in practice.
func (a *app) path(name string) string {
	reversed, err := a.registry.Reverse(name, nil)
	if err != nil {
		return "/"
	}
	return reversed
}

func (a *app) pathID(name, id string) string {
	reversed, err := a.registry.ReverseArgs(name, id)
	if err != nil {
		return "/"
	}
	return reversed
}

// writePage renders a full page. WritePage responds with a 500 on render
// failures, so the error is only logged here.
func (a *app) writePage(w http.ResponseWriter, r *http.Request, page render.Page) {
	if err := a.renderer.WritePage(w, r, page); err != nil {
		log.Printf("demo: render %s: %v", r.URL.Path, err)
	}
}

func (a *app) handleHome(w http.ResponseWriter, r *http.Request) {
	a.writePage(w, r, render.Page{
		Headline: "Project Tracker",
		Fragment: views.Home(identity.FromRequest(r), a.path("projects.index")),
	})
}

func (a *app) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = render.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
