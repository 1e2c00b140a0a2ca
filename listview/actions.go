package listview

import (
	"context"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/weberror"
)

// DirectDeleteConfig wires a DirectDelete handler. Delete and exactly one of
// SuccessURL or SuccessRoute are required. SuccessNotice, when set, is stored
// as a flash notice before the redirect.
type DirectDeleteConfig struct {
	Delete        func(ctx context.Context, r *http.Request) error
	SuccessURL    string
	SuccessRoute  RouteRef
	SuccessNotice flash.Notice
}

// DirectDelete deletes an object without rendering. GET, POST, and DELETE
// all perform the deletion and redirect to the success URL.
type DirectDelete struct {
	delete        func(ctx context.Context, r *http.Request) error
	success       func() (string, error)
	successNotice flash.Notice
}

// NewDirectDelete validates the configuration and builds the handler.
func NewDirectDelete(cfg DirectDeleteConfig) (*DirectDelete, error) {
	if cfg.Delete == nil {
		return nil, weberror.Config("listview", "a delete func is required")
	}

	v := &DirectDelete{delete: cfg.Delete, successNotice: cfg.SuccessNotice}

	hasURL := strings.TrimSpace(cfg.SuccessURL) != ""
	hasRoute := !cfg.SuccessRoute.isZero()
	switch {
	case hasURL && hasRoute:
		return nil, weberror.Config("listview", "success url and success route are mutually exclusive")
	case hasURL:
		target := strings.TrimSpace(cfg.SuccessURL)
		v.success = func() (string, error) { return target, nil }
	case hasRoute:
		if err := cfg.SuccessRoute.validate(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(cfg.SuccessRoute.IDParam) != "" {
			return nil, weberror.Config("listview", "a delete success route cannot take an id param")
		}
		route := cfg.SuccessRoute
		v.success = func() (string, error) { return route.reverse("") }
	default:
		return nil, weberror.Config("listview", "a success url or success route is required")
	}

	return v, nil
}

func (v *DirectDelete) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	switch requestMethod(r) {
	case http.MethodGet, http.MethodPost, http.MethodDelete:
	default:
		w.Header().Set("Allow", "DELETE, GET, HEAD, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := v.delete(httpx.RequestContext(r), r); err != nil {
		httpx.WriteError(w, err)
		return
	}
	target, err := v.success()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if v.successNotice.Key != "" {
		flash.Write(w, r, v.successNotice)
	}
	httpx.WriteRedirect(w, r, target)
}

// FormState is everything a render func needs for one standalone form
// response. Status is the suggested response status; zero means 200.
type FormState struct {
	Form   Form
	Errors map[string]string
	Status int
}

// CreateRedirectConfig wires a CreateRedirect handler. NewForm, Save,
// Render, and EditRoute (with an id param) are required. SuccessNotice, when
// set, is stored as a flash notice before the redirect.
type CreateRedirectConfig struct {
	NewForm       func() Form
	Save          func(ctx context.Context, form Form) (string, error)
	Render        func(http.ResponseWriter, *http.Request, FormState)
	EditRoute     RouteRef
	SuccessNotice flash.Notice
}

// CreateRedirect renders a create form and redirects to the created
// object's edit page after a successful save. PUT is an alias for POST.
type CreateRedirect struct {
	newForm       func() Form
	save          func(ctx context.Context, form Form) (string, error)
	render        func(http.ResponseWriter, *http.Request, FormState)
	editRoute     RouteRef
	successNotice flash.Notice
}

// NewCreateRedirect validates the configuration and builds the handler.
func NewCreateRedirect(cfg CreateRedirectConfig) (*CreateRedirect, error) {
	if cfg.NewForm == nil {
		return nil, weberror.Config("listview", "a form constructor is required")
	}
	if cfg.Save == nil {
		return nil, weberror.Config("listview", "a save func is required")
	}
	if cfg.Render == nil {
		return nil, weberror.Config("listview", "a render func is required")
	}
	if cfg.EditRoute.isZero() {
		return nil, weberror.Config("listview", "no url to reverse, provide an edit route")
	}
	if err := cfg.EditRoute.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.EditRoute.IDParam) == "" {
		return nil, weberror.Config("listview", "an edit route id param is required")
	}
	return &CreateRedirect{
		newForm:       cfg.NewForm,
		save:          cfg.Save,
		render:        cfg.Render,
		editRoute:     cfg.EditRoute,
		successNotice: cfg.SuccessNotice,
	}, nil
}

func (v *CreateRedirect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	switch requestMethod(r) {
	case http.MethodGet:
		v.render(w, r, FormState{Form: v.buildForm(r)})
	case http.MethodPost, http.MethodPut:
		v.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (v *CreateRedirect) handleSubmit(w http.ResponseWriter, r *http.Request) {
	form := v.buildForm(r)
	if err := form.Bind(r); err != nil {
		if !isInvalidInput(err) {
			httpx.WriteError(w, err)
			return
		}
		v.render(w, r, FormState{
			Form:   form,
			Errors: fieldErrors(form, err),
			Status: http.StatusUnprocessableEntity,
		})
		return
	}

	id, err := v.save(httpx.RequestContext(r), form)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	target, err := v.editRoute.reverse(id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if v.successNotice.Key != "" {
		flash.Write(w, r, v.successNotice)
	}
	httpx.WriteRedirect(w, r, target)
}

func (v *CreateRedirect) buildForm(r *http.Request) Form {
	form := v.newForm()
	applyFormContext(form, identity.FromRequest(r), nil)
	return form
}
