package listview

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/weberror"
)

// ListState is everything a render func needs for one list response. Status
// is the suggested response status; zero means 200.
type ListState[T any] struct {
	Items      []T
	Total      int
	Query      Query
	Form       Form
	FormErrors map[string]string
	Locked     bool
	Parent     any
	Status     int
}

// ListConfig wires a List handler.
//
// Source and Render are required. NewForm turns the plain list into an
// append view: Save and exactly one of SuccessURL or SuccessRoute become
// required. SuccessNotice, when set, is stored as a flash notice before the
// success redirect. Locked disables the form per request. ErrorOnEmpty turns
// an empty list into a 404. OrderBys is the order_by allow-list; its first
// entry is the default. ExpandRelations echo into Query.Expand.
type ListConfig[T any] struct {
	Source          Source[T]
	Render          func(http.ResponseWriter, *http.Request, ListState[T])
	NewForm         func() Form
	Save            func(ctx context.Context, form Form) (string, error)
	SuccessURL      string
	SuccessRoute    RouteRef
	SuccessNotice   flash.Notice
	Locked          func(*http.Request) bool
	ErrorOnEmpty    bool
	Defaults        PageDefaults
	OrderBys        []string
	ExpandRelations []string
}

// List renders an object list and, when a form is configured, appends new
// objects submitted to the same URL. PUT is an alias for POST.
type List[T any] struct {
	source        Source[T]
	render        func(http.ResponseWriter, *http.Request, ListState[T])
	newForm       func() Form
	save          func(ctx context.Context, form Form) (string, error)
	success       func(id string) (string, error)
	successNotice flash.Notice
	locked        func(*http.Request) bool
	errorOnEmpty  bool
	defaults      PageDefaults
	orderBys      []string
	expand        []string
}

// NewList validates the configuration and builds the handler.
func NewList[T any](cfg ListConfig[T]) (*List[T], error) {
	if cfg.Source == nil {
		return nil, weberror.Config("listview", "a list source is required")
	}
	if cfg.Render == nil {
		return nil, weberror.Config("listview", "a render func is required")
	}

	v := &List[T]{
		source:        cfg.Source,
		render:        cfg.Render,
		newForm:       cfg.NewForm,
		save:          cfg.Save,
		successNotice: cfg.SuccessNotice,
		locked:        cfg.Locked,
		errorOnEmpty:  cfg.ErrorOnEmpty,
		defaults:      cfg.Defaults,
	}

	hasURL := strings.TrimSpace(cfg.SuccessURL) != ""
	hasRoute := !cfg.SuccessRoute.isZero()
	if cfg.NewForm == nil {
		if cfg.Save != nil {
			return nil, weberror.Config("listview", "a form constructor is required when a save func is configured")
		}
		if hasURL || hasRoute {
			return nil, weberror.Config("listview", "a success target requires a form constructor")
		}
	} else {
		if cfg.Save == nil {
			return nil, weberror.Config("listview", "a save func is required when a form is configured")
		}
		if hasURL && hasRoute {
			return nil, weberror.Config("listview", "success url and success route are mutually exclusive")
		}
		if !hasURL && !hasRoute {
			return nil, weberror.Config("listview", "a success url or success route is required")
		}
		if hasRoute {
			if err := cfg.SuccessRoute.validate(); err != nil {
				return nil, err
			}
			route := cfg.SuccessRoute
			v.success = route.reverse
		} else {
			target := strings.TrimSpace(cfg.SuccessURL)
			v.success = func(string) (string, error) { return target, nil }
		}
	}

	for _, orderBy := range cfg.OrderBys {
		if strings.TrimSpace(orderBy) == "" {
			return nil, weberror.Config("listview", "order_by values must not be blank")
		}
	}
	v.orderBys = cfg.OrderBys

	for _, relation := range cfg.ExpandRelations {
		name := strings.TrimSpace(relation)
		if name == "" {
			return nil, weberror.Config("listview", "expand relation names must not be blank")
		}
		v.expand = append(v.expand, name)
	}

	return v, nil
}

func (v *List[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.serve(w, r, nil)
}

// serve dispatches by method, resolving the parent first when a resolver is
// provided.
func (v *List[T]) serve(w http.ResponseWriter, r *http.Request, resolveParent func(*http.Request) (any, error)) {
	if w == nil {
		return
	}

	method := requestMethod(r)
	switch method {
	case http.MethodGet:
	case http.MethodPost, http.MethodPut:
		if v.newForm == nil {
			v.methodNotAllowed(w)
			return
		}
	default:
		v.methodNotAllowed(w)
		return
	}

	var parent any
	if resolveParent != nil {
		resolved, err := resolveParent(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		parent = resolved
		r = withParent(r, parent)
	}

	if method == http.MethodGet {
		v.handleList(w, r, parent)
		return
	}
	v.handleAppend(w, r, parent)
}

func (v *List[T]) methodNotAllowed(w http.ResponseWriter) {
	allow := "GET, HEAD"
	if v.newForm != nil {
		allow = "GET, HEAD, POST, PUT"
	}
	w.Header().Set("Allow", allow)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (v *List[T]) handleList(w http.ResponseWriter, r *http.Request, parent any) {
	q, err := v.parseQuery(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := v.source.List(httpx.RequestContext(r), q)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := v.checkEmpty(res); err != nil {
		httpx.WriteError(w, err)
		return
	}

	locked := v.isLocked(r)
	var form Form
	if v.newForm != nil && !locked {
		form = v.buildForm(r, parent)
	}
	v.render(w, r, ListState[T]{
		Items:  res.Items,
		Total:  res.TotalCount,
		Query:  q,
		Form:   form,
		Locked: locked,
		Parent: parent,
	})
}

func (v *List[T]) handleAppend(w http.ResponseWriter, r *http.Request, parent any) {
	q, err := v.parseQuery(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := v.source.List(httpx.RequestContext(r), q)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := v.checkEmpty(res); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if v.isLocked(r) {
		v.render(w, r, ListState[T]{
			Items:  res.Items,
			Total:  res.TotalCount,
			Query:  q,
			Locked: true,
			Parent: parent,
		})
		return
	}

	form := v.buildForm(r, parent)
	if err := form.Bind(r); err != nil {
		if !isInvalidInput(err) {
			httpx.WriteError(w, err)
			return
		}
		v.render(w, r, ListState[T]{
			Items:      res.Items,
			Total:      res.TotalCount,
			Query:      q,
			Form:       form,
			FormErrors: fieldErrors(form, err),
			Parent:     parent,
			Status:     http.StatusUnprocessableEntity,
		})
		return
	}

	id, err := v.save(httpx.RequestContext(r), form)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	target, err := v.success(id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if v.successNotice.Key != "" {
		flash.Write(w, r, v.successNotice)
	}
	httpx.WriteRedirect(w, r, target)
}

func (v *List[T]) parseQuery(r *http.Request) (Query, error) {
	q := Query{Page: 1, Expand: v.expand}

	q.Filter = strings.TrimSpace(r.FormValue("filter"))
	if q.Filter == "" {
		q.Filter = strings.TrimSpace(r.FormValue("q"))
	}

	orderBy, err := NormalizeOrderBy(strings.TrimSpace(r.FormValue("order_by")), v.orderBys)
	if err != nil {
		return Query{}, err
	}
	q.OrderBy = orderBy

	q.Page = positiveInt(r.FormValue("page"), 1)
	q.PageSize = v.defaults.Clamp(positiveInt(r.FormValue("page_size"), 0))
	return q, nil
}

func (v *List[T]) checkEmpty(res Result[T]) error {
	if !v.errorOnEmpty {
		return nil
	}
	if res.TotalCount > 0 || len(res.Items) > 0 {
		return nil
	}
	return weberror.EK(weberror.KindNotFound, "list.empty", "empty list")
}

func (v *List[T]) isLocked(r *http.Request) bool {
	return v.locked != nil && v.locked(r)
}

func (v *List[T]) buildForm(r *http.Request, parent any) Form {
	form := v.newForm()
	applyFormContext(form, identity.FromRequest(r), parent)
	return form
}

// DetailListConfig wires a DetailList handler. ResolveParent is required and
// runs before any list handling; the parent lands in ListState and in
// ParentAware forms.
type DetailListConfig[T any] struct {
	List          ListConfig[T]
	ResolveParent func(*http.Request) (any, error)
}

// DetailList is a List scoped under a parent object.
type DetailList[T any] struct {
	list          *List[T]
	resolveParent func(*http.Request) (any, error)
}

// NewDetailList validates the configuration and builds the handler.
func NewDetailList[T any](cfg DetailListConfig[T]) (*DetailList[T], error) {
	if cfg.ResolveParent == nil {
		return nil, weberror.Config("listview", "a parent resolver is required")
	}
	list, err := NewList(cfg.List)
	if err != nil {
		return nil, err
	}
	return &DetailList[T]{list: list, resolveParent: cfg.ResolveParent}, nil
}

func (v *DetailList[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.list.serve(w, r, v.resolveParent)
}

func requestMethod(r *http.Request) string {
	if r == nil {
		return ""
	}
	if r.Method == http.MethodHead {
		return http.MethodGet
	}
	return r.Method
}

func positiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
