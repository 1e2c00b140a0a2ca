package demo

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/internal/demo/forms"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/listview"
	"github.com/louisbranch/viewkit/render"
	"github.com/louisbranch/viewkit/weberror"
)

const (
	apiDefaultPageSize = 25
	apiMaxPageSize     = 100
	apiMaxBodyBytes    = 1 << 20
)

// apiProject is the JSON shape of a project record.
type apiProject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Severity  int       `json:"severity"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAPIProject(project storage.Project) apiProject {
	return apiProject{
		ID:        project.ID,
		Name:      project.Name,
		Owner:     project.OwnerID,
		Severity:  project.Severity,
		Archived:  project.Archived,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	}
}

// handleAPIListProjects serves the project list as JSON. It accepts the same
// filter, order_by, page, and page_size parameters as the HTML list, and a
// pretty parameter for indented output.
func (a *app) handleAPIListProjects(w http.ResponseWriter, r *http.Request) {
	q := listview.Query{Filter: strings.TrimSpace(r.FormValue("filter"))}
	if q.Filter == "" {
		q.Filter = strings.TrimSpace(r.FormValue("q"))
	}

	orderBy, err := listview.NormalizeOrderBy(strings.TrimSpace(r.FormValue("order_by")), projectOrderBys)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	q.OrderBy = orderBy
	q.Page = positiveQueryInt(r.FormValue("page"), 1)
	defaults := listview.PageDefaults{Size: apiDefaultPageSize, MaxSize: apiMaxPageSize}
	q.PageSize = defaults.Clamp(positiveQueryInt(r.FormValue("page_size"), 0))

	res, err := a.store.ListProjects(httpx.RequestContext(r), q)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	payload := struct {
		Projects   []apiProject `json:"projects"`
		TotalCount int          `json:"total_count"`
	}{Projects: make([]apiProject, 0, len(res.Items)), TotalCount: res.TotalCount}
	for _, project := range res.Items {
		payload.Projects = append(payload.Projects, toAPIProject(project))
	}
	if err := (render.JSON{}).WritePretty(w, r, http.StatusOK, payload); err != nil {
		log.Printf("demo: write project list json: %v", err)
	}
}

// handleAPICreateProject creates a project from a JSON body. The signed-in
// principal becomes the owner.
func (a *app) handleAPICreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Severity int    `json:"severity"`
		Archived bool   `json:"archived"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, apiMaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeAPIError(w, weberror.EK(weberror.KindInvalidInput, "projects.form_invalid", "invalid json body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		writeAPIError(w, weberror.EK(weberror.KindInvalidInput, "projects.name_required", "a project name is required"))
		return
	case len(name) > forms.MaxNameLength:
		writeAPIError(w, weberror.EK(weberror.KindInvalidInput, "projects.name_too_long", "the project name is too long"))
		return
	case req.Severity < 0 || req.Severity > forms.MaxSeverity:
		writeAPIError(w, weberror.EK(weberror.KindInvalidInput, "projects.severity_range", "severity is out of range"))
		return
	}

	created, err := a.store.CreateProject(httpx.RequestContext(r), storage.Project{
		Name:     name,
		OwnerID:  identity.FromRequest(r).ID,
		Severity: req.Severity,
		Archived: req.Archived,
	})
	if err != nil {
		writeAPIError(w, projectStoreError(err))
		return
	}
	if err := render.WriteJSON(w, http.StatusCreated, toAPIProject(created)); err != nil {
		log.Printf("demo: write created project json: %v", err)
	}
}

// writeAPIError writes a JSON error body carrying the error's stable key when
// it has one.
func writeAPIError(w http.ResponseWriter, err error) {
	message := weberror.LocalizationKey(err)
	if message == "" {
		message = weberror.PublicMessage(nil, err)
	}
	_ = httpx.WriteJSONError(w, weberror.HTTPStatus(err), message)
}

func positiveQueryInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
