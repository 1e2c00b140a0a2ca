package demo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/flash"
	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/internal/demo/forms"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/internal/demo/views"
	"github.com/louisbranch/viewkit/listview"
	"github.com/louisbranch/viewkit/render"
	"github.com/louisbranch/viewkit/weberror"
)

func newProjectForm() listview.Form { return &forms.Project{} }

func newTaskForm() listview.Form { return &forms.Task{} }

// projectStoreError converts storage sentinels into typed web errors.
func projectStoreError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return weberror.EK(weberror.KindNotFound, "projects.not_found", "project not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		return weberror.EK(weberror.KindConflict, "projects.name_taken", "a project with this name already exists")
	}
	return err
}

func (a *app) renderProjectList(w http.ResponseWriter, r *http.Request, state listview.ListState[storage.Project]) {
	a.writePage(w, r, render.Page{
		Headline: "Projects",
		Status:   state.Status,
		Fragment: views.ProjectList(state, a.projectPaths()),
	})
}

func (a *app) projectPaths() views.ProjectPaths {
	return views.ProjectPaths{
		Index:  a.path("projects.index"),
		New:    a.path("projects.new"),
		Show:   func(id string) string { return a.pathID("projects.show", id) },
		Edit:   func(id string) string { return a.pathID("projects.edit", id) },
		Delete: func(id string) string { return a.pathID("projects.delete", id) },
	}
}

func (a *app) saveProject(ctx context.Context, form listview.Form) (string, error) {
	pf, ok := form.(*forms.Project)
	if !ok {
		return "", fmt.Errorf("unexpected project form %T", form)
	}
	created, err := a.store.CreateProject(ctx, pf.Record())
	if err != nil {
		return "", projectStoreError(err)
	}
	return created.ID, nil
}

// resolveProject loads the project named by the request path. The task list
// scopes its queries to the result.
func (a *app) resolveProject(r *http.Request) (any, error) {
	project, err := a.projectFromPath(r)
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (a *app) projectFromPath(r *http.Request) (storage.Project, error) {
	id := strings.TrimSpace(r.PathValue("projectID"))
	if id == "" {
		return storage.Project{}, weberror.EK(weberror.KindInvalidInput, "projects.invalid_id", "a project id is required")
	}
	project, err := a.store.GetProject(httpx.RequestContext(r), id)
	if err != nil {
		return storage.Project{}, projectStoreError(err)
	}
	return project, nil
}

// archivedProjectLock hides the task append form on archived projects.
func archivedProjectLock(r *http.Request) bool {
	parent, ok := listview.ParentFromContext(r.Context())
	if !ok {
		return false
	}
	project, ok := parent.(storage.Project)
	return ok && project.Archived
}

func (a *app) renderTaskList(w http.ResponseWriter, r *http.Request, state listview.ListState[storage.Task]) {
	project, _ := state.Parent.(storage.Project)
	a.writePage(w, r, render.Page{
		Headline: project.Name,
		Status:   state.Status,
		Fragment: views.TaskList(project, state,
			a.pathID("projects.show", project.ID),
			a.pathID("projects.edit", project.ID)),
	})
}

func (a *app) saveTask(ctx context.Context, form listview.Form) (string, error) {
	tf, ok := form.(*forms.Task)
	if !ok {
		return "", fmt.Errorf("unexpected task form %T", form)
	}
	created, err := a.store.CreateTask(ctx, tf.Record())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", weberror.EK(weberror.KindNotFound, "projects.not_found", "project not found")
		}
		return "", err
	}
	// The success route reverses the project page, so hand it the owner id.
	return created.ProjectID, nil
}

func (a *app) renderProjectCreate(w http.ResponseWriter, r *http.Request, state listview.FormState) {
	a.writePage(w, r, render.Page{
		Headline: "New project",
		Status:   state.Status,
		Fragment: views.ProjectCreate(state, a.path("projects.new")),
	})
}

func (a *app) handleProjectEditPage(w http.ResponseWriter, r *http.Request) {
	project, err := a.projectFromPath(r)
	if err != nil {
		a.renderer.WriteError(w, r, err)
		return
	}
	a.writeProjectEditPage(w, r, project, nil, nil, 0)
}

func (a *app) handleProjectEditSubmit(w http.ResponseWriter, r *http.Request) {
	project, err := a.projectFromPath(r)
	if err != nil {
		a.renderer.WriteError(w, r, err)
		return
	}

	form := &forms.Project{}
	form.SetPrincipal(identity.FromRequest(r))
	if err := form.Bind(r); err != nil {
		var webErr weberror.Error
		if !errors.As(err, &webErr) || webErr.Kind != weberror.KindInvalidInput {
			a.renderer.WriteError(w, r, err)
			return
		}
		a.writeProjectEditPage(w, r, project, form, form.Fields(), http.StatusUnprocessableEntity)
		return
	}

	updated := project
	updated.Name = form.Name
	updated.Severity = form.Severity
	updated.Archived = form.Archived
	if err := a.store.UpdateProject(httpx.RequestContext(r), updated); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fields := map[string]string{"name": "projects.name_taken"}
			a.writeProjectEditPage(w, r, project, form, fields, http.StatusUnprocessableEntity)
			return
		}
		a.renderer.WriteError(w, r, projectStoreError(err))
		return
	}

	flash.Write(w, r, flash.NoticeSuccess("projects.updated"))
	httpx.WriteRedirect(w, r, a.pathID("projects.show", project.ID))
}

func (a *app) writeProjectEditPage(w http.ResponseWriter, r *http.Request, project storage.Project, form *forms.Project, fields map[string]string, status int) {
	a.writePage(w, r, render.Page{
		Headline: "Edit project",
		Status:   status,
		Fragment: views.ProjectEdit(project, form, fields, a.pathID("projects.edit", project.ID)),
	})
}

func (a *app) deleteProject(ctx context.Context, r *http.Request) error {
	id := strings.TrimSpace(r.PathValue("projectID"))
	if id == "" {
		return weberror.EK(weberror.KindInvalidInput, "projects.invalid_id", "a project id is required")
	}
	if err := a.store.DeleteProject(ctx, id); err != nil {
		return projectStoreError(err)
	}
	return nil
}
