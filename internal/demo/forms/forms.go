// Package forms defines the bound form types for the demo project tracker.
package forms

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/weberror"
)

// Field limits shared by the HTML forms and the JSON API.
const (
	MaxNameLength = 120
	MaxSeverity   = 5

	maxTitleLength = 200
)

// Project collects the fields for creating or editing a project. The signed-in
// principal becomes the project owner on create.
type Project struct {
	Name     string
	Severity int
	Archived bool

	Principal identity.Principal
	fields    map[string]string
}

// Bind parses and validates the submitted project fields.
func (f *Project) Bind(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return weberror.EK(weberror.KindInvalidInput, "projects.form_invalid", "invalid form encoding")
	}
	f.fields = make(map[string]string)

	f.Name = strings.TrimSpace(r.PostFormValue("name"))
	if f.Name == "" {
		f.fields["name"] = "projects.name_required"
	} else if len(f.Name) > MaxNameLength {
		f.fields["name"] = "projects.name_too_long"
	}

	if raw := strings.TrimSpace(r.PostFormValue("severity")); raw != "" {
		severity, err := strconv.Atoi(raw)
		if err != nil || severity < 0 || severity > MaxSeverity {
			f.fields["severity"] = "projects.severity_range"
		} else {
			f.Severity = severity
		}
	}

	f.Archived = checkboxValue(r.PostFormValue("archived"))

	if len(f.fields) > 0 {
		return weberror.EK(weberror.KindInvalidInput, "projects.form_invalid", "project form failed validation")
	}
	return nil
}

// SetPrincipal records the signed-in principal before binding.
func (f *Project) SetPrincipal(p identity.Principal) {
	f.Principal = p
}

// Fields returns per-field validation message keys after a failed Bind.
func (f *Project) Fields() map[string]string {
	return f.fields
}

// Record builds the storage record for the bound fields.
func (f *Project) Record() storage.Project {
	return storage.Project{
		Name:     f.Name,
		OwnerID:  f.Principal.ID,
		Severity: f.Severity,
		Archived: f.Archived,
	}
}

// FromProject prefills the form with an existing project's editable fields.
func FromProject(project storage.Project) *Project {
	return &Project{
		Name:     project.Name,
		Severity: project.Severity,
		Archived: project.Archived,
	}
}

// Task collects the fields for appending a task to a project. The resolved
// parent project scopes the new task.
type Task struct {
	Title string

	Project storage.Project
	fields  map[string]string
}

// Bind parses and validates the submitted task fields.
func (f *Task) Bind(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return weberror.EK(weberror.KindInvalidInput, "tasks.form_invalid", "invalid form encoding")
	}
	f.fields = make(map[string]string)

	f.Title = strings.TrimSpace(r.PostFormValue("title"))
	if f.Title == "" {
		f.fields["title"] = "tasks.title_required"
	} else if len(f.Title) > maxTitleLength {
		f.fields["title"] = "tasks.title_too_long"
	}

	if len(f.fields) > 0 {
		return weberror.EK(weberror.KindInvalidInput, "tasks.form_invalid", "task form failed validation")
	}
	return nil
}

// SetParent records the resolved parent project before binding.
func (f *Task) SetParent(parent any) {
	if project, ok := parent.(storage.Project); ok {
		f.Project = project
	}
}

// Fields returns per-field validation message keys after a failed Bind.
func (f *Task) Fields() map[string]string {
	return f.fields
}

// Record builds the storage record for the bound fields.
func (f *Task) Record() storage.Task {
	return storage.Task{
		ProjectID: f.Project.ID,
		Title:     f.Title,
	}
}

func checkboxValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1":
		return true
	}
	return false
}
