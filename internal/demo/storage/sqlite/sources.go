package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/listview"
)

// ProjectSource adapts the store to the project list scaffold.
type ProjectSource struct {
	store *Store
}

var _ listview.Source[storage.Project] = ProjectSource{}

// Projects returns a list source over all projects.
func (s *Store) Projects() ProjectSource {
	return ProjectSource{store: s}
}

// List implements listview.Source.
func (src ProjectSource) List(ctx context.Context, query listview.Query) (listview.Result[storage.Project], error) {
	return src.store.ListProjects(ctx, query)
}

// TaskSource adapts the store to the task list scaffold. Queries are scoped
// to the project resolved as the request parent.
type TaskSource struct {
	store *Store
}

var _ listview.Source[storage.Task] = TaskSource{}

// Tasks returns a list source over one resolved project's tasks.
func (s *Store) Tasks() TaskSource {
	return TaskSource{store: s}
}

// List implements listview.Source.
func (src TaskSource) List(ctx context.Context, query listview.Query) (listview.Result[storage.Task], error) {
	parent, ok := listview.ParentFromContext(ctx)
	if !ok {
		return listview.Result[storage.Task]{}, errors.New("task list requires a resolved project parent")
	}
	project, ok := parent.(storage.Project)
	if !ok {
		return listview.Result[storage.Task]{}, fmt.Errorf("task list parent must be a project, got %T", parent)
	}
	return src.store.ListTasks(ctx, project.ID, query)
}
