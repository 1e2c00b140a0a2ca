// Package storage defines persistence contracts for the demo project tracker.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/viewkit/listview"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Project stores one tracked project.
type Project struct {
	ID        string
	Name      string
	OwnerID   string
	Severity  int
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	// Tasks is populated when a list query expands the tasks relation.
	Tasks []Task
}

// Task stores one unit of work inside a project.
type Task struct {
	ID        string
	ProjectID string
	Title     string
	Done      bool
	CreatedAt time.Time
}

// Stats stores aggregate counts for the admin screen.
type Stats struct {
	Projects         int64
	ArchivedProjects int64
	Tasks            int64
	DoneTasks        int64
}

// Store persists projects and their tasks.
type Store interface {
	CreateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	UpdateProject(ctx context.Context, project Project) error
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context, query listview.Query) (listview.Result[Project], error)
	CreateTask(ctx context.Context, task Task) (Task, error)
	ListTasks(ctx context.Context, projectID string, query listview.Query) (listview.Result[Task], error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
