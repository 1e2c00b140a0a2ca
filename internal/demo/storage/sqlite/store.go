// Package sqlite implements the demo storage contracts on SQLite.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/viewkit/internal/demo/migrate"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/internal/demo/storage/sqlite/migrations"
	"github.com/louisbranch/viewkit/listfilter"
	"github.com/louisbranch/viewkit/listview"
	"github.com/louisbranch/viewkit/weberror"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists projects and tasks in a SQLite database.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the SQLite database at path and applies the embedded
// migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := migrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateProject inserts a project, assigning its id and timestamps when
// unset. A project with a duplicate name returns storage.ErrAlreadyExists.
func (s *Store) CreateProject(ctx context.Context, project storage.Project) (storage.Project, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Project{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return storage.Project{}, err
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return storage.Project{}, errors.New("project name is required")
	}
	project.OwnerID = strings.TrimSpace(project.OwnerID)
	if project.OwnerID == "" {
		return storage.Project{}, errors.New("project owner is required")
	}
	if project.Severity < 0 {
		return storage.Project{}, errors.New("project severity must not be negative")
	}
	if project.ID == "" {
		id, err := newID()
		if err != nil {
			return storage.Project{}, err
		}
		project.ID = id
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO projects
		(id, name, owner_id, severity, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, project.OwnerID, project.Severity,
		boolToInt(project.Archived), timeToText(project.CreatedAt), timeToText(project.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.Project{}, storage.ErrAlreadyExists
		}
		return storage.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

// GetProject loads one project by id.
func (s *Store) GetProject(ctx context.Context, id string) (storage.Project, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Project{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return storage.Project{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Project{}, errors.New("project id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT id, name, owner_id, severity, archived, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Project{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Project{}, fmt.Errorf("select project: %w", err)
	}
	return project, nil
}

// UpdateProject rewrites a project's editable fields. The owner is fixed at
// creation and is not updated.
func (s *Store) UpdateProject(ctx context.Context, project storage.Project) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	project.ID = strings.TrimSpace(project.ID)
	if project.ID == "" {
		return errors.New("project id is required")
	}
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return errors.New("project name is required")
	}
	if project.Severity < 0 {
		return errors.New("project severity must not be negative")
	}

	res, err := s.sqlDB.ExecContext(ctx, `UPDATE projects
		SET name = ?, severity = ?, archived = ?, updated_at = ?
		WHERE id = ?`,
		project.Name, project.Severity, boolToInt(project.Archived),
		timeToText(time.Now().UTC()), project.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("update project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project rows: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project together with its tasks.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if s == nil || s.sqlDB == nil {
		return errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("project id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete project tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete project rows: %w", err)
	}
	if rows == 0 {
		_ = tx.Rollback()
		return storage.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project: %w", err)
	}
	return nil
}

var projectFilterSchema = listfilter.Schema{Fields: []listfilter.Field{
	{Name: "name", Type: listfilter.TypeString},
	{Name: "owner", Type: listfilter.TypeString, Column: "owner_id"},
	{Name: "severity", Type: listfilter.TypeInt},
	{Name: "archived", Type: listfilter.TypeBool},
	{Name: "created_at", Type: listfilter.TypeTimestamp},
}}

// ListProjects returns one page of projects matching the query filter, plus
// the pre-pagination total. Expanding "tasks" loads each project's tasks with
// a second query.
func (s *Store) ListProjects(ctx context.Context, query listview.Query) (listview.Result[storage.Project], error) {
	if s == nil || s.sqlDB == nil {
		return listview.Result[storage.Project]{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return listview.Result[storage.Project]{}, err
	}

	cond, err := listfilter.Compile(projectFilterSchema, query.Filter)
	if err != nil {
		return listview.Result[storage.Project]{}, err
	}
	where := ""
	if cond.Clause != "" {
		where = " WHERE " + cond.Clause
	}
	orderBy, err := projectOrderSQL(query.OrderBy)
	if err != nil {
		return listview.Result[storage.Project]{}, err
	}
	limit, offset := pageBounds(query)

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects"+where, cond.Params...).Scan(&total); err != nil {
		return listview.Result[storage.Project]{}, fmt.Errorf("count projects: %w", err)
	}

	args := append(append([]any{}, cond.Params...), limit, offset)
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, name, owner_id, severity, archived, created_at, updated_at
		FROM projects`+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return listview.Result[storage.Project]{}, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []storage.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return listview.Result[storage.Project]{}, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return listview.Result[storage.Project]{}, fmt.Errorf("iterate projects: %w", err)
	}

	if err := s.expandProjects(ctx, projects, query.Expand); err != nil {
		return listview.Result[storage.Project]{}, err
	}
	return listview.Result[storage.Project]{Items: projects, TotalCount: total}, nil
}

func (s *Store) expandProjects(ctx context.Context, projects []storage.Project, expand []string) error {
	for _, relation := range expand {
		if relation != "tasks" {
			return weberror.EK(weberror.KindInvalidInput, "list.unknown_relation", fmt.Sprintf("unknown relation: %s", relation))
		}
	}
	if len(expand) == 0 || len(projects) == 0 {
		return nil
	}

	ids := make([]any, len(projects))
	placeholders := make([]string, len(projects))
	for idx, project := range projects {
		ids[idx] = project.ID
		placeholders[idx] = "?"
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, project_id, title, done, created_at
		FROM tasks WHERE project_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY created_at, id`, ids...)
	if err != nil {
		return fmt.Errorf("query project tasks: %w", err)
	}
	defer rows.Close()

	byProject := make(map[string][]storage.Task, len(projects))
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		byProject[task.ProjectID] = append(byProject[task.ProjectID], task)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tasks: %w", err)
	}
	for idx := range projects {
		projects[idx].Tasks = byProject[projects[idx].ID]
	}
	return nil
}

// CreateTask inserts a task under an existing project, assigning its id and
// creation time when unset. An unknown project returns storage.ErrNotFound.
func (s *Store) CreateTask(ctx context.Context, task storage.Task) (storage.Task, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Task{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return storage.Task{}, err
	}
	task.ProjectID = strings.TrimSpace(task.ProjectID)
	if task.ProjectID == "" {
		return storage.Task{}, errors.New("task project id is required")
	}
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return storage.Task{}, errors.New("task title is required")
	}
	if _, err := s.GetProject(ctx, task.ProjectID); err != nil {
		return storage.Task{}, err
	}
	if task.ID == "" {
		id, err := newID()
		if err != nil {
			return storage.Task{}, err
		}
		task.ID = id
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO tasks (id, project_id, title, done, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, boolToInt(task.Done), timeToText(task.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.Task{}, storage.ErrNotFound
		}
		if isUniqueViolation(err) {
			return storage.Task{}, storage.ErrAlreadyExists
		}
		return storage.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

var taskFilterSchema = listfilter.Schema{Fields: []listfilter.Field{
	{Name: "title", Type: listfilter.TypeString},
	{Name: "done", Type: listfilter.TypeBool},
	{Name: "created_at", Type: listfilter.TypeTimestamp},
}}

// ListTasks returns one page of a project's tasks matching the query filter,
// plus the pre-pagination total.
func (s *Store) ListTasks(ctx context.Context, projectID string, query listview.Query) (listview.Result[storage.Task], error) {
	if s == nil || s.sqlDB == nil {
		return listview.Result[storage.Task]{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return listview.Result[storage.Task]{}, err
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return listview.Result[storage.Task]{}, errors.New("project id is required")
	}

	cond, err := listfilter.Compile(taskFilterSchema, query.Filter)
	if err != nil {
		return listview.Result[storage.Task]{}, err
	}
	where := " WHERE project_id = ?"
	args := []any{projectID}
	if cond.Clause != "" {
		where += " AND (" + cond.Clause + ")"
		args = append(args, cond.Params...)
	}
	orderBy, err := taskOrderSQL(query.OrderBy)
	if err != nil {
		return listview.Result[storage.Task]{}, err
	}
	limit, offset := pageBounds(query)

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return listview.Result[storage.Task]{}, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, project_id, title, done, created_at
		FROM tasks`+where+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return listview.Result[storage.Task]{}, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []storage.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return listview.Result[storage.Task]{}, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return listview.Result[storage.Task]{}, fmt.Errorf("iterate tasks: %w", err)
	}
	return listview.Result[storage.Task]{Items: tasks, TotalCount: total}, nil
}

// Stats returns aggregate project and task counts.
func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	if s == nil || s.sqlDB == nil {
		return storage.Stats{}, errors.New("sqlite store is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}

	var stats storage.Stats
	err := s.sqlDB.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM projects),
		(SELECT COUNT(*) FROM projects WHERE archived = 1),
		(SELECT COUNT(*) FROM tasks),
		(SELECT COUNT(*) FROM tasks WHERE done = 1)`).
		Scan(&stats.Projects, &stats.ArchivedProjects, &stats.Tasks, &stats.DoneTasks)
	if err != nil {
		return storage.Stats{}, fmt.Errorf("count records: %w", err)
	}
	return stats, nil
}

func projectOrderSQL(orderBy string) (string, error) {
	switch orderBy {
	case "", "created_at":
		return "created_at DESC, id", nil
	case "name":
		return "name, id", nil
	case "severity":
		return "severity DESC, created_at DESC, id", nil
	}
	return "", weberror.EK(weberror.KindInvalidInput, "list.invalid_order_by", fmt.Sprintf("invalid order_by: %s", orderBy))
}

func taskOrderSQL(orderBy string) (string, error) {
	switch orderBy {
	case "", "created_at":
		return "created_at, id", nil
	case "title":
		return "title, id", nil
	}
	return "", weberror.EK(weberror.KindInvalidInput, "list.invalid_order_by", fmt.Sprintf("invalid order_by: %s", orderBy))
}

func pageBounds(query listview.Query) (limit, offset int) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size < 1 {
		size = 25
	}
	return size, (page - 1) * size
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (storage.Project, error) {
	var (
		project  storage.Project
		archived int
		created  string
		updated  string
	)
	if err := row.Scan(&project.ID, &project.Name, &project.OwnerID, &project.Severity,
		&archived, &created, &updated); err != nil {
		return storage.Project{}, err
	}
	project.Archived = archived != 0
	project.CreatedAt = textToTime(created)
	project.UpdatedAt = textToTime(updated)
	return project, nil
}

func scanTask(row rowScanner) (storage.Task, error) {
	var (
		task    storage.Task
		done    int
		created string
	)
	if err := row.Scan(&task.ID, &task.ProjectID, &task.Title, &done, &created); err != nil {
		return storage.Task{}, err
	}
	task.Done = done != 0
	task.CreatedAt = textToTime(created)
	return task, nil
}

// newID returns a 26-character lowercase base32 id derived from random UUID
// version 4 bytes.
func newID() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	return strings.ToLower(encoded), nil
}

// Timestamps are stored as RFC 3339 text in UTC, matching the format filter
// comparisons bind as parameters.
func timeToText(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func textToTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
