package views

import (
	"context"
	"html"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/internal/demo/forms"
	"github.com/louisbranch/viewkit/internal/demo/storage"
	"github.com/louisbranch/viewkit/listview"
)

// ProjectPaths names the routes the project fragments link to.
type ProjectPaths struct {
	Index  string
	New    string
	Show   func(id string) string
	Edit   func(id string) string
	Delete func(id string) string
}

// Home renders the landing fragment.
func Home(principal identity.Principal, projectsPath string) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<section class="home">`)
		if principal.Authenticated() {
			b.WriteString(`<p>Signed in as <strong>`)
			b.WriteString(html.EscapeString(principalLabel(principal)))
			b.WriteString(`</strong>.</p>`)
		} else {
			b.WriteString(`<p>Sign in to manage projects and tasks.</p>`)
		}
		b.WriteString(`<p><a href="`)
		b.WriteString(html.EscapeString(projectsPath))
		b.WriteString(`">Browse projects</a></p></section>`)
	})
}

// ProjectList renders the project table with its filter and append forms.
func ProjectList(state listview.ListState[storage.Project], paths ProjectPaths) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<section class="projects">`)
		writeFilterForm(b, paths.Index, state.Query)
		if len(state.Items) == 0 {
			b.WriteString(`<p class="empty">No projects found.</p>`)
		} else {
			b.WriteString(`<table><thead><tr><th>Name</th><th>Owner</th><th>Severity</th><th>Tasks</th><th>Created</th><th></th></tr></thead><tbody>`)
			for _, project := range state.Items {
				writeProjectRow(b, project, paths)
			}
			b.WriteString(`</tbody></table>`)
		}
		writePager(b, paths.Index, state.Query, state.Total)
		b.WriteString(`<p><a href="`)
		b.WriteString(html.EscapeString(paths.New))
		b.WriteString(`">New project page</a></p>`)
		writeProjectAppendForm(b, state, paths.Index)
		b.WriteString(`</section>`)
	})
}

func writeProjectRow(b *strings.Builder, project storage.Project, paths ProjectPaths) {
	b.WriteString(`<tr><td><a href="`)
	b.WriteString(html.EscapeString(paths.Show(project.ID)))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(project.Name))
	b.WriteString(`</a>`)
	if project.Archived {
		b.WriteString(` <em>archived</em>`)
	}
	b.WriteString(`</td><td>`)
	b.WriteString(html.EscapeString(project.OwnerID))
	b.WriteString(`</td><td>`)
	b.WriteString(strconv.Itoa(project.Severity))
	b.WriteString(`</td><td>`)
	if project.Tasks != nil {
		b.WriteString(strconv.Itoa(len(project.Tasks)))
	} else {
		b.WriteString(`-`)
	}
	b.WriteString(`</td><td>`)
	b.WriteString(project.CreatedAt.Format("2006-01-02"))
	b.WriteString(`</td><td><a href="`)
	b.WriteString(html.EscapeString(paths.Edit(project.ID)))
	b.WriteString(`">Edit</a> <form method="post" action="`)
	b.WriteString(html.EscapeString(paths.Delete(project.ID)))
	b.WriteString(`" class="inline"><button type="submit">Delete</button></form></td></tr>`)
}

func writeFilterForm(b *strings.Builder, action string, q listview.Query) {
	b.WriteString(`<form method="get" action="`)
	b.WriteString(html.EscapeString(action))
	b.WriteString(`" class="filter"><label>Filter <input type="text" name="q" value="`)
	b.WriteString(html.EscapeString(q.Filter))
	b.WriteString(`" placeholder="severity &gt;= 2 AND archived = false"></label>`)
	if q.OrderBy != "" {
		b.WriteString(`<input type="hidden" name="order_by" value="`)
		b.WriteString(html.EscapeString(q.OrderBy))
		b.WriteString(`">`)
	}
	b.WriteString(`<button type="submit">Apply</button></form>`)
}

func writeProjectAppendForm(b *strings.Builder, state listview.ListState[storage.Project], action string) {
	if state.Locked {
		b.WriteString(`<p class="locked">Project creation is locked.</p>`)
		return
	}
	if state.Form == nil {
		return
	}
	form, _ := state.Form.(*forms.Project)
	if form == nil {
		form = &forms.Project{}
	}
	b.WriteString(`<form method="post" action="`)
	b.WriteString(html.EscapeString(action))
	b.WriteString(`" class="append"><h2>Add a project</h2>`)
	writeProjectFields(b, form, state.FormErrors, false)
	b.WriteString(`<button type="submit">Create</button></form>`)
}

// TaskList renders one project's task list with its append form.
func TaskList(project storage.Project, state listview.ListState[storage.Task], action, editPath string) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<section class="tasks"><p class="meta">Owned by `)
		b.WriteString(html.EscapeString(project.OwnerID))
		b.WriteString(`, severity `)
		b.WriteString(strconv.Itoa(project.Severity))
		if project.Archived {
			b.WriteString(`, archived`)
		}
		b.WriteString(`. <a href="`)
		b.WriteString(html.EscapeString(editPath))
		b.WriteString(`">Edit project</a></p>`)
		if len(state.Items) == 0 {
			b.WriteString(`<p class="empty">No tasks yet.</p>`)
		} else {
			b.WriteString(`<ul class="task-list">`)
			for _, task := range state.Items {
				b.WriteString(`<li>`)
				if task.Done {
					b.WriteString(`<s>`)
					b.WriteString(html.EscapeString(task.Title))
					b.WriteString(`</s>`)
				} else {
					b.WriteString(html.EscapeString(task.Title))
				}
				b.WriteString(`</li>`)
			}
			b.WriteString(`</ul>`)
		}
		writePager(b, action, state.Query, state.Total)
		writeTaskAppendForm(b, state, action)
		b.WriteString(`</section>`)
	})
}

func writeTaskAppendForm(b *strings.Builder, state listview.ListState[storage.Task], action string) {
	if state.Locked {
		b.WriteString(`<p class="locked">This project is archived; tasks are locked.</p>`)
		return
	}
	if state.Form == nil {
		return
	}
	form, _ := state.Form.(*forms.Task)
	if form == nil {
		form = &forms.Task{}
	}
	b.WriteString(`<form method="post" action="`)
	b.WriteString(html.EscapeString(action))
	b.WriteString(`" class="append"><label>New task <input type="text" name="title" value="`)
	b.WriteString(html.EscapeString(form.Title))
	b.WriteString(`"></label>`)
	writeFieldError(b, state.FormErrors, "title")
	b.WriteString(`<button type="submit">Add</button></form>`)
}

// ProjectCreate renders the standalone create form.
func ProjectCreate(state listview.FormState, action string) templ.Component {
	return component(func(b *strings.Builder) {
		form, _ := state.Form.(*forms.Project)
		if form == nil {
			form = &forms.Project{}
		}
		b.WriteString(`<form method="post" action="`)
		b.WriteString(html.EscapeString(action))
		b.WriteString(`" class="create">`)
		writeProjectFields(b, form, state.Errors, false)
		b.WriteString(`<button type="submit">Create project</button></form>`)
	})
}

// ProjectEdit renders the edit form for an existing project.
func ProjectEdit(project storage.Project, form *forms.Project, errors map[string]string, action string) templ.Component {
	return component(func(b *strings.Builder) {
		if form == nil {
			form = forms.FromProject(project)
		}
		b.WriteString(`<form method="post" action="`)
		b.WriteString(html.EscapeString(action))
		b.WriteString(`" class="edit">`)
		writeProjectFields(b, form, errors, true)
		b.WriteString(`<button type="submit">Save changes</button></form>`)
	})
}

func writeProjectFields(b *strings.Builder, form *forms.Project, errors map[string]string, includeArchived bool) {
	b.WriteString(`<label>Name <input type="text" name="name" value="`)
	b.WriteString(html.EscapeString(form.Name))
	b.WriteString(`"></label>`)
	writeFieldError(b, errors, "name")
	b.WriteString(`<label>Severity <select name="severity">`)
	for severity := 0; severity <= forms.MaxSeverity; severity++ {
		b.WriteString(`<option value="`)
		b.WriteString(strconv.Itoa(severity))
		if severity == form.Severity {
			b.WriteString(`" selected>`)
		} else {
			b.WriteString(`">`)
		}
		b.WriteString(severityLabel(severity))
		b.WriteString(`</option>`)
	}
	b.WriteString(`</select></label>`)
	writeFieldError(b, errors, "severity")
	if includeArchived {
		b.WriteString(`<label><input type="checkbox" name="archived" value="on"`)
		if form.Archived {
			b.WriteString(` checked`)
		}
		b.WriteString(`> Archived</label>`)
	}
	writeFieldError(b, errors, "form")
}

// Login renders the sign-in form. A non-empty message renders as an error
// note above the fields.
func Login(next, message, action string) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<form method="post" action="`)
		b.WriteString(html.EscapeString(action))
		b.WriteString(`" class="login">`)
		if message != "" {
			b.WriteString(`<p class="error" role="alert">`)
			b.WriteString(html.EscapeString(message))
			b.WriteString(`</p>`)
		}
		b.WriteString(`<label>Username <input type="text" name="username" autocomplete="username"></label>`)
		b.WriteString(`<label>Password <input type="password" name="password" autocomplete="current-password"></label>`)
		if next != "" {
			b.WriteString(`<input type="hidden" name="next" value="`)
			b.WriteString(html.EscapeString(next))
			b.WriteString(`">`)
		}
		b.WriteString(`<button type="submit">Sign in</button></form>`)
	})
}

// ReportRow is one severity bucket in the reports table.
type ReportRow struct {
	Severity int
	Count    int
}

// Reports renders the severity summary with export links.
func Reports(rows []ReportRow, total int, csvPath, xlsPath string) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<section class="reports"><table><thead><tr><th>Severity</th><th>Projects</th></tr></thead><tbody>`)
		for _, row := range rows {
			b.WriteString(`<tr><td>`)
			b.WriteString(severityLabel(row.Severity))
			b.WriteString(`</td><td>`)
			b.WriteString(strconv.Itoa(row.Count))
			b.WriteString(`</td></tr>`)
		}
		b.WriteString(`</tbody><tfoot><tr><td>Total</td><td>`)
		b.WriteString(strconv.Itoa(total))
		b.WriteString(`</td></tr></tfoot></table><p><a href="`)
		b.WriteString(html.EscapeString(csvPath))
		b.WriteString(`">Download CSV</a> <a href="`)
		b.WriteString(html.EscapeString(xlsPath))
		b.WriteString(`">Download Excel</a></p></section>`)
	})
}

// Admin renders the aggregate counts screen.
func Admin(stats storage.Stats) templ.Component {
	return component(func(b *strings.Builder) {
		b.WriteString(`<section class="admin"><dl>`)
		writeStat(b, "Projects", stats.Projects)
		writeStat(b, "Archived projects", stats.ArchivedProjects)
		writeStat(b, "Tasks", stats.Tasks)
		writeStat(b, "Done tasks", stats.DoneTasks)
		b.WriteString(`</dl></section>`)
	})
}

func writeStat(b *strings.Builder, label string, value int64) {
	b.WriteString(`<dt>`)
	b.WriteString(html.EscapeString(label))
	b.WriteString(`</dt><dd>`)
	b.WriteString(strconv.FormatInt(value, 10))
	b.WriteString(`</dd>`)
}

func writePager(b *strings.Builder, path string, q listview.Query, total int) {
	b.WriteString(`<p class="pager">`)
	b.WriteString(strconv.Itoa(total))
	b.WriteString(` total`)
	if q.PageSize > 0 {
		last := (total + q.PageSize - 1) / q.PageSize
		if q.Page > 1 {
			b.WriteString(` <a href="`)
			b.WriteString(html.EscapeString(listHref(path, q, q.Page-1)))
			b.WriteString(`" rel="prev">Previous</a>`)
		}
		if q.Page < last {
			b.WriteString(` <a href="`)
			b.WriteString(html.EscapeString(listHref(path, q, q.Page+1)))
			b.WriteString(`" rel="next">Next</a>`)
		}
	}
	b.WriteString(`</p>`)
}

func listHref(path string, q listview.Query, page int) string {
	values := url.Values{}
	if q.Filter != "" {
		values.Set("q", q.Filter)
	}
	if q.OrderBy != "" {
		values.Set("order_by", q.OrderBy)
	}
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}

func writeFieldError(b *strings.Builder, errors map[string]string, field string) {
	message := strings.TrimSpace(errors[field])
	if message == "" {
		return
	}
	b.WriteString(`<small class="error">`)
	b.WriteString(html.EscapeString(message))
	b.WriteString(`</small>`)
}

func severityLabel(severity int) string {
	switch severity {
	case 0:
		return "0 - backlog"
	case 1:
		return "1 - low"
	case 2:
		return "2 - moderate"
	case 3:
		return "3 - elevated"
	case 4:
		return "4 - high"
	case 5:
		return "5 - critical"
	}
	return strconv.Itoa(severity)
}

func principalLabel(p identity.Principal) string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return p.ID
}

func component(write func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		write(&b)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
