package demo

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"github.com/louisbranch/viewkit/httpx"
	"github.com/louisbranch/viewkit/internal/demo/forms"
	"github.com/louisbranch/viewkit/internal/demo/views"
	"github.com/louisbranch/viewkit/listview"
	"github.com/louisbranch/viewkit/render"
)

// reportPageSize bounds how many projects feed the severity report. The demo
// dataset stays far below it.
const reportPageSize = 500

func (a *app) handleReports(w http.ResponseWriter, r *http.Request) {
	rows, total, err := a.reportRows(httpx.RequestContext(r))
	if err != nil {
		a.renderer.WriteError(w, r, err)
		return
	}
	a.writePage(w, r, render.Page{
		Headline: "Reports",
		Fragment: views.Reports(rows, total, a.path("reports.csv"), a.path("reports.xls")),
	})
}

// reportRows aggregates projects by severity, highest first.
func (a *app) reportRows(ctx context.Context) ([]views.ReportRow, int, error) {
	res, err := a.store.ListProjects(ctx, listview.Query{Page: 1, PageSize: reportPageSize})
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[int]int)
	for _, project := range res.Items {
		counts[project.Severity]++
	}
	var rows []views.ReportRow
	for severity := forms.MaxSeverity; severity >= 0; severity-- {
		if counts[severity] == 0 {
			continue
		}
		rows = append(rows, views.ReportRow{Severity: severity, Count: counts[severity]})
	}
	return rows, res.TotalCount, nil
}

// severityReport renders the report as CSV. Both the CSV and the Excel export
// stream this content.
func (a *app) severityReport(ctx context.Context) (io.Reader, error) {
	rows, total, err := a.reportRows(ctx)
	if err != nil {
		return nil, err
	}

	records := [][]string{{"severity", "projects"}}
	for _, row := range rows {
		records = append(records, []string{strconv.Itoa(row.Severity), strconv.Itoa(row.Count)})
	}
	records = append(records, []string{"total", strconv.Itoa(total)})

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (a *app) handleAdmin(w http.ResponseWriter, r *http.Request) {
	stats, err := a.store.Stats(httpx.RequestContext(r))
	if err != nil {
		a.renderer.WriteError(w, r, err)
		return
	}
	a.writePage(w, r, render.Page{
		Headline: "Admin",
		Fragment: views.Admin(stats),
	})
}
