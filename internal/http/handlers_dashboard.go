package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strconv"

	"ocorrencias/internal/chart"
	"ocorrencias/internal/core"
	applog "ocorrencias/internal/log"
)

// Page titles and headings.
const (
	AppTitle     = "Ocorrências Criminais na RIDE"
	HeadingChart = "Análise Gráfica das Ocorrências Criminais"
	HeadingTable = "Tabela de Ocorrências Criminais Filtradas"
)

var templateFuncs = template.FuncMap{
	"formatInt":     formatInt,
	"formatPercent": formatPercent,
}

// option is one entry of a selection widget.
type option struct {
	Value    string
	Label    string
	Selected bool
}

type chartView struct {
	Name     string
	Title    string
	CanvasID string
	PNG      string
}

type shareView struct {
	Label   string
	Total   int
	Percent float64
}

// pageData feeds index.html and the body partial.
type pageData struct {
	Title   string
	Heading string
	Page    string

	Pages          []option
	Events         []option
	Genders        []option
	Municipalities []option
	Years          []option
	Months         []option

	// Query is the encoded filter selection, without the page.
	Query    string
	Rows     int
	Total    int
	Empty    bool
	Warnings int

	Gender core.GenderTotals
	Shares []shareView
	Charts []chartView

	Columns    []string
	Table      [][]string
	ExportCSV  string
	ExportXLSX string

	// OOB marks the body partial: the month widget is sent out of band.
	OOB bool
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req, err := ParseDashboardRequest(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	data, err := s.pageData(r, req)
	if err != nil {
		s.internalError(w, r, "build dashboard view", err)
		return
	}

	body, err := s.execute("index.html", data)
	if err != nil {
		s.internalError(w, r, applog.OpRender, err)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// handleBody renders the page body for HTMX swaps, plus the month widget
// out of band since its options follow the year selection.
func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	req, err := ParseDashboardRequest(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	data, err := s.pageData(r, req)
	if err != nil {
		s.internalError(w, r, "build dashboard view", err)
		return
	}
	data.OOB = true

	body, err := s.execute("body", data)
	if err != nil {
		s.internalError(w, r, applog.OpRender, err)
		return
	}

	NewHTMXResponse().
		PushURL(pageURL(req.Page, data.Query)).
		TriggerViewChanged(req.Page, data.Query, data.Rows).
		BodyHTML(body).
		Write(w)
}

func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) pageData(r *http.Request, req DashboardRequest) (*pageData, error) {
	view, err := s.svc.View(r.Context(), req.Selection)
	if err != nil {
		return nil, err
	}
	sel := req.Selection
	opts := view.Options
	query := EncodeSelection(sel).Encode()

	data := &pageData{
		Title:          AppTitle,
		Page:           req.Page,
		Pages:          pageOptions(req.Page),
		Events:         stringOptions(opts.Events, sel.Events),
		Genders:        genderOptions(sel.Gender),
		Municipalities: stringOptions(opts.Municipalities, sel.Municipalities),
		Years:          intOptions(opts.Years, sel.Years),
		Months:         intOptions(opts.Months, sel.Months),
		Query:          query,
		Rows:           len(view.Rows),
		Total:          s.svc.Dataset().Len(),
		Empty:          len(view.Rows) == 0,
		Warnings:       len(s.svc.Inconsistencies()),
	}

	switch req.Page {
	case PageTable:
		data.Heading = HeadingTable
		ds := s.svc.Dataset()
		data.Columns = ds.Columns
		data.Table = tableRows(ds, view.Rows)
		data.ExportCSV = withQuery("/export.csv", query)
		data.ExportXLSX = withQuery("/export.xlsx", query)
	default:
		data.Heading = HeadingChart
		data.Gender = view.Summary.Gender
		for _, sh := range view.Summary.Gender.Shares() {
			data.Shares = append(data.Shares, shareView{Label: sh.Label, Total: sh.Total, Percent: sh.Percent})
		}
		data.Charts = chartViews(query)
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard rendered",
		applog.NewFields().
			WithSelection(sel, len(view.Rows)).
			ToSlice()...)
	return data, nil
}

func pageURL(page, query string) string {
	u := "/?" + ParamPage + "=" + page
	if query != "" {
		u += "&" + query
	}
	return u
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

func pageOptions(current string) []option {
	return []option{
		{Value: PageCharts, Label: "Gráficos", Selected: current == PageCharts},
		{Value: PageTable, Label: "Tabela de Ocorrências", Selected: current == PageTable},
	}
}

func stringOptions(values []string, c core.Choice[string]) []option {
	out := make([]option, 0, len(values)+1)
	out = append(out, option{Value: core.All, Label: core.All, Selected: c.All})
	for _, v := range values {
		out = append(out, option{Value: v, Label: v, Selected: !c.All && slices.Contains(c.Values, v)})
	}
	return out
}

func intOptions(values []int, c core.Choice[int]) []option {
	out := make([]option, 0, len(values)+1)
	out = append(out, option{Value: core.All, Label: core.All, Selected: c.All})
	for _, v := range values {
		s := strconv.Itoa(v)
		out = append(out, option{Value: s, Label: s, Selected: !c.All && slices.Contains(c.Values, v)})
	}
	return out
}

func genderOptions(g core.Gender) []option {
	gs := core.Genders()
	out := make([]option, 0, len(gs))
	for _, v := range gs {
		out = append(out, option{Value: string(v), Label: string(v), Selected: v == g})
	}
	return out
}

func chartViews(query string) []chartView {
	titles := map[string]string{
		chart.Gender: chart.TitleGender,
		chart.ByYear: chart.TitleByYear,
		chart.Time:   chart.TitleTime,
	}
	out := make([]chartView, 0, len(chart.Names()))
	for _, name := range chart.Names() {
		out = append(out, chartView{
			Name:     name,
			Title:    titles[name],
			CanvasID: "chart-" + name,
			PNG:      withQuery("/charts/"+name+".png", query),
		})
	}
	return out
}

// tableRows renders rows verbatim, in dataset column order.
func tableRows(ds *core.Dataset, rows []core.Occurrence) [][]string {
	out := make([][]string, len(rows))
	for i, o := range rows {
		rec := make([]string, len(ds.Columns))
		for j := range ds.Columns {
			rec[j] = ds.Value(o, j)
		}
		out[i] = rec
	}
	return out
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid dashboard query",
		applog.FieldQuery, r.URL.RawQuery,
		applog.FieldOperation, applog.OpParse,
		applog.FieldError, err.Error())
	msg := "Parâmetros de filtro inválidos"
	if errors.Is(err, ErrInvalidQuery) {
		msg += ": " + err.Error()
	}
	BadRequestError(msg).Write(w)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	applog.NewStructuredLogger(s.logger).LogError(r.Context(), "Request failed", err,
		applog.ComponentHTTP, op, applog.NewFields().WithRequestID(requestID(r)))
	InternalServerError("Erro interno ao processar a requisição").Write(w)
}
