package http

import (
	"errors"
	"net/http"

	"ocorrencias/internal/chart"
	"ocorrencias/internal/core"
	applog "ocorrencias/internal/log"

	"github.com/go-chi/render"
)

type optionsResponse struct {
	Sentinel string `json:"todos"`
	core.Options
}

type chartSeries struct {
	Name  string `json:"nome"`
	Title string `json:"titulo"`
}

type chartsResponse struct {
	Charts []chartSeries      `json:"graficos"`
	Gender []core.GenderShare `json:"genero"`
	ByYear []core.YearTotals  `json:"por_ano"`
	Series []core.TimePoint   `json:"tempo"`
	Totals core.GenderTotals  `json:"totais"`
	Rows   int                `json:"linhas"`
}

type occurrencesResponse struct {
	Columns []string   `json:"colunas"`
	Rows    [][]string `json:"linhas"`
	Total   int        `json:"total"`
}

// handleOptions returns the widget options; months follow the ano parameter.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	years, err := ParseYears(r.URL.Query())
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	render.JSON(w, r, optionsResponse{Sentinel: core.All, Options: s.svc.Options(years)})
}

// handleCharts returns the data behind the three charts for the selection.
func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}

	sum := view.Summary
	resp := chartsResponse{
		Charts: []chartSeries{
			{Name: chart.Gender, Title: chart.TitleGender},
			{Name: chart.ByYear, Title: chart.TitleByYear},
			{Name: chart.Time, Title: chart.TitleTime},
		},
		Gender: sum.Gender.Shares(),
		ByYear: sum.ByYear,
		Series: sum.Series,
		Totals: sum.Gender,
		Rows:   len(view.Rows),
	}
	// Empty selections still serialize as arrays.
	if resp.ByYear == nil {
		resp.ByYear = []core.YearTotals{}
	}
	if resp.Series == nil {
		resp.Series = []core.TimePoint{}
	}
	render.JSON(w, r, resp)
}

// handleOccurrences returns the filtered rows verbatim, in load order.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	view, ok := s.apiView(w, r)
	if !ok {
		return
	}
	ds := s.svc.Dataset()
	render.JSON(w, r, occurrencesResponse{
		Columns: ds.Columns,
		Rows:    tableRows(ds, view.Rows),
		Total:   len(view.Rows),
	})
}

// apiView parses the selection and computes its view, answering with a
// JSON error on failure.
func (s *Server) apiView(w http.ResponseWriter, r *http.Request) (*core.View, bool) {
	req, err := ParseDashboardRequest(r.URL.Query())
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	view, err := s.svc.View(r.Context(), req.Selection)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusServiceUnavailable
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "View computation failed",
			applog.FieldError, err.Error())
		writeJSONError(w, r, status, "erro ao calcular a visão filtrada")
		return nil, false
	}
	return view, true
}
