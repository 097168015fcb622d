package http

import (
	"bytes"
	"io"
	"net/http"
	"slices"
	"strconv"

	"ocorrencias/internal/chart"
	"ocorrencias/internal/core"
	"ocorrencias/internal/export"
	applog "ocorrencias/internal/log"

	"github.com/go-chi/chi/v5"
)

// ExportBaseName is the download file name without extension.
const ExportBaseName = "ocorrencias_filtradas"

// handleChartPNG renders one chart of the selection server-side.
func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !slices.Contains(chart.Names(), name) {
		NotFoundError("Gráfico desconhecido").Write(w)
		return
	}

	req, err := ParseDashboardRequest(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	view, err := s.svc.View(r.Context(), req.Selection)
	if err != nil {
		s.internalError(w, r, applog.OpRender, err)
		return
	}

	img, err := chart.PNG(name, view.Summary, chart.DefaultSize)
	if err != nil {
		s.internalError(w, r, applog.OpRender, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentChart).DebugContext(r.Context(), "Chart rendered",
		applog.FieldChart, name, "bytes", len(img))
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	_, _ = w.Write(img)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", export.ContentTypeCSV, export.CSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", export.ContentTypeXLSX, export.XLSX)
}

// export writes the filtered table as an attachment. The file is built in
// memory first so a failure still yields a clean error response.
func (s *Server) export(w http.ResponseWriter, r *http.Request, format, contentType string,
	write func(io.Writer, *core.Dataset, []core.Occurrence) error) {
	req, err := ParseDashboardRequest(r.URL.Query())
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	view, err := s.svc.View(r.Context(), req.Selection)
	if err != nil {
		s.internalError(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, s.svc.Dataset(), view.Rows); err != nil {
		s.internalError(w, r, applog.OpExport, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).InfoContext(r.Context(), "Export generated",
		applog.FieldFormat, format,
		applog.FieldRows, len(view.Rows),
		applog.FieldSelection, req.Selection.Key())

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportBaseName+"."+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
