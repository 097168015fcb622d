package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ocorrencias/internal/cache"
	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset/memory"
	"ocorrencias/internal/export"
	applog "ocorrencias/internal/log"
	"ocorrencias/internal/metrics"
	"ocorrencias/internal/middleware/ratelimit"
	"ocorrencias/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testRows() []core.Occurrence {
	return []core.Occurrence{
		{Evento: "A", Feminino: 1, Masculino: 0, TotalVitimas: 1, Municipio: "X", CodigoMunicipio: "0520800", Ano: 2020, Mes: 1},
		{Evento: "B", Feminino: 0, Masculino: 2, TotalVitimas: 2, Municipio: "Y", CodigoMunicipio: "0521250", Ano: 2020, Mes: 2},
		{Evento: "A", Feminino: 1, Masculino: 1, TotalVitimas: 2, Municipio: "X", CodigoMunicipio: "0520800", Ano: 2021, Mes: 1},
	}
}

func newTestServer(t *testing.T, rl ratelimit.Config) *Server {
	t.Helper()
	m := metrics.New()
	ds, err := memory.New(testRows()).Load(context.Background())
	require.NoError(t, err)
	svc, err := services.NewDashboardService(ds,
		cache.NewLRUCache[*core.View](16, time.Minute, cache.WithObserver(m.ObserveCache)), m)
	require.NoError(t, err)

	logger := applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
	if rl.RequestsPerSecond == 0 {
		rl = ratelimit.Config{RequestsPerSecond: 1000, Burst: 1000}
	}
	srv, err := NewServer(Config{Addr: ":0", RateLimit: rl}, Dependencies{
		Service: svc,
		Logger:  logger,
		Metrics: m,
		Backend: "memory",
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestIndexChartsPage(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	for _, want := range []string{
		HeadingChart,
		"Selecione o(s) Evento(s)",
		"Selecione o Gênero",
		"Selecione o(s) Município(s) da RIDE",
		"Selecione o(s) Ano(s)",
		"Selecione o(s) Mês(es)",
		"Escolha a Página",
		"Distribuição de Gênero por Ocorrência",
		"Total de Vítimas por Gênero por Ano",
		"Quantidade de Vítimas ao Longo do Tempo",
		`/charts/genero.png`,
		"3 de 3 registros",
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "hx-swap-oob")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestIndexTablePage(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/?pagina=tabela&evento=A")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, HeadingTable)
	assert.Contains(t, body, "2 de 3 registros")
	assert.Contains(t, body, "<th>codigo_municipio_dv</th>")
	assert.Contains(t, body, "<td>0520800</td>")
	assert.NotContains(t, body, "<td>B</td>")
	assert.Contains(t, body, "/export.csv?evento=A")
}

func TestIndexEmptySelection(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/?pagina=tabela&municipio=")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nenhuma ocorrência para os filtros selecionados.")
	assert.Contains(t, rr.Body.String(), "0 de 3 registros")
}

func TestIndexInvalidQuery(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	for _, target := range []string{"/?ano=dois", "/?pagina=mapa", "/ui/body?mes=13"} {
		rr := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Contains(t, rr.Body.String(), `class="error"`, target)
	}
}

func TestBodyPartial(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/ui/body?ano=2021")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, "/?pagina=graficos&ano=2021", rr.Header().Get("HX-Push-Url"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "dashboard:view-changed")

	body := rr.Body.String()
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, `hx-swap-oob="true"`)
	// Only January occurs in 2021.
	assert.Contains(t, body, `<option value="1"`)
	assert.NotContains(t, body, `<option value="2"`)
}

func TestAPIOptions(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/api/options?ano=2021")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var got struct {
		Todos     string   `json:"todos"`
		Evento    []string `json:"evento"`
		Genero    []string `json:"genero"`
		Municipio []string `json:"municipio"`
		Ano       []int    `json:"ano"`
		Mes       []int    `json:"mes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, core.All, got.Todos)
	assert.Equal(t, []string{"A", "B"}, got.Evento)
	assert.Equal(t, []string{"Todos", "Feminino", "Masculino"}, got.Genero)
	assert.Equal(t, []string{"X", "Y"}, got.Municipio)
	assert.Equal(t, []int{2020, 2021}, got.Ano)
	assert.Equal(t, []int{1}, got.Mes)

	rr = get(t, srv, "/api/options?ano=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error"`)
}

func TestAPICharts(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	var got chartsResponse
	rr := get(t, srv, "/api/charts?evento=A&genero=Masculino")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))

	assert.Equal(t, 1, got.Rows)
	assert.Equal(t, core.GenderTotals{Feminino: 1, Masculino: 1}, got.Totals)
	require.Len(t, got.Gender, 2)
	assert.InDelta(t, 50.0, got.Gender[0].Percent, 1e-9)
	assert.Equal(t, []core.YearTotals{{Ano: 2021, Feminino: 1, Masculino: 1}}, got.ByYear)
	require.Len(t, got.Series, 1)
	assert.Equal(t, 2, got.Series[0].TotalVitimas)
	assert.Len(t, got.Charts, 3)

	rr = get(t, srv, "/api/charts?evento=")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"por_ano":[]`)
	assert.Contains(t, rr.Body.String(), `"tempo":[]`)
	assert.Contains(t, rr.Body.String(), `"linhas":0`)
}

func TestAPIOccurrences(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/api/occurrences?municipio=X")
	require.Equal(t, http.StatusOK, rr.Code)

	var got occurrencesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, core.RequiredColumns, got.Columns)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "2020", got.Rows[0][6])
	assert.Equal(t, "2021", got.Rows[1][6])
}

func TestChartPNG(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	for _, name := range []string{"genero", "ano", "tempo"} {
		rr := get(t, srv, "/charts/"+name+".png?evento=A")
		require.Equal(t, http.StatusOK, rr.Code, name)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")), name)
	}

	rr := get(t, srv, "/charts/pizza.png")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/export.csv?evento=B")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeCSV, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), ExportBaseName+".csv")

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, core.RequiredColumns, records[0])
	assert.Equal(t, "B", records[1][0])
}

func TestExportXLSX(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/export.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentTypeXLSX, rr.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
	rr := get(t, srv, "/readyz")
	assert.Contains(t, rr.Body.String(), `"status":"ready"`)
	assert.Contains(t, rr.Body.String(), `"backend":"memory"`)

	_ = get(t, srv, "/?evento=A")
	rr = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `ocorrencias_http_requests_total{method="GET",route="/healthz",status="200"}`)
	assert.Contains(t, body, "ocorrencias_view_cache_lookups_total")
	assert.Contains(t, body, "ocorrencias_filtered_rows_count")
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})

	rr := get(t, srv, "/static/style.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	rr = get(t, srv, "/static/dashboard.js")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "/api/charts"))
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{RequestsPerSecond: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, get(t, srv, "/api/options").Code)
	rr := get(t, srv, "/api/options")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Health probes are outside the limited group.
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)

	body := get(t, srv, "/metrics").Body.String()
	assert.Contains(t, body, "ocorrencias_rate_limited_requests_total 1")
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})
	rr := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}

func TestNewServerRejectsInvalidTrustedProxy(t *testing.T) {
	svc, err := services.NewDashboardService(core.NewDataset(testRows()),
		cache.NewLRUCache[*core.View](4, time.Minute), nil)
	require.NoError(t, err)

	_, err = NewServer(Config{
		Addr:           ":0",
		RateLimit:      ratelimit.Config{RequestsPerSecond: 10, Burst: 10},
		TrustedProxies: []string{"not-a-cidr"},
	}, Dependencies{Service: svc})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CIDR not-a-cidr")
}
