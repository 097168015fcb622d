package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	m := New()
	m.SetDatasetRows(3)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveRequest("/", http.MethodGet, 200, 15*time.Millisecond)
	m.IncRateLimited()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.datasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetDatasetRows(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "ocorrencias_dataset_rows 42")
}
