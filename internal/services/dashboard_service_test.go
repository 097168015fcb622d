package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ocorrencias/internal/cache"
	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"
	"ocorrencias/internal/dataset/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	mu    sync.Mutex
	calls []int
}

func (o *countingObserver) ObserveFilteredRows(n int) {
	o.mu.Lock()
	o.calls = append(o.calls, n)
	o.mu.Unlock()
}

func newService(t *testing.T) (*DashboardService, *countingObserver) {
	t.Helper()
	var src dataset.Source = memory.New([]core.Occurrence{
		{Evento: "A", Feminino: 1, Masculino: 0, TotalVitimas: 1, Municipio: "X", Ano: 2020, Mes: 1},
		{Evento: "B", Feminino: 0, Masculino: 2, TotalVitimas: 2, Municipio: "Y", Ano: 2020, Mes: 2},
		{Evento: "A", Feminino: 1, Masculino: 1, TotalVitimas: 2, Municipio: "X", Ano: 2021, Mes: 1},
	})
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	obs := &countingObserver{}
	svc, err := NewDashboardService(ds, cache.NewLRUCache[*core.View](8, time.Minute), obs)
	require.NoError(t, err)
	return svc, obs
}

func TestDashboardServiceView(t *testing.T) {
	svc, _ := newService(t)

	sel := core.DefaultSelection()
	sel.Events = core.Only("A")
	sel.Gender = core.GenderMale

	v, err := svc.View(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, 2021, v.Rows[0].Ano)
	assert.Equal(t, core.GenderTotals{Feminino: 1, Masculino: 1}, v.Summary.Gender)
	assert.Equal(t, []int{2020, 2021}, v.Options.Years)
}

func TestDashboardServiceMemoizes(t *testing.T) {
	svc, obs := newService(t)

	a := core.DefaultSelection()
	a.Years = core.Only(2021, 2020)
	b := core.DefaultSelection()
	b.Years = core.Only(2020, 2021)

	v1, err := svc.View(context.Background(), a)
	require.NoError(t, err)
	v2, err := svc.View(context.Background(), b)
	require.NoError(t, err)

	assert.Same(t, v1, v2, "equivalent selections share one view")
	assert.Len(t, obs.calls, 1)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	ds := core.NewDataset([]core.Occurrence{{Evento: "A", Ano: 2020, Mes: 1}})
	svc, err := NewDashboardService(ds, nil, nil)
	require.NoError(t, err)

	v, err := svc.View(context.Background(), core.DefaultSelection())
	require.NoError(t, err)
	assert.Len(t, v.Rows, 1)

	_, err = NewDashboardService(nil, nil, nil)
	assert.Error(t, err)
}

func TestDashboardServiceMonthOptionsFollowYears(t *testing.T) {
	svc, _ := newService(t)
	assert.Equal(t, []int{1, 2}, svc.Options(core.AllOf[int]()).Months)
	assert.Equal(t, []int{1}, svc.Options(core.Only(2021)).Months)
	assert.Empty(t, svc.Options(core.Choice[int]{}).Months)
}

func TestDashboardServiceCancelledContext(t *testing.T) {
	svc, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.View(ctx, core.DefaultSelection())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDashboardServiceInconsistencies(t *testing.T) {
	svc, _ := newService(t)
	assert.Empty(t, svc.Inconsistencies())
}
