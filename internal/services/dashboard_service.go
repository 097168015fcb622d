package services

import (
	"context"
	"errors"
	"log/slog"

	"ocorrencias/internal/cache"
	"ocorrencias/internal/core"
	applog "ocorrencias/internal/log"
)

// RowsObserver receives the size of every freshly computed filtered view.
type RowsObserver interface {
	ObserveFilteredRows(n int)
}

// DashboardService derives filtered views over the immutable dataset.
// Views are memoized per canonical selection.
type DashboardService struct {
	ds       *core.Dataset
	views    cache.Cache[*core.View]
	base     core.Options
	issues   []core.Inconsistency
	observer RowsObserver
}

// NewDashboardService takes ownership of ds; it must not be mutated afterwards.
func NewDashboardService(ds *core.Dataset, views cache.Cache[*core.View], observer RowsObserver) (*DashboardService, error) {
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	return &DashboardService{
		ds:       ds,
		views:    views,
		base:     core.DeriveOptions(ds.Rows, core.AllOf[int]()),
		issues:   core.CheckConsistency(ds.Rows),
		observer: observer,
	}, nil
}

func (s *DashboardService) Dataset() *core.Dataset { return s.ds }

// Inconsistencies lists rows whose total differs from the gender sum.
func (s *DashboardService) Inconsistencies() []core.Inconsistency { return s.issues }

// Options returns the widget options for a year choice. Only months depend
// on it; the other lists are computed once.
func (s *DashboardService) Options(years core.Choice[int]) core.Options {
	if years.All {
		return s.base
	}
	opts := s.base
	opts.Months = core.DeriveOptions(s.ds.Rows, years).Months
	return opts
}

// View filters the dataset and computes every chart view for sel.
func (s *DashboardService) View(ctx context.Context, sel core.Selection) (*core.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.views == nil {
		return s.compute(ctx, sel), nil
	}
	v, hit, err := s.views.GetOrLoad(sel.Key(), func() (*core.View, error) {
		return s.compute(ctx, sel), nil
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Dashboard view ready",
		applog.FieldComponent, applog.ComponentCache,
		applog.FieldCacheHit, hit,
		applog.FieldRows, len(v.Rows))
	return v, nil
}

func (s *DashboardService) compute(ctx context.Context, sel core.Selection) *core.View {
	rows := core.Filter(s.ds.Rows, sel)
	if s.observer != nil {
		s.observer.ObserveFilteredRows(len(rows))
	}
	slog.DebugContext(ctx, "Filtered occurrences",
		applog.FieldComponent, applog.ComponentDataset,
		applog.FieldOperation, applog.OpFilter,
		applog.FieldSelection, sel.Key(),
		applog.FieldRows, len(rows),
		"of", s.ds.Len())
	return &core.View{
		Selection: sel,
		Options:   s.Options(sel.Years),
		Rows:      rows,
		Summary:   core.Summarize(rows),
	}
}
