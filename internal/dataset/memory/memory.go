// Package memory holds an in-process occurrence table. It is the dry-run
// target of the import CLI and the fixture source of the service tests.
package memory

import (
	"context"
	"sync"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"
)

type Store struct {
	mu sync.Mutex
	ds *core.Dataset
}

var (
	_ dataset.Source = (*Store)(nil)
	_ dataset.Writer = (*Store)(nil)
)

func New(rows []core.Occurrence) *Store {
	return &Store{ds: core.NewDataset(rows)}
}

// Load returns a copy so callers cannot alter the stored table.
func (s *Store) Load(_ context.Context) (*core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil, dataset.Error.New("memory store is empty")
	}
	return clone(s.ds), nil
}

// ReplaceOccurrences swaps the stored table and returns the row count.
func (s *Store) ReplaceOccurrences(_ context.Context, ds *core.Dataset) (int, error) {
	if ds == nil {
		return 0, dataset.Error.New("nil dataset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = clone(ds)
	return s.ds.Len(), nil
}

func clone(ds *core.Dataset) *core.Dataset {
	return &core.Dataset{
		Columns: append([]string(nil), ds.Columns...),
		Rows:    append([]core.Occurrence(nil), ds.Rows...),
	}
}
