// Package csvfile loads the occurrence table from a CSV file on disk.
package csvfile

import (
	"context"
	"log/slog"
	"os"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"
	"ocorrencias/internal/dataset/frame"
)

type Source struct {
	path string
}

var _ dataset.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load(ctx context.Context) (*core.Dataset, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, dataset.Error.Wrap(err)
	}
	defer f.Close()

	ds, err := frame.FromCSV(f)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Loaded occurrences from CSV", "path", s.path, "rows", ds.Len(), "columns", len(ds.Columns))
	return ds, nil
}
