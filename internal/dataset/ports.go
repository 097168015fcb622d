package dataset

import (
	"context"

	"ocorrencias/internal/core"

	"github.com/zeebo/errs"
)

// Error is the class of every load and schema error.
var Error = errs.Class("dataset")

// Ports for outbound adapters.
type (
	// Source produces the full occurrence table. It is called once at
	// startup; the returned dataset is never mutated afterwards.
	Source interface {
		Load(ctx context.Context) (*core.Dataset, error)
	}

	// Writer replaces the stored occurrences (import tooling only).
	Writer interface {
		ReplaceOccurrences(ctx context.Context, ds *core.Dataset) (int, error)
	}
)
