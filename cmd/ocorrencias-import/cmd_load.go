package main

import (
	"context"
	"fmt"
	"io"

	"ocorrencias/internal/dataset"
	"ocorrencias/internal/dataset/csvfile"
	"ocorrencias/internal/dataset/memory"
	applog "ocorrencias/internal/log"
	"ocorrencias/internal/storage"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
)

func newLoadCommand(root *rootConfig) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "load [CSVPATH]",
		Short: "Replace the SQLite occurrence table with the contents of a CSV file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.CSVPath
			if len(args) == 1 {
				path = args[0]
			}
			return checkCmd(doLoad(root.Ctx, root.Logger, root.Out, path, root.DBPath, dryRun))
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false,
		"Validate and count the rows in memory without touching the database")
	return cmd
}

// doLoad validates csvPath and replaces the table at dbPath in one
// transaction. With dryRun the rows go to an in-memory store instead.
func doLoad(ctx context.Context, logger *applog.Logger, out io.Writer, csvPath, dbPath string, dryRun bool) error {
	fmt.Fprintf(out, "Importing occurrences from %q...\n", csvPath)

	ds, err := csvfile.New(csvPath).Load(ctx)
	if err != nil {
		return errs.New("load csv: %v", err)
	}

	var (
		w    dataset.Writer
		dest = dbPath
	)
	if dryRun {
		w, dest = memory.New(nil), "memory (dry run)"
	} else {
		repo, err := storage.NewSQLiteRepository(dbPath)
		if err != nil {
			return errs.Wrap(err)
		}
		defer func() { _ = repo.Close() }()
		w = repo.Importer(csvPath)
	}

	n, err := w.ReplaceOccurrences(ctx, ds)
	if err != nil {
		return errs.New("import failed: %v", err)
	}
	logger.InfoContext(ctx, "Import complete",
		applog.FieldRows, n,
		"destination", dest,
		applog.FieldOperation, applog.OpImport)
	fmt.Fprintf(out, "Imported %d rows into %s.\n", n, dest)
	return nil
}
