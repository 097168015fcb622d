package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset/csvfile"
	applog "ocorrencias/internal/log"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
)

// maxListedIssues bounds the inconsistent rows printed by check.
const maxListedIssues = 10

type checkConfig struct {
	*rootConfig
	Strict bool
}

func newCheckCommand(root *rootConfig) *cobra.Command {
	cfg := &checkConfig{rootConfig: root}
	cmd := &cobra.Command{
		Use:   "check [CSVPATH]",
		Short: "Validate a CSV file and print a summary of its contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.CSVPath
			if len(args) == 1 {
				path = args[0]
			}
			return checkCmd(doCheck(cfg.Ctx, cfg.Logger, cfg.Out, path, cfg.Strict))
		},
	}
	cmd.Flags().BoolVar(&cfg.Strict, "strict", false,
		"Fail when total_vitimas differs from feminino + masculino on any row")
	return cmd
}

// doCheck loads csvPath with the dashboard's schema rules and reports the
// row count, distinct filter values and the victim-total consistency.
func doCheck(ctx context.Context, logger *applog.Logger, out io.Writer, csvPath string, strict bool) error {
	ds, err := csvfile.New(csvPath).Load(ctx)
	if err != nil {
		return errs.New("invalid dataset: %v", err)
	}

	opts := core.DeriveOptions(ds.Rows, core.AllOf[int]())
	issues := core.CheckConsistency(ds.Rows)
	gender := core.SumGender(ds.Rows)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", csvPath)
	fmt.Fprintf(tw, "rows\t%d\n", ds.Len())
	fmt.Fprintf(tw, "columns\t%s\n", strings.Join(ds.Columns, ", "))
	fmt.Fprintf(tw, "events\t%d\n", len(opts.Events))
	fmt.Fprintf(tw, "municipalities\t%d\n", len(opts.Municipalities))
	if n := len(opts.Years); n > 0 {
		fmt.Fprintf(tw, "years\t%d (%d-%d)\n", n, opts.Years[0], opts.Years[n-1])
	}
	fmt.Fprintf(tw, "months\t%d\n", len(opts.Months))
	fmt.Fprintf(tw, "feminino\t%d\n", gender.Feminino)
	fmt.Fprintf(tw, "masculino\t%d\n", gender.Masculino)
	fmt.Fprintf(tw, "inconsistent rows\t%d\n", len(issues))
	if err := tw.Flush(); err != nil {
		return errs.Wrap(err)
	}

	for i, is := range issues {
		if i == maxListedIssues {
			fmt.Fprintf(out, "  ... and %d more\n", len(issues)-maxListedIssues)
			break
		}
		fmt.Fprintf(out, "  row %d: total_vitimas=%d feminino=%d masculino=%d\n",
			is.Row+1, is.TotalVitimas, is.Feminino, is.Masculino)
	}

	logger.DebugContext(ctx, "Check complete",
		applog.FieldRows, ds.Len(),
		"inconsistent", len(issues),
		applog.FieldOperation, applog.OpValidate)

	if strict && len(issues) > 0 {
		return errs.New("%d rows have total_vitimas != feminino + masculino", len(issues))
	}
	return nil
}
