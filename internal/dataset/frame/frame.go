// Package frame turns raw tabular input into a typed occurrence dataset.
//
// Input goes through a gota DataFrame so that column coercion and column
// dropping happen once, in one place, regardless of where the table came
// from (CSV file, SQLite rows, Google Sheets values).
package frame

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"ocorrencias/internal/core"
	"ocorrencias/internal/dataset"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// intColumns are coerced to integers; every other column stays text.
var intColumns = []string{
	core.ColFeminino, core.ColMasculino, core.ColTotalVitimas, core.ColAno, core.ColMes,
}

// textColumns are trimmed on load; their values become filter options.
var textColumns = []string{core.ColEvento, core.ColMunicipio, core.ColCodigoMunicipio}

func loadOptions() []dataframe.LoadOption {
	types := map[string]series.Type{core.ColCodigoMunicipio: series.String}
	for _, c := range intColumns {
		types[c] = series.Int
	}
	return []dataframe.LoadOption{
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		// No text is a missing marker: "NA" is a valid municipality, and
		// integer columns reject anything that does not parse.
		dataframe.NaNValues([]string{}),
	}
}

// FromCSV reads a header-first CSV stream.
func FromCSV(r io.Reader) (*core.Dataset, error) {
	return build(dataframe.ReadCSV(r, loadOptions()...))
}

// FromRecords reads a header-first record matrix.
func FromRecords(records [][]string) (*core.Dataset, error) {
	if len(records) < 2 {
		return nil, dataset.Error.New("no rows")
	}
	return build(dataframe.LoadRecords(records, loadOptions()...))
}

func build(df dataframe.DataFrame) (*core.Dataset, error) {
	if df.Err != nil {
		return nil, dataset.Error.Wrap(df.Err)
	}

	names := df.Names()
	var missing []string
	for _, c := range core.RequiredColumns {
		if !slices.Contains(names, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, dataset.Error.New("missing columns: %s", strings.Join(missing, ", "))
	}

	var drop []string
	for _, c := range core.DroppedColumns {
		if slices.Contains(names, c) {
			drop = append(drop, c)
		}
	}
	if len(drop) > 0 {
		df = df.Drop(drop)
		if df.Err != nil {
			return nil, dataset.Error.Wrap(df.Err)
		}
	}

	ints := make(map[string][]int, len(intColumns))
	for _, c := range intColumns {
		col := df.Col(c)
		for i, nan := range col.IsNaN() {
			if nan {
				return nil, dataset.Error.New("row %d: column %q is not an integer", i+1, c)
			}
		}
		vs, err := col.Int()
		if err != nil {
			return nil, dataset.Error.New("column %q: %v", c, err)
		}
		ints[c] = vs
	}

	records := df.Records()
	text := make(map[string][]string, len(textColumns))
	for _, c := range textColumns {
		idx := slices.Index(records[0], c)
		vs := make([]string, df.Nrow())
		for i := range vs {
			v := strings.TrimSpace(records[i+1][idx])
			records[i+1][idx] = v
			vs[i] = v
		}
		text[c] = vs
	}
	evento := text[core.ColEvento]
	municipio := text[core.ColMunicipio]
	codigo := text[core.ColCodigoMunicipio]

	ds := &core.Dataset{
		Columns: records[0],
		Rows:    make([]core.Occurrence, 0, df.Nrow()),
	}
	for i := 0; i < df.Nrow(); i++ {
		o := core.Occurrence{
			Evento:          evento[i],
			Feminino:        ints[core.ColFeminino][i],
			Masculino:       ints[core.ColMasculino][i],
			TotalVitimas:    ints[core.ColTotalVitimas][i],
			Municipio:       municipio[i],
			CodigoMunicipio: codigo[i],
			Ano:             ints[core.ColAno][i],
			Mes:             ints[core.ColMes][i],
			Fields:          records[i+1],
		}
		if err := o.Validate(); err != nil {
			return nil, dataset.Error.Wrap(fmt.Errorf("row %d: %w", i+1, err))
		}
		ds.Rows = append(ds.Rows, o)
	}
	return ds, nil
}

// Records renders ds back to a header-first record matrix.
func Records(ds *core.Dataset) [][]string {
	out := make([][]string, 0, ds.Len()+1)
	out = append(out, append([]string(nil), ds.Columns...))
	for _, o := range ds.Rows {
		row := make([]string, len(ds.Columns))
		for i := range ds.Columns {
			row[i] = ds.Value(o, i)
		}
		out = append(out, row)
	}
	return out
}
