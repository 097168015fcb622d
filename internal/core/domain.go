package core

import (
	"errors"
	"fmt"
	"strings"
)

// Column names of the occurrence dataset.
const (
	ColEvento          = "evento"
	ColFeminino        = "feminino"
	ColMasculino       = "masculino"
	ColTotalVitimas    = "total_vitimas"
	ColMunicipio       = "municipio"
	ColCodigoMunicipio = "codigo_municipio_dv"
	ColAno             = "ano"
	ColMes             = "mes"
)

// RequiredColumns must be present in every source, in any order.
var RequiredColumns = []string{
	ColEvento, ColFeminino, ColMasculino, ColTotalVitimas,
	ColMunicipio, ColCodigoMunicipio, ColAno, ColMes,
}

// DroppedColumns are auxiliary metadata never shown by the dashboard.
var DroppedColumns = []string{
	"agente", "arma", "faixa_etaria", "total_peso", "formulario", "abrangencia",
}

type (
	// Occurrence is one row of the dataset: an aggregated crime statistic
	// for a municipality, event type and (year, month).
	Occurrence struct {
		Evento          string
		Feminino        int
		Masculino       int
		TotalVitimas    int
		Municipio       string
		CodigoMunicipio string // opaque, zero-padded
		Ano             int
		Mes             int // 1-12

		// Fields holds the row as loaded, aligned with Dataset.Columns.
		Fields []string
	}

	// Dataset is the immutable, once-loaded table.
	Dataset struct {
		Columns []string
		Rows    []Occurrence
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrNegativeCount = errors.New("negative victim count")
	ErrEmptyEvent    = errors.New("empty event")
	ErrEmptyPlace    = errors.New("empty municipality")
)

func (o Occurrence) Validate() error {
	if o.Mes < 1 || o.Mes > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, o.Mes)
	}
	if o.Ano <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, o.Ano)
	}
	if o.Feminino < 0 || o.Masculino < 0 || o.TotalVitimas < 0 {
		return ErrNegativeCount
	}
	if strings.TrimSpace(o.Evento) == "" {
		return ErrEmptyEvent
	}
	if strings.TrimSpace(o.Municipio) == "" {
		return ErrEmptyPlace
	}
	return nil
}

// Len returns the number of loaded rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of name in Columns, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the loaded text of column i for row o.
// Rows built without Fields fall back to the typed attributes.
func (d *Dataset) Value(o Occurrence, i int) string {
	if i < 0 || i >= len(d.Columns) {
		return ""
	}
	if i < len(o.Fields) {
		return o.Fields[i]
	}
	return o.Attr(d.Columns[i])
}

// Attr formats a known attribute by column name.
func (o Occurrence) Attr(col string) string {
	switch col {
	case ColEvento:
		return o.Evento
	case ColFeminino:
		return fmt.Sprint(o.Feminino)
	case ColMasculino:
		return fmt.Sprint(o.Masculino)
	case ColTotalVitimas:
		return fmt.Sprint(o.TotalVitimas)
	case ColMunicipio:
		return o.Municipio
	case ColCodigoMunicipio:
		return o.CodigoMunicipio
	case ColAno:
		return fmt.Sprint(o.Ano)
	case ColMes:
		return fmt.Sprint(o.Mes)
	}
	return ""
}

// NewDataset builds a dataset from typed rows with the required columns
// as header. Used by fixtures and sources that only carry typed data.
func NewDataset(rows []Occurrence) *Dataset {
	cols := append([]string(nil), RequiredColumns...)
	out := make([]Occurrence, len(rows))
	for i, r := range rows {
		r.Fields = nil
		out[i] = r
	}
	return &Dataset{Columns: cols, Rows: out}
}
