package core

import (
	"errors"
	"testing"
)

func TestOccurrenceValidate(t *testing.T) {
	good := Occurrence{Evento: "Roubo", Feminino: 1, TotalVitimas: 1, Municipio: "X", Ano: 2020, Mes: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		o    Occurrence
		want error
	}{
		{"month zero", Occurrence{Evento: "A", Municipio: "X", Ano: 2020, Mes: 0}, ErrInvalidMonth},
		{"month 13", Occurrence{Evento: "A", Municipio: "X", Ano: 2020, Mes: 13}, ErrInvalidMonth},
		{"year zero", Occurrence{Evento: "A", Municipio: "X", Ano: 0, Mes: 1}, ErrInvalidYear},
		{"negative count", Occurrence{Evento: "A", Municipio: "X", Ano: 2020, Mes: 1, Masculino: -1}, ErrNegativeCount},
		{"empty event", Occurrence{Evento: " ", Municipio: "X", Ano: 2020, Mes: 1}, ErrEmptyEvent},
		{"empty municipality", Occurrence{Evento: "A", Municipio: "", Ano: 2020, Mes: 1}, ErrEmptyPlace},
	}
	for _, tc := range cases {
		if err := tc.o.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDatasetValueFallsBackToAttributes(t *testing.T) {
	ds := NewDataset([]Occurrence{{Evento: "A", Feminino: 2, CodigoMunicipio: "0012", Ano: 2021, Mes: 3}})
	if ds.Len() != 1 {
		t.Fatalf("len=%d", ds.Len())
	}
	row := ds.Rows[0]
	if got := ds.Value(row, ds.ColumnIndex(ColCodigoMunicipio)); got != "0012" {
		t.Fatalf("codigo=%q", got)
	}
	if got := ds.Value(row, ds.ColumnIndex(ColFeminino)); got != "2" {
		t.Fatalf("feminino=%q", got)
	}
	if got := ds.Value(row, 99); got != "" {
		t.Fatalf("out of range=%q", got)
	}

	var nilDS *Dataset
	if nilDS.Len() != 0 {
		t.Fatalf("nil dataset must have zero rows")
	}
}
