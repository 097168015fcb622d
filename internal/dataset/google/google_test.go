package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ocorrencias/internal/dataset"

	goption "google.golang.org/api/option"
)

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"evento", "feminino", "masculino", "total_vitimas", "municipio", "codigo_municipio_dv", "ano", "mes", "agente"},
		{"Roubo", 1.0, 0.0, 1.0, "Formosa", "0520800", 2020.0, 1.0, "x"},
		{},
		{"Furto", "0", "2", "2", "Planaltina", "0521730", "2021", "12"},
	}
	ds, err := parseValues(values)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	if ds.Rows[0].Feminino != 1 || ds.Rows[0].Ano != 2020 {
		t.Fatalf("unexpected coercion: %+v", ds.Rows[0])
	}
	if ds.Rows[1].Mes != 12 || ds.Rows[1].CodigoMunicipio != "0521730" {
		t.Fatalf("unexpected row: %+v", ds.Rows[1])
	}
	if ds.ColumnIndex("agente") != -1 {
		t.Fatalf("agente must be dropped")
	}
}

func TestParseValuesErrors(t *testing.T) {
	if _, err := parseValues(nil); !dataset.Error.Has(err) {
		t.Fatalf("expected dataset error for empty range, got %v", err)
	}
	wide := [][]interface{}{{"evento"}, {"a", "b"}}
	if _, err := parseValues(wide); !dataset.Error.Has(err) {
		t.Fatalf("expected dataset error for wide row, got %v", err)
	}
}

func TestClientLoadAgainstFakeAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-id/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range": "ocorrencias!A1:H2",
			"values": [][]string{
				{"evento", "feminino", "masculino", "total_vitimas", "municipio", "codigo_municipio_dv", "ano", "mes"},
				{"Roubo", "1", "1", "2", "Formosa", "0520800", "2022", "5"},
			},
		})
	}))
	defer srv.Close()

	c, err := New(context.Background(), "sheet-id", "",
		goption.WithEndpoint(srv.URL+"/"), goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ds, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Len() != 1 || ds.Rows[0].TotalVitimas != 2 {
		t.Fatalf("unexpected dataset: %+v", ds.Rows)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNewFromConfigRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromConfig(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}
