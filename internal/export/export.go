// Package export writes the filtered occurrence table for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"ocorrencias/internal/core"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the exported rows.
const SheetName = "Ocorrencias"

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CSV writes the header and rows of the filtered table in dataset column order.
func CSV(w io.Writer, ds *core.Dataset, rows []core.Occurrence) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(ds.Columns))
	for _, o := range rows {
		for i := range ds.Columns {
			rec[i] = ds.Value(o, i)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSX writes the filtered table as a workbook. Count columns are stored as
// numbers; the municipality code stays text so leading zeros survive.
func XLSX(w io.Writer, ds *core.Dataset, rows []core.Occurrence) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	numeric := map[string]bool{
		core.ColFeminino: true, core.ColMasculino: true, core.ColTotalVitimas: true,
		core.ColAno: true, core.ColMes: true,
	}
	for r, o := range rows {
		row := make([]any, len(ds.Columns))
		for i, c := range ds.Columns {
			v := ds.Value(o, i)
			if numeric[c] {
				if n, err := strconv.Atoi(v); err == nil {
					row[i] = n
					continue
				}
			}
			row[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if len(ds.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(ds.Columns))
		if err := f.SetColWidth(SheetName, "A", last, 18); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
		if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", last, len(rows)+1), nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
