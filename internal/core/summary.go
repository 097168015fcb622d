package core

import (
	"slices"
	"time"
)

// GenderShare is one slice of the gender donut.
type GenderShare struct {
	Label   string  `json:"label"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// GenderTotals sums both gender columns over the filtered rows.
type GenderTotals struct {
	Feminino  int `json:"feminino"`
	Masculino int `json:"masculino"`
}

// YearTotals is one group of the paired per-year bars.
type YearTotals struct {
	Ano       int `json:"ano"`
	Feminino  int `json:"feminino"`
	Masculino int `json:"masculino"`
}

// TimePoint is the victims sum for one (year, month).
type TimePoint struct {
	Ano          int       `json:"ano"`
	Mes          int       `json:"mes"`
	Data         time.Time `json:"data"`
	TotalVitimas int       `json:"total_vitimas"`
}

// Summary holds the three chart views of a filtered dataset.
type Summary struct {
	Gender GenderTotals `json:"genero"`
	ByYear []YearTotals `json:"por_ano"`
	Series []TimePoint  `json:"tempo"`
}

// SumGender returns the gender totals of rows.
func SumGender(rows []Occurrence) GenderTotals {
	var t GenderTotals
	for _, o := range rows {
		t.Feminino += o.Feminino
		t.Masculino += o.Masculino
	}
	return t
}

// Shares returns the donut slices with percentage of the total.
func (t GenderTotals) Shares() []GenderShare {
	sum := t.Feminino + t.Masculino
	pct := func(v int) float64 {
		if sum == 0 {
			return 0
		}
		return float64(v) * 100 / float64(sum)
	}
	return []GenderShare{
		{Label: ColFeminino, Total: t.Feminino, Percent: pct(t.Feminino)},
		{Label: ColMasculino, Total: t.Masculino, Percent: pct(t.Masculino)},
	}
}

// VictimsByYear groups rows by year, ascending.
func VictimsByYear(rows []Occurrence) []YearTotals {
	idx := map[int]int{}
	var out []YearTotals
	for _, o := range rows {
		i, ok := idx[o.Ano]
		if !ok {
			i = len(out)
			idx[o.Ano] = i
			out = append(out, YearTotals{Ano: o.Ano})
		}
		out[i].Feminino += o.Feminino
		out[i].Masculino += o.Masculino
	}
	slices.SortFunc(out, func(a, b YearTotals) int { return a.Ano - b.Ano })
	return out
}

// VictimsOverTime groups rows by (year, month), one point per pair
// present, dated on the first of the month and sorted by date.
func VictimsOverTime(rows []Occurrence) []TimePoint {
	type ym struct{ y, m int }
	idx := map[ym]int{}
	var out []TimePoint
	for _, o := range rows {
		k := ym{o.Ano, o.Mes}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, TimePoint{
				Ano:  o.Ano,
				Mes:  o.Mes,
				Data: FirstOfMonth(o.Ano, o.Mes),
			})
		}
		out[i].TotalVitimas += o.TotalVitimas
	}
	slices.SortFunc(out, func(a, b TimePoint) int { return a.Data.Compare(b.Data) })
	return out
}

// FirstOfMonth returns the UTC midnight of day 1 of (year, month).
func FirstOfMonth(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// Summarize computes all chart views of rows.
func Summarize(rows []Occurrence) Summary {
	return Summary{
		Gender: SumGender(rows),
		ByYear: VictimsByYear(rows),
		Series: VictimsOverTime(rows),
	}
}

// Inconsistency is a row whose total differs from the sum of its
// gender columns.
type Inconsistency struct {
	Row          int `json:"row"`
	TotalVitimas int `json:"total_vitimas"`
	Feminino     int `json:"feminino"`
	Masculino    int `json:"masculino"`
}

// CheckConsistency lists rows where total_vitimas != feminino + masculino.
// The donut total equals the sum of total_vitimas only when this is empty.
func CheckConsistency(rows []Occurrence) []Inconsistency {
	var out []Inconsistency
	for i, o := range rows {
		if o.TotalVitimas != o.Feminino+o.Masculino {
			out = append(out, Inconsistency{
				Row:          i,
				TotalVitimas: o.TotalVitimas,
				Feminino:     o.Feminino,
				Masculino:    o.Masculino,
			})
		}
	}
	return out
}

// View is the derived, per-request state of the dashboard.
type View struct {
	Selection Selection
	Options   Options
	Rows      []Occurrence
	Summary   Summary
}
