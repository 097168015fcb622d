package core

import "slices"

// Options are the values offered by the selection widgets, without the
// All sentinel (the UI prepends it).
type Options struct {
	Events         []string `json:"evento"`
	Genders        []Gender `json:"genero"`
	Municipalities []string `json:"municipio"`
	Years          []int    `json:"ano"`
	Months         []int    `json:"mes"`
}

// DeriveOptions computes the sorted distinct values of each filterable
// column over the full dataset. Month options depend on the year choice:
// with a year restriction only months occurring in the selected years
// are offered. No other dimension affects another's options.
func DeriveOptions(rows []Occurrence, years Choice[int]) Options {
	events := map[string]struct{}{}
	municipalities := map[string]struct{}{}
	yearSet := map[int]struct{}{}
	monthSet := map[int]struct{}{}

	for _, o := range rows {
		events[o.Evento] = struct{}{}
		municipalities[o.Municipio] = struct{}{}
		yearSet[o.Ano] = struct{}{}
		if years.Accepts(o.Ano) {
			monthSet[o.Mes] = struct{}{}
		}
	}

	return Options{
		Events:         sortedKeys(events),
		Genders:        Genders(),
		Municipalities: sortedKeys(municipalities),
		Years:          sortedKeys(yearSet),
		Months:         sortedKeys(monthSet),
	}
}

func sortedKeys[T int | string](m map[T]struct{}) []T {
	out := make([]T, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
