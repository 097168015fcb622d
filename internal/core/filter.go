package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// All is the sentinel option meaning "no restriction on this dimension".
const All = "Todos"

// Gender is the single-valued gender selection.
type Gender string

const (
	GenderAll    Gender = All
	GenderFemale Gender = "Feminino"
	GenderMale   Gender = "Masculino"
)

// Genders is the fixed option list; gender is two count columns,
// not a categorical column, so it is never derived from data.
func Genders() []Gender {
	return []Gender{GenderAll, GenderFemale, GenderMale}
}

// ParseGender accepts the option labels. Empty means GenderAll.
func ParseGender(s string) (Gender, error) {
	switch Gender(strings.TrimSpace(s)) {
	case "", GenderAll:
		return GenderAll, nil
	case GenderFemale:
		return GenderFemale, nil
	case GenderMale:
		return GenderMale, nil
	}
	return "", fmt.Errorf("invalid gender %q", s)
}

// Choice is a multi-valued selection. All short-circuits the filter;
// an empty non-All choice matches nothing.
type Choice[T comparable] struct {
	All    bool
	Values []T
}

// AllOf returns the sentinel choice.
func AllOf[T comparable]() Choice[T] {
	return Choice[T]{All: true}
}

// Only returns a choice restricted to vs.
func Only[T comparable](vs ...T) Choice[T] {
	return Choice[T]{Values: vs}
}

// Accepts reports whether v passes this dimension.
func (c Choice[T]) Accepts(v T) bool {
	return c.All || slices.Contains(c.Values, v)
}

// Selection holds the current value of every filter.
type Selection struct {
	Events         Choice[string]
	Gender         Gender
	Municipalities Choice[string]
	Years          Choice[int]
	Months         Choice[int]
}

// DefaultSelection selects everything.
func DefaultSelection() Selection {
	return Selection{
		Events:         AllOf[string](),
		Gender:         GenderAll,
		Municipalities: AllOf[string](),
		Years:          AllOf[int](),
		Months:         AllOf[int](),
	}
}

// Matches applies the five predicates to one row.
func (s Selection) Matches(o Occurrence) bool {
	if !s.Events.Accepts(o.Evento) {
		return false
	}
	switch s.Gender {
	case GenderFemale:
		if o.Feminino <= 0 {
			return false
		}
	case GenderMale:
		if o.Masculino <= 0 {
			return false
		}
	}
	return s.Municipalities.Accepts(o.Municipio) &&
		s.Years.Accepts(o.Ano) &&
		s.Months.Accepts(o.Mes)
}

// Filter returns the rows matching sel, in their original order.
func Filter(rows []Occurrence, sel Selection) []Occurrence {
	out := make([]Occurrence, 0, len(rows))
	for _, o := range rows {
		if sel.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// Key is a canonical representation of the selection; two selections
// with the same key always produce the same filtered view.
func (s Selection) Key() string {
	var b strings.Builder
	writeStrings(&b, "evento", s.Events)
	b.WriteString("|genero=")
	b.WriteString(string(s.Gender))
	b.WriteByte('|')
	writeStrings(&b, "municipio", s.Municipalities)
	b.WriteByte('|')
	writeInts(&b, "ano", s.Years)
	b.WriteByte('|')
	writeInts(&b, "mes", s.Months)
	return b.String()
}

func writeStrings(b *strings.Builder, name string, c Choice[string]) {
	b.WriteString(name)
	b.WriteByte('=')
	if c.All {
		b.WriteString("*")
		return
	}
	vs := append([]string(nil), c.Values...)
	slices.Sort(vs)
	vs = slices.Compact(vs)
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(v))
	}
}

func writeInts(b *strings.Builder, name string, c Choice[int]) {
	b.WriteString(name)
	b.WriteByte('=')
	if c.All {
		b.WriteString("*")
		return
	}
	vs := append([]int(nil), c.Values...)
	slices.Sort(vs)
	vs = slices.Compact(vs)
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
}
