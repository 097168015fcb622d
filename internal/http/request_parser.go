// Package http provides HTTP server and handler implementations.
//
// This file turns dashboard query strings into a core.Selection and back.
// Multi-valued filters use repeated parameters (?ano=2020&ano=2021).

package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"ocorrencias/internal/core"

	"github.com/go-playground/validator/v10"
)

// Query parameter names.
const (
	ParamPage         = "pagina"
	ParamEvent        = "evento"
	ParamGender       = "genero"
	ParamMunicipality = "municipio"
	ParamYear         = "ano"
	ParamMonth        = "mes"
)

// Pages of the dashboard.
const (
	PageCharts = "graficos"
	PageTable  = "tabela"
)

// ErrInvalidQuery is returned for malformed or out-of-range parameters.
var ErrInvalidQuery = errors.New("invalid query")

// DashboardRequest is a parsed dashboard query.
type DashboardRequest struct {
	Page      string
	Selection core.Selection
}

// dashboardQuery holds the scalar and integer parameters checked by the validator.
type dashboardQuery struct {
	Page   string `query:"pagina" validate:"oneof=graficos tabela"`
	Gender string `query:"genero" validate:"oneof=Todos Feminino Masculino"`
	Years  []int  `query:"ano" validate:"dive,gt=0"`
	Months []int  `query:"mes" validate:"dive,min=1,max=12"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// ParseDashboardRequest reads the page and the five filters from q.
// An absent parameter selects everything; a parameter present with only
// empty values selects nothing; Todos among the values selects everything.
func ParseDashboardRequest(q url.Values) (DashboardRequest, error) {
	dq := dashboardQuery{
		Page:   sanitizeInput(q.Get(ParamPage)),
		Gender: sanitizeInput(q.Get(ParamGender)),
	}
	if dq.Page == "" {
		dq.Page = PageCharts
	}
	if dq.Gender == "" {
		dq.Gender = core.All
	}

	years, err := parseInts(q, ParamYear)
	if err != nil {
		return DashboardRequest{}, err
	}
	months, err := parseInts(q, ParamMonth)
	if err != nil {
		return DashboardRequest{}, err
	}
	dq.Years, dq.Months = years.Values, months.Values

	if err := validate.Struct(dq); err != nil {
		return DashboardRequest{}, validationError(err)
	}

	gender, err := core.ParseGender(dq.Gender)
	if err != nil {
		return DashboardRequest{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	return DashboardRequest{
		Page: dq.Page,
		Selection: core.Selection{
			Events:         parseStrings(q, ParamEvent),
			Gender:         gender,
			Municipalities: parseStrings(q, ParamMunicipality),
			Years:          years,
			Months:         months,
		},
	}, nil
}

// ParseYears reads only the year filter; used by the options endpoint.
func ParseYears(q url.Values) (core.Choice[int], error) {
	years, err := parseInts(q, ParamYear)
	if err != nil {
		return core.Choice[int]{}, err
	}
	if err := validate.Var(years.Values, "dive,gt=0"); err != nil {
		return core.Choice[int]{}, fmt.Errorf("%w: %s", ErrInvalidQuery, ParamYear)
	}
	return years, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			names = append(names, strings.SplitN(fe.Field(), "[", 2)[0])
		}
		return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(names, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
}

func parseStrings(q url.Values, key string) core.Choice[string] {
	raw, ok := q[key]
	if !ok {
		return core.AllOf[string]()
	}
	vs := make([]string, 0, len(raw))
	for _, v := range raw {
		v = sanitizeInput(v)
		switch v {
		case core.All:
			return core.AllOf[string]()
		case "":
			continue
		}
		vs = append(vs, v)
	}
	return core.Only(vs...)
}

func parseInts(q url.Values, key string) (core.Choice[int], error) {
	raw, ok := q[key]
	if !ok {
		return core.AllOf[int](), nil
	}
	vs := make([]int, 0, len(raw))
	for _, v := range raw {
		v = sanitizeInput(v)
		switch v {
		case core.All:
			return core.AllOf[int](), nil
		case "":
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.Choice[int]{}, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidQuery, key, v)
		}
		vs = append(vs, n)
	}
	return core.Only(vs...), nil
}

// EncodeSelection is the inverse of ParseDashboardRequest for the filters.
// Choices that select everything are omitted; empty choices are kept as a
// single empty value so they survive a round trip.
func EncodeSelection(sel core.Selection) url.Values {
	q := url.Values{}
	putStrings(q, ParamEvent, sel.Events)
	if sel.Gender != "" && sel.Gender != core.GenderAll {
		q.Set(ParamGender, string(sel.Gender))
	}
	putStrings(q, ParamMunicipality, sel.Municipalities)
	putInts(q, ParamYear, sel.Years)
	putInts(q, ParamMonth, sel.Months)
	return q
}

func putStrings(q url.Values, key string, c core.Choice[string]) {
	if c.All {
		return
	}
	if len(c.Values) == 0 {
		q[key] = []string{""}
		return
	}
	q[key] = append([]string(nil), c.Values...)
}

func putInts(q url.Values, key string, c core.Choice[int]) {
	if c.All {
		return
	}
	if len(c.Values) == 0 {
		q[key] = []string{""}
		return
	}
	for _, v := range c.Values {
		q.Add(key, strconv.Itoa(v))
	}
}
