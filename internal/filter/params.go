package filter

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"brokerage-portal/internal/currency"
)

// Query parameter names accepted by the listing endpoints.
const (
	ParamOperacion    = "operacion"
	ParamTipo         = "tipo"
	ParamRegion       = "region"
	ParamComuna       = "comuna"
	ParamBarrio       = "barrio"
	ParamMoneda       = "moneda"
	ParamMinUF        = "minUF"
	ParamMaxUF        = "maxUF"
	ParamMinCLP       = "minCLP"
	ParamMaxCLP       = "maxCLP"
	ParamMinPrecio    = "minPrecio"
	ParamMaxPrecio    = "maxPrecio"
	ParamMinDorm      = "minDorm"
	ParamMinBanos     = "minBanos"
	ParamMinEstac     = "minEstac"
	ParamMinM2Const   = "minM2Const"
	ParamMinM2Terreno = "minM2Terreno"
	ParamSort         = "sort"
)

// paramOrder fixes the order parameters are applied in. moneda comes before
// the generic price fields; the unit-specific ones override both.
var paramOrder = []string{
	ParamOperacion, ParamTipo, ParamRegion, ParamComuna, ParamBarrio,
	ParamMoneda, ParamMinPrecio, ParamMaxPrecio,
	ParamMinUF, ParamMaxUF, ParamMinCLP, ParamMaxCLP,
	ParamMinDorm, ParamMinBanos, ParamMinEstac, ParamMinM2Const, ParamMinM2Terreno,
}

// ParseCriteria builds criteria from query parameters. Unknown parameters are
// ignored and malformed numbers mean "no constraint".
func ParseCriteria(values url.Values) Criteria {
	return Criteria{}.WithParams(values)
}

// WithParams applies every recognized parameter present in values.
func (c Criteria) WithParams(values url.Values) Criteria {
	for _, name := range paramOrder {
		if _, ok := values[name]; !ok {
			continue
		}
		c = c.WithParam(name, values.Get(name))
	}
	return c
}

// WithParam applies one named parameter. An empty value clears it.
func (c Criteria) WithParam(name, value string) Criteria {
	value = strings.TrimSpace(value)
	switch name {
	case ParamOperacion:
		return c.WithOperacion(value)
	case ParamTipo:
		return c.WithTipo(value)
	case ParamRegion:
		return c.WithRegion(value)
	case ParamComuna:
		return c.WithComuna(value)
	case ParamBarrio:
		return c.WithBarrio(value)
	case ParamMoneda:
		if value == "" {
			return c.WithUnit("")
		}
		return c.WithUnit(currency.ParseUnit(value))
	case ParamMinPrecio:
		return c.WithMinPrice(value)
	case ParamMaxPrecio:
		return c.WithMaxPrice(value)
	case ParamMinUF:
		return c.WithUnit(currency.UF).WithMinPrice(value)
	case ParamMaxUF:
		return c.WithUnit(currency.UF).WithMaxPrice(value)
	case ParamMinCLP:
		return c.WithUnit(currency.CLP).WithMinPrice(value)
	case ParamMaxCLP:
		return c.WithUnit(currency.CLP).WithMaxPrice(value)
	case ParamMinDorm:
		return c.WithMinDorm(value)
	case ParamMinBanos:
		return c.WithMinBanos(value)
	case ParamMinEstac:
		return c.WithMinEstac(value)
	case ParamMinM2Const:
		return c.WithMinM2Const(value)
	case ParamMinM2Terreno:
		return c.WithMinM2Terreno(value)
	}
	return c
}

// Values encodes c back into query parameters. Prices use minPrecio/maxPrecio
// with moneda so the user's text survives a round trip.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	set := func(name, value string) {
		if value != "" {
			v.Set(name, value)
		}
	}
	set(ParamOperacion, c.Operacion)
	set(ParamTipo, c.Tipo)
	set(ParamRegion, c.Region)
	set(ParamComuna, c.Comuna)
	set(ParamBarrio, c.Barrio)
	if c.HasPriceBound() {
		set(ParamMoneda, string(c.PriceUnit()))
	}
	if c.MinPrice != nil {
		set(ParamMinPrecio, strconv.FormatInt(*c.MinPrice, 10))
	}
	if c.MaxPrice != nil {
		set(ParamMaxPrecio, strconv.FormatInt(*c.MaxPrice, 10))
	}
	setInt := func(name string, p *int) {
		if p != nil {
			set(name, strconv.Itoa(*p))
		}
	}
	setInt(ParamMinDorm, c.MinDorm)
	setInt(ParamMinBanos, c.MinBanos)
	setInt(ParamMinEstac, c.MinEstac)
	if c.MinM2Const != nil {
		set(ParamMinM2Const, strconv.FormatFloat(*c.MinM2Const, 'f', -1, 64))
	}
	if c.MinM2Terreno != nil {
		set(ParamMinM2Terreno, strconv.FormatFloat(*c.MinM2Terreno, 'f', -1, 64))
	}
	return v
}

func parseInt(text string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	return &n
}

// parseFloat accepts either decimal separator: "120,5" and "120.5".
func parseFloat(text string) *float64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
