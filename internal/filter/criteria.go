// Package filter evaluates listing search criteria: the immutable criteria
// value, the predicate evaluator and price sorting.
package filter

import (
	"brokerage-portal/internal/currency"
)

// Criteria is one set of search filters. Empty strings and nil pointers mean
// "not specified". Values are never mutated in place: every With method
// returns a modified copy, so a draft and an applied snapshot can share
// pointers safely.
type Criteria struct {
	Operacion string `json:"operacion,omitempty"`
	Tipo      string `json:"tipo,omitempty"`
	Region    string `json:"region,omitempty"`
	Comuna    string `json:"comuna,omitempty"`
	Barrio    string `json:"barrio,omitempty"`

	// Unit applies to MinPrice and MaxPrice. Empty means UF.
	Unit     currency.Unit `json:"moneda,omitempty"`
	MinPrice *int64        `json:"minPrecio,omitempty"`
	MaxPrice *int64        `json:"maxPrecio,omitempty"`

	MinDorm      *int     `json:"minDorm,omitempty"`
	MinBanos     *int     `json:"minBanos,omitempty"`
	MinEstac     *int     `json:"minEstac,omitempty"`
	MinM2Const   *float64 `json:"minM2Const,omitempty"`
	MinM2Terreno *float64 `json:"minM2Terreno,omitempty"`
}

// IsZero reports whether no criterion is specified. The unit alone does not
// count as a criterion.
func (c Criteria) IsZero() bool {
	return c.Operacion == "" && c.Tipo == "" && c.Region == "" &&
		c.Comuna == "" && c.Barrio == "" &&
		c.MinPrice == nil && c.MaxPrice == nil &&
		c.MinDorm == nil && c.MinBanos == nil && c.MinEstac == nil &&
		c.MinM2Const == nil && c.MinM2Terreno == nil
}

// HasPriceBound reports whether a minimum or maximum price was given.
func (c Criteria) HasPriceBound() bool {
	return c.MinPrice != nil || c.MaxPrice != nil
}

// PriceUnit returns the unit bounds are expressed in.
func (c Criteria) PriceUnit() currency.Unit {
	if c.Unit == currency.CLP {
		return currency.CLP
	}
	return currency.UF
}

// Bounds converts the price bounds to UF using rate.
func (c Criteria) Bounds(rate float64) (min, max currency.Bound) {
	unit := c.PriceUnit()
	return currency.BoundToUF(c.MinPrice, unit, rate, true),
		currency.BoundToUF(c.MaxPrice, unit, rate, false)
}

func (c Criteria) WithOperacion(v string) Criteria { c.Operacion = v; return c }
func (c Criteria) WithTipo(v string) Criteria      { c.Tipo = v; return c }
func (c Criteria) WithRegion(v string) Criteria    { c.Region = v; return c }
func (c Criteria) WithBarrio(v string) Criteria    { c.Barrio = v; return c }

// WithComuna sets the comuna. The barrio is dropped because it belongs to the
// previous comuna in the cascading selects.
func (c Criteria) WithComuna(v string) Criteria {
	if v != c.Comuna {
		c.Barrio = ""
	}
	c.Comuna = v
	return c
}

func (c Criteria) WithUnit(u currency.Unit) Criteria { c.Unit = u; return c }

// WithMinPrice parses user text such as "100.000". Malformed text clears the
// bound.
func (c Criteria) WithMinPrice(text string) Criteria {
	c.MinPrice = currency.ParseAmount(text)
	return c
}

func (c Criteria) WithMaxPrice(text string) Criteria {
	c.MaxPrice = currency.ParseAmount(text)
	return c
}

func (c Criteria) WithMinDorm(text string) Criteria  { c.MinDorm = parseInt(text); return c }
func (c Criteria) WithMinBanos(text string) Criteria { c.MinBanos = parseInt(text); return c }
func (c Criteria) WithMinEstac(text string) Criteria { c.MinEstac = parseInt(text); return c }

func (c Criteria) WithMinM2Const(text string) Criteria {
	c.MinM2Const = parseFloat(text)
	return c
}

func (c Criteria) WithMinM2Terreno(text string) Criteria {
	c.MinM2Terreno = parseFloat(text)
	return c
}
