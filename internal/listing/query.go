package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/geo"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/textnorm"
)

// Query is the part of the criteria a listing store can evaluate itself.
// Region and barrio never appear here: stores have no region column and
// barrio data is too sparse to filter on before the Tunquén tolerance runs.
type Query struct {
	Kind      models.ListingKind
	Operacion string
	// Tipo matches as an accent- and case-insensitive prefix
	Tipo string
	// Comunas holds every spelling of one canonical comuna
	Comunas []string

	// Price bounds in UF. Rows without a positive UF price are always
	// admitted so CLP-only listings reach the evaluator.
	MinUF *float64
	MaxUF *float64

	MinDorm      *int
	MinBanos     *int
	MinEstac     *int
	MinM2Const   *float64
	MinM2Terreno *float64

	Limit int
}

// DefaultLimit caps how many rows one query pulls from a store.
const DefaultLimit = 500

// Translate maps criteria to a store query. rate converts CLP bounds; when it
// is unknown, CLP bounds are left to the evaluator.
func Translate(c filter.Criteria, kind models.ListingKind, rate float64) Query {
	q := Query{
		Kind:         kind,
		Operacion:    strings.TrimSpace(c.Operacion),
		Tipo:         strings.TrimSpace(c.Tipo),
		MinDorm:      c.MinDorm,
		MinBanos:     c.MinBanos,
		MinEstac:     c.MinEstac,
		MinM2Const:   c.MinM2Const,
		MinM2Terreno: c.MinM2Terreno,
		Limit:        DefaultLimit,
	}
	if strings.TrimSpace(c.Comuna) != "" {
		q.Comunas = geo.ComunaAliases(c.Comuna)
	}

	min, max := c.Bounds(rate)
	q.MinUF = finite(min.Value, min.Set)
	q.MaxUF = finite(max.Value, max.Set)
	return q
}

func finite(v float64, set bool) *float64 {
	if !set || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// HasPriceBound reports whether the query narrows by UF price.
func (q Query) HasPriceBound() bool {
	return q.MinUF != nil || q.MaxUF != nil
}

// Values encodes q with the parameter names of the listing endpoint.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Operacion != "" {
		v.Set(filter.ParamOperacion, q.Operacion)
	}
	if q.Tipo != "" {
		v.Set(filter.ParamTipo, q.Tipo)
	}
	if len(q.Comunas) > 0 {
		v.Set(filter.ParamComuna, q.Comunas[0])
	}
	setFloat := func(name string, p *float64) {
		if p != nil {
			v.Set(name, strconv.FormatFloat(*p, 'f', -1, 64))
		}
	}
	setInt := func(name string, p *int) {
		if p != nil {
			v.Set(name, strconv.Itoa(*p))
		}
	}
	setFloat(filter.ParamMinUF, q.MinUF)
	setFloat(filter.ParamMaxUF, q.MaxUF)
	setInt(filter.ParamMinDorm, q.MinDorm)
	setInt(filter.ParamMinBanos, q.MinBanos)
	setInt(filter.ParamMinEstac, q.MinEstac)
	setFloat(filter.ParamMinM2Const, q.MinM2Const)
	setFloat(filter.ParamMinM2Terreno, q.MinM2Terreno)
	return v
}

// Admits reports whether a store running q would return l. In-memory stores
// use it directly. Text fields compare normalized and the listing comuna goes
// through the Tunquén indirection, so no row the evaluator accepts is lost.
func (q Query) Admits(l *models.Listing) bool {
	if op := textnorm.Normalize(q.Operacion); op != "" && textnorm.Normalize(l.Operacion) != op {
		return false
	}
	if q.Tipo != "" && !textnorm.HasPrefix(l.Tipo, q.Tipo) {
		return false
	}
	if len(q.Comunas) > 0 {
		key := textnorm.Normalize(geo.CanonicalComuna(l.Comuna, l.Barrio))
		found := false
		for _, c := range q.Comunas {
			if textnorm.Normalize(geo.CanonicalComuna(c, "")) == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if l.PrecioUF != nil && *l.PrecioUF > 0 {
		if q.MinUF != nil && *l.PrecioUF < *q.MinUF {
			return false
		}
		if q.MaxUF != nil && *l.PrecioUF > *q.MaxUF {
			return false
		}
	}

	return atLeast(l.Dormitorios, q.MinDorm) &&
		atLeast(l.Banos, q.MinBanos) &&
		atLeast(l.Estacionamientos, q.MinEstac) &&
		atLeast(l.M2Construidos, q.MinM2Const) &&
		atLeast(l.M2Terreno, q.MinM2Terreno)
}

func atLeast[T int | float64](v, min *T) bool {
	return min == nil || (v != nil && *v >= *min)
}
