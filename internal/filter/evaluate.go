package filter

import (
	"strings"

	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/geo"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/textnorm"
)

// predicate is Criteria with every string normalized and every price bound
// converted to UF once per evaluation.
type predicate struct {
	operacion string
	tipo      string
	region    string
	comuna    string
	barrio    string

	// sparseParent is the comuna whose listings may omit the requested barrio
	sparseParent string

	priced   bool
	min, max currency.Bound
	rate     float64

	minDorm, minBanos, minEstac *int
	minM2Const, minM2Terreno    *float64
}

func compile(c Criteria, rate float64) predicate {
	p := predicate{
		operacion:    textnorm.Normalize(c.Operacion),
		tipo:         textnorm.Normalize(c.Tipo),
		barrio:       textnorm.Normalize(c.Barrio),
		rate:         rate,
		minDorm:      c.MinDorm,
		minBanos:     c.MinBanos,
		minEstac:     c.MinEstac,
		minM2Const:   c.MinM2Const,
		minM2Terreno: c.MinM2Terreno,
	}

	if c.Region != "" {
		if r, ok := geo.FindRegion(c.Region); ok {
			p.region = textnorm.Normalize(r.Name)
		} else {
			p.region = textnorm.Normalize(c.Region)
		}
	}
	if strings.TrimSpace(c.Comuna) != "" {
		p.comuna = textnorm.Normalize(geo.CanonicalComuna(c.Comuna, ""))
	}
	if parent, ok := geo.SparseBarrioParent(c.Barrio); ok {
		p.sparseParent = textnorm.Normalize(parent)
	}

	p.min, p.max = c.Bounds(rate)
	p.priced = p.min.Set || p.max.Set
	return p
}

func (p *predicate) match(l *models.Listing) bool {
	if p.operacion != "" && textnorm.Normalize(l.Operacion) != p.operacion {
		return false
	}
	if p.tipo != "" && !strings.HasPrefix(textnorm.Normalize(l.Tipo), p.tipo) {
		return false
	}

	if p.region != "" {
		r, ok := geo.InferRegion(l.Comuna, l.Barrio)
		if !ok || textnorm.Normalize(r.Name) != p.region {
			return false
		}
	}

	var canonical string
	if p.comuna != "" || p.sparseParent != "" {
		canonical = textnorm.Normalize(geo.CanonicalComuna(l.Comuna, l.Barrio))
	}
	if p.comuna != "" && canonical != p.comuna {
		return false
	}

	if p.barrio != "" {
		listingBarrio := textnorm.Normalize(l.Barrio)
		switch {
		case listingBarrio != "":
			if !strings.Contains(listingBarrio, p.barrio) {
				return false
			}
		case p.sparseParent == "" || canonical != p.sparseParent:
			return false
		}
	}

	if p.priced {
		v, ok := currency.ComparableUF(l.PrecioUF, l.PrecioCLP, p.rate)
		if !ok || v < p.min.Value || v > p.max.Value {
			return false
		}
	}

	return atLeastInt(l.Dormitorios, p.minDorm) &&
		atLeastInt(l.Banos, p.minBanos) &&
		atLeastInt(l.Estacionamientos, p.minEstac) &&
		atLeastFloat(l.M2Construidos, p.minM2Const) &&
		atLeastFloat(l.M2Terreno, p.minM2Terreno)
}

func atLeastInt(v, min *int) bool {
	if min == nil {
		return true
	}
	return v != nil && *v >= *min
}

func atLeastFloat(v, min *float64) bool {
	if min == nil {
		return true
	}
	return v != nil && *v >= *min
}

// Matches reports whether a single listing satisfies every specified criterion.
func Matches(l models.Listing, c Criteria, rate float64) bool {
	p := compile(c, rate)
	return p.match(&l)
}

// Evaluate returns the listings that satisfy c, in their original order. The
// input slice is not modified. rate may be zero when no exchange rate is known.
func Evaluate(listings []models.Listing, c Criteria, rate float64) []models.Listing {
	out := make([]models.Listing, 0, len(listings))
	if c.IsZero() {
		return append(out, listings...)
	}

	p := compile(c, rate)
	for i := range listings {
		if p.match(&listings[i]) {
			out = append(out, listings[i])
		}
	}
	return out
}
