package supabase

import (
	"net/url"
	"strconv"
	"strings"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/textnorm"
)

// QueryParams renders a listing query as PostgREST filters. Rows with a null
// or non-positive precio_uf pass the price filter so the evaluator can price
// them from precio_clp. Type and comuna are not sent: ilike does not fold
// accents and the comuna may only be known from the barrio.
func QueryParams(q listing.Query) url.Values {
	v := url.Values{}
	v.Set("select", "*")

	// Substring match keeps rows with stray whitespace around the value.
	if op := textnorm.Normalize(q.Operacion); op != "" {
		v.Set("operacion", "ilike.*"+escapeLike(op)+"*")
	}

	if q.HasPriceBound() {
		var bounds []string
		if q.MinUF != nil {
			bounds = append(bounds, "precio_uf.gte."+formatFloat(*q.MinUF))
		}
		if q.MaxUF != nil {
			bounds = append(bounds, "precio_uf.lte."+formatFloat(*q.MaxUF))
		}
		v.Set("or", "(precio_uf.is.null,precio_uf.lte.0,and("+strings.Join(bounds, ",")+"))")
	}

	if q.MinDorm != nil {
		v.Set("dormitorios", "gte."+strconv.Itoa(*q.MinDorm))
	}
	if q.MinBanos != nil {
		v.Set("banos", "gte."+strconv.Itoa(*q.MinBanos))
	}
	if q.MinEstac != nil {
		v.Set("estacionamientos", "gte."+strconv.Itoa(*q.MinEstac))
	}
	if q.MinM2Const != nil {
		v.Set("m2_construidos", "gte."+formatFloat(*q.MinM2Const))
	}
	if q.MinM2Terreno != nil {
		v.Set("m2_terreno", "gte."+formatFloat(*q.MinM2Terreno))
	}

	v.Set("order", "created_at.desc")
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// escapeLike keeps user text from acting as a wildcard.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `%`, `\%`, `_`, `\_`).Replace(s)
}
