package database

import (
	"strconv"
	"strings"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/textnorm"
)

type dialect int

const (
	dialectMySQL dialect = iota
	dialectPostgres
)

// whereBuilder collects AND-ed conditions. Conditions are written with "?"
// placeholders and renumbered to $n for PostgreSQL.
type whereBuilder struct {
	d     dialect
	parts []string
	args  []any
}

func (w *whereBuilder) add(expr string, args ...any) {
	if w.d == dialectPostgres {
		var b strings.Builder
		n := len(w.args)
		for _, r := range expr {
			if r == '?' {
				n++
				b.WriteString("$" + strconv.Itoa(n))
				continue
			}
			b.WriteRune(r)
		}
		expr = b.String()
	}
	w.parts = append(w.parts, expr)
	w.args = append(w.args, args...)
}

// SQL returns the condition without the WHERE keyword, or "" when empty.
func (w *whereBuilder) SQL() string {
	return strings.Join(w.parts, " AND ")
}

// listingWhere expresses a listing query in SQL. Type and comuna stay with
// the evaluator: LOWER() does not fold accents and the comuna can come from
// the barrio, so a column filter would drop rows the evaluator accepts.
func listingWhere(d dialect, q listing.Query) *whereBuilder {
	w := &whereBuilder{d: d}

	if op := textnorm.Normalize(q.Operacion); op != "" {
		w.add("LOWER(TRIM(operacion)) = ?", op)
	}

	if q.HasPriceBound() {
		var bounds []string
		var args []any
		if q.MinUF != nil {
			bounds = append(bounds, "precio_uf >= ?")
			args = append(args, *q.MinUF)
		}
		if q.MaxUF != nil {
			bounds = append(bounds, "precio_uf <= ?")
			args = append(args, *q.MaxUF)
		}
		w.add("(precio_uf IS NULL OR precio_uf <= 0 OR ("+strings.Join(bounds, " AND ")+"))", args...)
	}

	if q.MinDorm != nil {
		w.add("dormitorios >= ?", *q.MinDorm)
	}
	if q.MinBanos != nil {
		w.add("banos >= ?", *q.MinBanos)
	}
	if q.MinEstac != nil {
		w.add("estacionamientos >= ?", *q.MinEstac)
	}
	if q.MinM2Const != nil {
		w.add("m2_construidos >= ?", *q.MinM2Const)
	}
	if q.MinM2Terreno != nil {
		w.add("m2_terreno >= ?", *q.MinM2Terreno)
	}
	return w
}
