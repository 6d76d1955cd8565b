package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/textnorm"
)

// FilterExpressions renders a listing query as Meilisearch filter clauses.
// The type prefix is left to the evaluator: the index has no prefix operator.
func FilterExpressions(q listing.Query) []string {
	var filters []string

	if q.Kind.Valid() {
		filters = append(filters, "kind = "+quote(string(q.Kind)))
	}
	if q.Operacion != "" {
		filters = append(filters, "operacion_key = "+quote(textnorm.Normalize(q.Operacion)))
	}

	// comuna_key already holds the canonical comuna, so the first alias is
	// enough.
	if len(q.Comunas) > 0 {
		filters = append(filters, "comuna_key = "+quote(textnorm.Normalize(q.Comunas[0])))
	}

	if q.HasPriceBound() {
		var bounds []string
		if q.MinUF != nil {
			bounds = append(bounds, "precio_uf >= "+formatFloat(*q.MinUF))
		}
		if q.MaxUF != nil {
			bounds = append(bounds, "precio_uf <= "+formatFloat(*q.MaxUF))
		}
		filters = append(filters, fmt.Sprintf(
			"(precio_uf NOT EXISTS OR precio_uf IS NULL OR precio_uf <= 0 OR (%s))",
			strings.Join(bounds, " AND ")))
	}

	minInt := func(field string, v *int) {
		if v != nil {
			filters = append(filters, fmt.Sprintf("%s >= %d", field, *v))
		}
	}
	minFloat := func(field string, v *float64) {
		if v != nil {
			filters = append(filters, field+" >= "+formatFloat(*v))
		}
	}
	minInt("dormitorios", q.MinDorm)
	minInt("banos", q.MinBanos)
	minInt("estacionamientos", q.MinEstac)
	minFloat("m2_construidos", q.MinM2Const)
	minFloat("m2_terreno", q.MinM2Terreno)

	return filters
}

// maxHits caps a filter-only query when the caller gave no limit.
const maxHits = 1000

// Query implements listing.Source over the index.
func (s *SearchClient) Query(ctx context.Context, q listing.Query) ([]models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = maxHits
	}

	result, err := s.AdvancedSearch(SearchRequest{
		Limit:  limit,
		Filter: FilterExpressions(q),
		Sort:   []string{"created_ts:desc"},
	})
	if err != nil {
		return nil, err
	}
	for i := range result.Hits {
		result.Hits[i].Kind = q.Kind
	}
	return result.Hits, nil
}

// Get implements listing.Source.
func (s *SearchClient) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := s.AdvancedSearch(SearchRequest{
		Limit:  1,
		Filter: []string{"kind = " + quote(string(kind)), "id = " + quote(id)},
	})
	if err != nil {
		return nil, err
	}
	if len(result.Hits) == 0 {
		return nil, listing.ErrNotFound
	}
	l := result.Hits[0]
	l.Kind = kind
	return &l, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
