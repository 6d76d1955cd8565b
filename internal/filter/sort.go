package filter

import (
	"math"
	"slices"
	"sort"

	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/textnorm"
)

// SortMode orders a filtered result for display.
type SortMode string

const (
	SortNone      SortMode = ""
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
)

// ParseSortMode maps request values to a mode. Unknown values mean no sort.
func ParseSortMode(s string) SortMode {
	switch textnorm.Normalize(s) {
	case "price_asc", "precio_asc", "asc":
		return SortPriceAsc
	case "price_desc", "precio_desc", "desc":
		return SortPriceDesc
	default:
		return SortNone
	}
}

// SortKey is the comparable UF price used for ordering. Listings without one
// sort as negative infinity.
func SortKey(l *models.Listing, rate float64) float64 {
	if v, ok := currency.ComparableUF(l.PrecioUF, l.PrecioCLP, rate); ok {
		return v
	}
	return math.Inf(-1)
}

// Sort returns a new slice ordered by comparable UF price. price_asc is a
// stable sort, so equal prices keep their filtered order; price_desc is its
// exact reverse, ties included. Unpriced listings come first in price_asc and
// last in price_desc. SortNone returns a copy in input order.
func Sort(listings []models.Listing, mode SortMode, rate float64) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	if mode != SortPriceAsc && mode != SortPriceDesc {
		return out
	}

	keys := make([]float64, len(out))
	idx := make([]int, len(out))
	for i := range out {
		keys[i] = SortKey(&out[i], rate)
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})
	if mode == SortPriceDesc {
		slices.Reverse(idx)
	}

	sorted := make([]models.Listing, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}
