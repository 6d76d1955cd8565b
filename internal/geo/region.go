package geo

import (
	"strings"

	"brokerage-portal/internal/textnorm"
)

type comunaEntry struct {
	key    string // normalized comuna name
	comuna string
	region *Region
}

var comunaTable = buildComunaTable()

func buildComunaTable() []comunaEntry {
	var table []comunaEntry
	for i := range regions {
		for _, c := range regions[i].Comunas {
			table = append(table, comunaEntry{
				key:    textnorm.Normalize(c.Name),
				comuna: c.Name,
				region: &regions[i],
			})
		}
	}
	return table
}

// Regions returns the taxonomy in display order.
func Regions() []Region {
	out := make([]Region, len(regions))
	copy(out, regions)
	return out
}

// FindRegion looks a region up by name or slug. "Región de Valparaíso" and
// "valparaiso" both resolve.
func FindRegion(name string) (Region, bool) {
	key := textnorm.Normalize(name)
	key = strings.TrimPrefix(key, "region de ")
	key = strings.TrimPrefix(key, "region del ")
	key = strings.TrimPrefix(key, "region ")
	key = strings.TrimSuffix(key, " de santiago")
	if key == "" {
		return Region{}, false
	}

	for _, r := range regions {
		if key == r.Slug || key == textnorm.Normalize(r.Name) {
			return r, true
		}
	}
	return Region{}, false
}

// Comunas returns the comunas of a region, nil if the region is unknown.
func Comunas(region string) []Comuna {
	r, ok := FindRegion(region)
	if !ok {
		return nil
	}
	return r.Comunas
}

// Barrios returns the known barrios of a comuna.
func Barrios(comuna string) []string {
	key := textnorm.Normalize(CanonicalComuna(comuna, ""))
	for _, e := range comunaTable {
		if e.key != key {
			continue
		}
		for _, c := range e.region.Comunas {
			if c.Name == e.comuna {
				return c.Barrios
			}
		}
	}
	return nil
}

func isTunquen(s string) bool {
	return strings.Contains(textnorm.Normalize(s), textnorm.Normalize(tunquenBarrio))
}

// CanonicalComuna applies the Tunquén indirection: a listing whose comuna or
// barrio names Tunquén belongs to Casablanca. Known comunas come back with
// their table spelling; anything else is returned trimmed.
func CanonicalComuna(comuna, barrio string) string {
	if isTunquen(comuna) || isTunquen(barrio) {
		return tunquenComuna
	}

	key := textnorm.Normalize(comuna)
	for _, e := range comunaTable {
		if e.key == key {
			return e.comuna
		}
	}
	return strings.TrimSpace(comuna)
}

// InferRegion resolves the region of a listing from its free-text comuna and
// barrio. Only exact normalized comuna matches count.
func InferRegion(comuna, barrio string) (Region, bool) {
	key := textnorm.Normalize(CanonicalComuna(comuna, barrio))
	if key == "" {
		return Region{}, false
	}

	for _, e := range comunaTable {
		if e.key == key {
			return *e.region, true
		}
	}
	return Region{}, false
}

// ComunaAliases lists the raw spellings an upstream store may hold for the
// canonical form of comuna. Used to build case-insensitive IN filters.
func ComunaAliases(comuna string) []string {
	canonical := CanonicalComuna(comuna, "")
	if canonical == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var aliases []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		aliases = append(aliases, s)
	}

	add(canonical)
	add(textnorm.Normalize(canonical))
	if canonical == tunquenComuna {
		add(tunquenBarrio)
		add(textnorm.Normalize(tunquenBarrio))
	}
	return aliases
}

// SparseBarrioParent reports the comuna a requested barrio belongs to when
// listings there often omit the barrio field. Only Tunquén qualifies.
func SparseBarrioParent(barrio string) (string, bool) {
	if isTunquen(barrio) {
		return tunquenComuna, true
	}
	return "", false
}
