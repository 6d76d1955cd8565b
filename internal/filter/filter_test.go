package filter

import (
	"net/url"
	"reflect"
	"testing"

	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/models"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func ids(listings []models.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func fixtures(t *testing.T) []models.Listing {
	t.Helper()
	return []models.Listing{
		{ID: "1", Operacion: "Venta", Tipo: "Casa", Comuna: "Las Condes", Barrio: "El Golf",
			PrecioUF: fp(26000), PrecioCLP: fp(900000000), Dormitorios: ip(4), Banos: ip(3), M2Construidos: fp(220)},
		{ID: "2", Operacion: "venta", Tipo: "Casa en construcción", Comuna: "Tunquén",
			PrecioUF: fp(15000), Dormitorios: ip(3), M2Terreno: fp(5000)},
		{ID: "3", Operacion: "arriendo", Tipo: "Departamento", Comuna: "Providencia", Barrio: "Barrio Italia",
			PrecioCLP: fp(950000), Dormitorios: ip(2), Banos: ip(2), Estacionamientos: ip(1)},
		{ID: "4", Operacion: "venta", Tipo: "Terreno", Comuna: "Casablanca", Barrio: "",
			M2Terreno: fp(10000)},
		{ID: "5", Operacion: "venta", Tipo: "Casa", Comuna: "casablanca", Barrio: "El Rosario de Tunquén",
			PrecioUF: fp(18000), Dormitorios: ip(5)},
		{ID: "6", Operacion: "venta", Tipo: "Oficina", Comuna: "Viña del Mar", Barrio: "Reñaca",
			PrecioCLP: fp(380000000)},
	}
}

const rate = 38000.0

func TestEvaluate(t *testing.T) {
	listings := fixtures(t)

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no criteria keeps everything", Criteria{}, []string{"1", "2", "3", "4", "5", "6"}},
		{"operation ignores case", Criteria{}.WithOperacion("VENTA"), []string{"1", "2", "4", "5", "6"}},
		{"type is a prefix match", Criteria{}.WithTipo("casa"), []string{"1", "2", "5"}},
		{"type prefix is not a substring match", Criteria{}.WithTipo("construccion"), []string{}},
		{"region is inferred from comuna", Criteria{}.WithRegion("Valparaíso"), []string{"2", "4", "5", "6"}},
		{"region by slug", Criteria{}.WithRegion("metropolitana"), []string{"1", "3"}},
		{"comuna follows the Tunquén indirection", Criteria{}.WithComuna("Casablanca"), []string{"2", "4", "5"}},
		{"comuna requested as Tunquén", Criteria{}.WithComuna("tunquen"), []string{"2", "4", "5"}},
		{"comuna without diacritics", Criteria{}.WithComuna("vina del mar"), []string{"6"}},
		{"barrio substring", Criteria{}.WithBarrio("italia"), []string{"3"}},
		{"Tunquén barrio tolerates missing barrio in Casablanca", Criteria{}.WithBarrio("Tunquén"), []string{"2", "4", "5"}},
		{"other barrios require the field", Criteria{}.WithBarrio("Reñaca"), []string{"6"}},
		{"min bedrooms excludes nulls", Criteria{}.WithMinDorm("3"), []string{"1", "2", "5"}},
		{"min parking", Criteria{}.WithMinEstac("1"), []string{"3"}},
		{"min lot area", Criteria{}.WithMinM2Terreno("6000"), []string{"4"}},
		{"min built area", Criteria{}.WithMinM2Const("200,5"), []string{"1"}},
		{"UF range uses CLP-only listings through the rate", Criteria{}.WithMinPrice("10.000").WithMaxPrice("20.000"), []string{"2", "5", "6"}},
		{"CLP range", Criteria{}.WithUnit(currency.CLP).WithMaxPrice("1.000.000"), []string{"3"}},
		{"conjunction", Criteria{}.WithOperacion("venta").WithTipo("casa").WithMinDorm("4"), []string{"1", "5"}},
		{"malformed bound is no bound", Criteria{}.WithMinPrice("abc"), []string{"1", "2", "3", "4", "5", "6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Evaluate(listings, tt.c, rate))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	listings := fixtures(t)
	c := Criteria{}.WithOperacion("venta").WithMinPrice("12000")

	once := Evaluate(listings, c, rate)
	twice := Evaluate(once, c, rate)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Errorf("second pass changed result: %v vs %v", ids(once), ids(twice))
	}
	if !reflect.DeepEqual(ids(once), ids(Evaluate(listings, c, rate))) {
		t.Error("evaluating the same input twice differs")
	}
}

func TestEvaluateDoesNotModifyInput(t *testing.T) {
	listings := fixtures(t)
	before := ids(listings)
	Sort(Evaluate(listings, Criteria{}.WithTipo("casa"), rate), SortPriceDesc, rate)
	if !reflect.DeepEqual(ids(listings), before) {
		t.Errorf("input reordered: %v", ids(listings))
	}
}

func TestUnpricedListingExcludedWhenBoundGiven(t *testing.T) {
	listings := []models.Listing{
		{ID: "a", PrecioUF: fp(26000)},
		{ID: "b"},
	}
	got := ids(Evaluate(listings, Criteria{}.WithMinPrice("20000"), rate))
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v, want [a]", got)
	}

	got = ids(Evaluate(listings, Criteria{}.WithMinDorm("x"), rate))
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("without a price bound got %v, want both", got)
	}
}

func TestCLPBoundWithoutRate(t *testing.T) {
	listings := []models.Listing{
		{ID: "uf", PrecioUF: fp(5)},
		{ID: "clp", PrecioCLP: fp(50000)},
		{ID: "none"},
	}
	c := Criteria{}.WithUnit(currency.CLP).WithMinPrice("100.000")

	// The bound opens to -Inf: every listing with a comparable price passes,
	// listings without one do not.
	got := ids(Evaluate(listings, c, 0))
	if !reflect.DeepEqual(got, []string{"uf"}) {
		t.Errorf("got %v, want [uf]", got)
	}

	// With a rate, 100.000 CLP at 38.000 rounds to a 3 UF minimum.
	got = ids(Evaluate(listings, c, rate))
	if !reflect.DeepEqual(got, []string{"uf"}) {
		t.Errorf("with rate got %v, want [uf]", got)
	}
}

func TestUFPriceTakesPrecedence(t *testing.T) {
	l := models.Listing{ID: "x", PrecioUF: fp(100), PrecioCLP: fp(999999999)}
	for _, r := range []float64{0, 1, rate} {
		if !Matches(l, Criteria{}.WithMaxPrice("100"), r) {
			t.Errorf("rate %v: UF price should win over CLP", r)
		}
	}
}

func TestClearRestoresInsertionOrder(t *testing.T) {
	listings := fixtures(t)
	filtered := Sort(Evaluate(listings, Criteria{}.WithTipo("casa"), rate), SortPriceAsc, rate)
	if len(filtered) == len(listings) {
		t.Fatal("fixture filter should narrow the set")
	}

	cleared := Sort(Evaluate(listings, Criteria{}, rate), SortNone, rate)
	if !reflect.DeepEqual(ids(cleared), ids(listings)) {
		t.Errorf("cleared = %v, want %v", ids(cleared), ids(listings))
	}
}

func TestSortUnknownPriceIsNegativeInfinity(t *testing.T) {
	listings := fixtures(t)

	asc := ids(Sort(listings, SortPriceAsc, rate))
	if asc[0] != "4" {
		t.Errorf("asc starts with %s, want unpriced listing 4", asc[0])
	}
	desc := ids(Sort(listings, SortPriceDesc, rate))
	if desc[len(desc)-1] != "4" {
		t.Errorf("desc ends with %s, want unpriced listing 4", desc[len(desc)-1])
	}

	want := []string{"1", "5", "2", "6", "3", "4"}
	if !reflect.DeepEqual(desc, want) {
		t.Errorf("desc = %v, want %v", desc, want)
	}
}

func TestSortDescIsReverseOfAsc(t *testing.T) {
	listings := append(fixtures(t),
		models.Listing{ID: "tie-a", PrecioUF: fp(15000)},
		models.Listing{ID: "tie-b", PrecioCLP: fp(15000 * rate)},
		models.Listing{ID: "unpriced"},
	)

	asc := ids(Sort(listings, SortPriceAsc, rate))
	desc := ids(Sort(listings, SortPriceDesc, rate))
	if len(asc) != len(desc) {
		t.Fatalf("lengths differ: %v %v", asc, desc)
	}
	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("asc %v is not the reverse of desc %v", asc, desc)
		}
	}
}

func TestSortTiesKeepInputOrderAscending(t *testing.T) {
	listings := []models.Listing{
		{ID: "a", PrecioUF: fp(10)},
		{ID: "b", PrecioUF: fp(10)},
		{ID: "c", PrecioUF: fp(5)},
	}
	if got := ids(Sort(listings, SortPriceAsc, rate)); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("asc = %v", got)
	}
	if got := ids(Sort(listings, SortPriceDesc, rate)); !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Errorf("desc = %v", got)
	}
}

func TestParseSortMode(t *testing.T) {
	tests := map[string]SortMode{
		"price_asc":  SortPriceAsc,
		"PRICE_DESC": SortPriceDesc,
		"precio_asc": SortPriceAsc,
		"":           SortNone,
		"newest":     SortNone,
	}
	for in, want := range tests {
		if got := ParseSortMode(in); got != want {
			t.Errorf("ParseSortMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCriteria(t *testing.T) {
	values := url.Values{
		"operacion":  {"venta"},
		"tipo":       {"Casa"},
		"comuna":     {"Las Condes"},
		"barrio":     {"El Golf"},
		"minCLP":     {"100.000.000"},
		"maxCLP":     {"oops"},
		"minDorm":    {"3"},
		"minM2Const": {"120,5"},
		"unknown":    {"x"},
	}
	c := ParseCriteria(values)

	if c.Operacion != "venta" || c.Tipo != "Casa" || c.Comuna != "Las Condes" || c.Barrio != "El Golf" {
		t.Errorf("string fields not parsed: %+v", c)
	}
	if c.PriceUnit() != currency.CLP || c.MinPrice == nil || *c.MinPrice != 100000000 {
		t.Errorf("min CLP not parsed: unit=%s min=%v", c.Unit, c.MinPrice)
	}
	if c.MaxPrice != nil {
		t.Errorf("malformed max should be nil, got %d", *c.MaxPrice)
	}
	if c.MinDorm == nil || *c.MinDorm != 3 {
		t.Errorf("minDorm = %v", c.MinDorm)
	}
	if c.MinM2Const == nil || *c.MinM2Const != 120.5 {
		t.Errorf("minM2Const = %v", c.MinM2Const)
	}
}

func TestCriteriaValuesRoundTrip(t *testing.T) {
	c := Criteria{}.WithOperacion("arriendo").WithComuna("Providencia").
		WithUnit(currency.CLP).WithMaxPrice("1.200.000").WithMinBanos("2")

	back := ParseCriteria(c.Values())
	if !reflect.DeepEqual(back, c) {
		t.Errorf("round trip = %+v, want %+v", back, c)
	}
}

func TestWithComunaDropsBarrio(t *testing.T) {
	c := Criteria{}.WithComuna("Providencia").WithBarrio("Barrio Italia")
	if c.WithComuna("Providencia").Barrio == "" {
		t.Error("same comuna should keep barrio")
	}
	next := c.WithComuna("Las Condes")
	if next.Barrio != "" {
		t.Errorf("barrio = %q after comuna change", next.Barrio)
	}
	if c.Barrio != "Barrio Italia" {
		t.Error("With methods must not modify the receiver")
	}
}

func TestIsZero(t *testing.T) {
	if !(Criteria{}).IsZero() {
		t.Error("zero criteria not IsZero")
	}
	if !(Criteria{}).WithUnit(currency.CLP).IsZero() {
		t.Error("unit alone is not a criterion")
	}
	if (Criteria{}).WithMinDorm("1").IsZero() {
		t.Error("min bedrooms is a criterion")
	}
}
