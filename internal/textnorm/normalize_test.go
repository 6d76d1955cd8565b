package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Tunquén", "tunquen"},
		{"  Ñuñoa   Alto ", "nunoa alto"},
		{"VIÑA DEL MAR", "vina del mar"},
		{"Concón\tNorte", "concon norte"},
		{"O'Higgins", "o'higgins"},
		{"Galpón", "galpon"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"El Rosario de Tunquén", "Las  Condes", "ÁÉÍÓÚ ü"} {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestComparisons(t *testing.T) {
	if !Equal("Viña del Mar", "vina  del mar") {
		t.Error("Equal should ignore accents, case and spacing")
	}
	if !HasPrefix("Casa en construcción", "CASA") {
		t.Error("HasPrefix should match case-insensitively")
	}
	if HasPrefix("Departamento", "Casa") {
		t.Error("HasPrefix should reject a different type")
	}
	if !Contains("El Rosario de Tunquén", "tunquen") {
		t.Error("Contains should match a normalized substring")
	}
}
