package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL + "/", ServiceKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresConfig(t *testing.T) {
	if _, err := NewClient(Config{URL: "http://x"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestQuerySendsFilters(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		fmt.Fprint(w, `[{"id":"a","titulo":"Casa","precio_uf":null,"precio_clp":500000000,"cover_url":"https://img/a.jpg"}]`)
	})

	crit := filter.Criteria{}.WithOperacion("venta").WithTipo("Casa").WithComuna("Tunquén").
		WithMinPrice("10.000").WithMinDorm("3")
	rows, err := c.Query(context.Background(), listing.Translate(crit, models.KindProject, 38000))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if got.URL.Path != "/rest/v1/proyectos" {
		t.Errorf("path = %s", got.URL.Path)
	}
	if got.Header.Get("apikey") != "secret" || got.Header.Get("Authorization") != "Bearer secret" {
		t.Errorf("auth headers missing: %v", got.Header)
	}

	q := got.URL.Query()
	want := map[string]string{
		"operacion":   "ilike.*venta*",
		"or":          "(precio_uf.is.null,precio_uf.lte.0,and(precio_uf.gte.10000))",
		"dormitorios": "gte.3",
		"order":       "created_at.desc",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
	for _, name := range []string{"region", "barrio", "tipo", "comuna"} {
		if q.Has(name) {
			t.Errorf("%s must not be sent", name)
		}
	}

	if len(rows) != 1 || rows[0].Kind != models.KindProject || rows[0].ImagenPortada != "https://img/a.jpg" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>maintenance</html>")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.h)
			if _, err := c.Query(context.Background(), listing.Query{Kind: models.KindProperty}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "eq.found" {
			fmt.Fprint(w, `[{"id":"found","titulo":"Depto"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	})

	l, err := c.Get(context.Background(), models.KindProperty, "found")
	if err != nil || l.ID != "found" {
		t.Fatalf("Get = %v, %v", l, err)
	}
	if _, err := c.Get(context.Background(), models.KindProperty, "missing"); !errors.Is(err, listing.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertLead(t *testing.T) {
	var body models.Lead
	var prefer string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/v1/leads" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		prefer = r.Header.Get("Prefer")
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	})

	lead := &models.Lead{ID: "l1", Kind: models.LeadContact, Nombre: "Ana", Email: "ana@example.cl"}
	if err := c.InsertLead(context.Background(), lead); err != nil {
		t.Fatalf("InsertLead: %v", err)
	}
	if body.Nombre != "Ana" || body.Kind != models.LeadContact {
		t.Errorf("body = %+v", body)
	}
	if prefer != "return=minimal" {
		t.Errorf("Prefer = %q", prefer)
	}
}

func TestCountLeads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("kind") {
		case "eq.contacto":
			w.Header().Set("Content-Range", "0-0/12")
		default:
			w.Header().Set("Content-Range", "*/3")
		}
	})

	counts, err := c.CountLeads(context.Background())
	if err != nil {
		t.Fatalf("CountLeads: %v", err)
	}
	if counts[models.LeadContact] != 12 || counts[models.LeadReferral] != 3 {
		t.Errorf("counts = %v", counts)
	}
}

func TestQueryParamsEscapesWildcards(t *testing.T) {
	v := QueryParams(listing.Query{Operacion: "Venta*_%"})
	if got := v.Get("operacion"); got != `ilike.*venta\*\_\%*` {
		t.Errorf("operacion = %q", got)
	}
}
