package session

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
)

func fp(v float64) *float64 { return &v }

func ids(listings []models.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

var catalog = []models.Listing{
	{ID: "a", Tipo: "Casa", PrecioUF: fp(9000)},
	{ID: "b", Tipo: "Departamento", PrecioUF: fp(4000)},
	{ID: "c", Tipo: "Casa en construcción", PrecioCLP: fp(190000000)},
	{ID: "d", Tipo: "Oficina"},
}

// staticSearcher returns the whole catalog, like a store with no filters.
type staticSearcher struct {
	calls atomic.Int32
	err   error
}

func (s *staticSearcher) Fetch(ctx context.Context, c filter.Criteria, kind models.ListingKind) listing.Result {
	s.calls.Add(1)
	if s.err != nil {
		return listing.Result{Err: s.err, Rate: 38000}
	}
	return listing.Result{Listings: catalog, Rate: 38000}
}

type call struct {
	criteria filter.Criteria
	release  chan listing.Result
}

// gatedSearcher blocks every fetch until the test releases it.
type gatedSearcher struct {
	calls        chan *call
	ignoreCancel bool
}

func newGated(ignoreCancel bool) *gatedSearcher {
	return &gatedSearcher{calls: make(chan *call), ignoreCancel: ignoreCancel}
}

func (g *gatedSearcher) Fetch(ctx context.Context, c filter.Criteria, kind models.ListingKind) listing.Result {
	cl := &call{criteria: c, release: make(chan listing.Result, 1)}
	g.calls <- cl
	if g.ignoreCancel {
		return <-cl.release
	}
	select {
	case r := <-cl.release:
		return r
	case <-ctx.Done():
		return listing.Result{Err: ctx.Err()}
	}
}

func submitAsync(ctx context.Context, c *Controller) <-chan bool {
	done := make(chan bool, 1)
	go func() { done <- c.Submit(ctx) }()
	return done
}

func waitBool(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for submit")
		return false
	}
}

func TestEditDoesNotFetch(t *testing.T) {
	s := &staticSearcher{}
	c := NewController(s, models.KindProperty, 0)

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("casa") })
	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithMinPrice("5000") })

	if n := s.calls.Load(); n != 0 {
		t.Fatalf("edits fetched %d times", n)
	}
	snap := c.Snapshot()
	if snap.Draft.Tipo != "casa" || !snap.Applied.IsZero() || snap.Trigger != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSubmitAppliesDraft(t *testing.T) {
	s := &staticSearcher{}
	c := NewController(s, models.KindProperty, time.Second)

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("casa") })
	if !c.Submit(context.Background()) {
		t.Fatal("Submit result discarded")
	}

	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Results = %v", got)
	}

	// Editing after submit leaves the applied criteria alone.
	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("oficina") })
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Results after edit = %v", got)
	}
	if snap := c.Snapshot(); snap.Applied.Tipo != "casa" || snap.Trigger != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSetSortDoesNotRefetch(t *testing.T) {
	s := &staticSearcher{}
	c := NewController(s, models.KindProperty, 0)
	c.Submit(context.Background())

	c.SetSort(filter.SortPriceDesc)
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"a", "c", "b", "d"}) {
		t.Errorf("desc = %v", got)
	}
	c.SetSort(filter.SortPriceAsc)
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"d", "b", "c", "a"}) {
		t.Errorf("asc = %v", got)
	}
	if n := s.calls.Load(); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestResultsAreMemoized(t *testing.T) {
	c := NewController(&staticSearcher{}, models.KindProperty, 0)
	c.Submit(context.Background())

	first := c.Results()
	second := c.Results()
	if &first[0] != &second[0] {
		t.Error("Results recomputed without any change")
	}

	c.SetSort(filter.SortPriceAsc)
	if third := c.Results(); &third[0] == &first[0] {
		t.Error("sort change should recompute")
	}
}

func TestClearRestoresEverything(t *testing.T) {
	c := NewController(&staticSearcher{}, models.KindProperty, 0)
	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("casa").WithMinPrice("1") })
	c.Submit(context.Background())
	c.SetSort(filter.SortPriceAsc)

	c.Clear(context.Background())
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("after clear = %v", got)
	}
	snap := c.Snapshot()
	if snap.Sort != filter.SortNone {
		t.Errorf("sort after clear = %q", snap.Sort)
	}
	if !snap.Draft.IsZero() || !snap.Applied.IsZero() || snap.Trigger != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestFailedFetchIsEmpty(t *testing.T) {
	c := NewController(&staticSearcher{err: errors.New("down")}, models.KindProject, 0)
	if !c.Submit(context.Background()) {
		t.Fatal("failed fetch should still be kept")
	}
	if got := c.Results(); got == nil || len(got) != 0 {
		t.Errorf("Results = %v, want empty", got)
	}
	snap := c.Snapshot()
	if !snap.Failed || snap.Loading {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestNewerSubmitCancelsOlder(t *testing.T) {
	g := newGated(false)
	c := NewController(g, models.KindProperty, 0)
	ctx := context.Background()

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("casa") })
	done1 := submitAsync(ctx, c)
	first := <-g.calls
	if first.criteria.Tipo != "casa" {
		t.Fatalf("first fetch criteria = %+v", first.criteria)
	}
	if !c.Snapshot().Loading {
		t.Error("expected loading while a fetch is in flight")
	}

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("departamento") })
	done2 := submitAsync(ctx, c)
	second := <-g.calls

	if waitBool(t, done1) {
		t.Error("superseded fetch was applied")
	}

	second.release <- listing.Result{Listings: catalog, Rate: 38000}
	if !waitBool(t, done2) {
		t.Fatal("latest fetch was discarded")
	}
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Results = %v", got)
	}
	if c.Snapshot().Loading {
		t.Error("loading flag not cleared")
	}
}

func TestLateResultIsDiscarded(t *testing.T) {
	g := newGated(true)
	c := NewController(g, models.KindProperty, 0)
	ctx := context.Background()

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("oficina") })
	done1 := submitAsync(ctx, c)
	first := <-g.calls

	c.Edit(func(x filter.Criteria) filter.Criteria { return x.WithTipo("casa") })
	done2 := submitAsync(ctx, c)
	second := <-g.calls

	second.release <- listing.Result{Listings: catalog, Rate: 38000}
	if !waitBool(t, done2) {
		t.Fatal("latest fetch discarded")
	}

	// The older request answers last; its rows must not replace the newer ones.
	first.release <- listing.Result{Listings: catalog[3:], Rate: 38000}
	if waitBool(t, done1) {
		t.Error("stale result applied")
	}
	if got := ids(c.Results()); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Results = %v", got)
	}
}

func TestCloseDiscardsInFlight(t *testing.T) {
	g := newGated(true)
	c := NewController(g, models.KindProperty, 0)

	done := submitAsync(context.Background(), c)
	cl := <-g.calls
	c.Close()
	cl.release <- listing.Result{Listings: catalog}

	if waitBool(t, done) {
		t.Error("result applied after Close")
	}
	if got := c.Results(); len(got) != 0 {
		t.Errorf("Results = %v", ids(got))
	}
	if c.Submit(context.Background()) {
		t.Error("Submit after Close should be a no-op")
	}
}

func TestManagerLifecycle(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	m := NewManager(&staticSearcher{}, 30*time.Minute, time.Second, 2)
	m.now = func() time.Time { return now }

	idA, _, err := m.Create(models.KindProperty)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	idB, b, _ := m.Create(models.KindProject)
	if _, _, err := m.Create(models.KindProperty); !errors.Is(err, ErrTooMany) {
		t.Errorf("expected ErrTooMany, got %v", err)
	}
	if idA == idB {
		t.Fatal("session ids collide")
	}

	got, err := m.Get(idB)
	if err != nil || got != b || got.Kind() != models.KindProject {
		t.Fatalf("Get = %v, %v", got, err)
	}

	// A is idle; B is used 20 minutes in.
	now = now.Add(20 * time.Minute)
	b.SetSort(filter.SortPriceAsc)
	now = now.Add(15 * time.Minute)

	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := m.Get(idA); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session survived: %v", err)
	}

	if err := m.Delete(idB); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d", m.Len())
	}
	if err := m.Delete(idB); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v", err)
	}
}
