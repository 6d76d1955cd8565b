// Package listing bridges search criteria to a listing store and hands the
// rows to the evaluator.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/models"
)

// ErrNotFound is returned by Source.Get when no listing has the given id.
var ErrNotFound = errors.New("listing not found")

// Source is a listing store. Query results come newest first.
type Source interface {
	Query(ctx context.Context, q Query) ([]models.Listing, error)
	Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error)
}

// RateSource supplies the UF exchange rate. ok is false when none is known.
type RateSource interface {
	Rate(ctx context.Context) (float64, bool)
}

// Result is the outcome of one fetch. Err is set when the store failed;
// Listings is then nil.
type Result struct {
	Listings []models.Listing
	Err      error
	// Rate is the exchange rate the query was translated with, 0 if unknown
	Rate float64
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Err == nil }

// ListingsOrEmpty maps a failed fetch to an empty, non-nil list.
func (r Result) ListingsOrEmpty() []models.Listing {
	if r.Err != nil || r.Listings == nil {
		return []models.Listing{}
	}
	return r.Listings
}

// Fetcher runs criteria against a Source.
type Fetcher struct {
	source Source
	rates  RateSource
}

func NewFetcher(source Source, rates RateSource) *Fetcher {
	return &Fetcher{source: source, rates: rates}
}

// Rate returns the current exchange rate, 0 when unknown.
func (f *Fetcher) Rate(ctx context.Context) float64 {
	if f.rates == nil {
		return 0
	}
	if rate, ok := f.rates.Rate(ctx); ok {
		return rate
	}
	return 0
}

// Fetch resolves the rate, translates c and queries the store. It never
// panics or returns a bare error: failures are reported in Result.Err.
func (f *Fetcher) Fetch(ctx context.Context, c filter.Criteria, kind models.ListingKind) Result {
	rate := f.Rate(ctx)
	q := Translate(c, kind, rate)

	listings, err := f.source.Query(ctx, q)
	if err != nil {
		return Result{Err: fmt.Errorf("query %s: %w", kind.Table(), err), Rate: rate}
	}
	return Result{Listings: listings, Rate: rate}
}

// Search fetches, evaluates and sorts. The returned slice is never nil.
func (f *Fetcher) Search(ctx context.Context, c filter.Criteria, kind models.ListingKind, mode filter.SortMode) ([]models.Listing, Result) {
	res := f.Fetch(ctx, c, kind)
	matched := filter.Evaluate(res.ListingsOrEmpty(), c, res.Rate)
	return filter.Sort(matched, mode, res.Rate), res
}

// Get loads one listing.
func (f *Fetcher) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	return f.source.Get(ctx, kind, id)
}

// MemorySource keeps listings in memory. It backs tests and the seed-file
// datasource.
type MemorySource struct {
	mu       sync.RWMutex
	listings map[models.ListingKind][]models.Listing
}

func NewMemorySource() *MemorySource {
	return &MemorySource{listings: make(map[models.ListingKind][]models.Listing)}
}

// Put replaces all listings of one kind.
func (m *MemorySource) Put(kind models.ListingKind, listings []models.Listing) {
	cp := make([]models.Listing, len(listings))
	copy(cp, listings)
	for i := range cp {
		cp[i].Kind = kind
	}
	sort.SliceStable(cp, func(a, b int) bool {
		return cp[a].CreatedAt.After(cp[b].CreatedAt)
	})

	m.mu.Lock()
	m.listings[kind] = cp
	m.mu.Unlock()
}

func (m *MemorySource) Query(ctx context.Context, q Query) ([]models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Listing, 0)
	for i := range m.listings[q.Kind] {
		l := &m.listings[q.Kind][i]
		if !q.Admits(l) {
			continue
		}
		out = append(out, *l)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemorySource) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.listings[kind] {
		if l.ID == id {
			found := l
			return &found, nil
		}
	}
	return nil, ErrNotFound
}
