// Package session holds the draft/applied filter state of one search page.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
)

// Searcher is the fetch layer a controller drives.
type Searcher interface {
	Fetch(ctx context.Context, c filter.Criteria, kind models.ListingKind) listing.Result
}

// Controller separates what the user is typing (the draft) from what was
// last searched (the applied snapshot). Only Submit and Clear fetch; each
// fetch bumps the trigger and results from older triggers are dropped.
type Controller struct {
	searcher Searcher
	kind     models.ListingKind
	timeout  time.Duration

	mu       sync.Mutex
	draft    filter.Criteria
	applied  filter.Criteria
	sort     filter.SortMode
	trigger  uint64
	loading  bool
	closed   bool
	cancel   context.CancelFunc
	lastUsed time.Time
	now      func() time.Time

	// result is the last kept fetch, with the trigger and criteria it ran for
	result         listing.Result
	resultTrigger  uint64
	resultCriteria filter.Criteria

	memo struct {
		valid   bool
		trigger uint64
		sort    filter.SortMode
		rate    float64
		out     []models.Listing
	}
}

// NewController creates a controller with empty criteria. timeout bounds a
// single fetch; zero means no limit beyond the caller's context.
func NewController(searcher Searcher, kind models.ListingKind, timeout time.Duration) *Controller {
	return &Controller{
		searcher: searcher,
		kind:     kind,
		timeout:  timeout,
		lastUsed: time.Now(),
		now:      time.Now,
	}
}

// Snapshot is a read-only view of a controller.
type Snapshot struct {
	Kind    models.ListingKind `json:"kind"`
	Draft   filter.Criteria    `json:"borrador"`
	Applied filter.Criteria    `json:"aplicado"`
	Sort    filter.SortMode    `json:"orden"`
	Trigger uint64             `json:"busquedas"`
	Loading bool               `json:"cargando"`
	Failed  bool               `json:"error"`
}

func (c *Controller) Kind() models.ListingKind { return c.kind }

// Edit changes the draft. Nothing is fetched.
func (c *Controller) Edit(fn func(filter.Criteria) filter.Criteria) filter.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.draft = fn(c.draft)
	return c.draft
}

// Submit applies the draft and fetches. It blocks until the fetch finishes
// and reports whether its result was kept: false means a newer Submit or
// Clear, or Close, superseded it.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	c.applied = c.draft
	return c.startLocked(ctx)
}

// Clear resets draft and applied criteria and the sort mode, then fetches
// the unfiltered set in store order.
func (c *Controller) Clear(ctx context.Context) bool {
	c.mu.Lock()
	c.draft = filter.Criteria{}
	c.applied = filter.Criteria{}
	c.sort = filter.SortNone
	return c.startLocked(ctx)
}

// startLocked runs one fetch for the current applied criteria. Called with
// c.mu held; returns with it released.
func (c *Controller) startLocked(ctx context.Context) bool {
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.touch()

	if c.cancel != nil {
		c.cancel()
	}
	c.trigger++
	trigger := c.trigger
	criteria := c.applied

	var fetchCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.loading = true
	c.mu.Unlock()

	res := c.searcher.Fetch(fetchCtx, criteria, c.kind)

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()

	if c.closed || trigger != c.trigger {
		return false
	}
	c.cancel = nil
	c.loading = false
	c.result = res
	c.resultTrigger = trigger
	c.resultCriteria = criteria
	if res.Err != nil {
		log.Printf("[Listings] search %d for %s failed: %v", trigger, c.kind.Table(), res.Err)
	}
	return true
}

// SetSort changes the display order without refetching.
func (c *Controller) SetSort(mode filter.SortMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.sort = mode
}

// Results evaluates and sorts the last kept fetch against the criteria it
// was fetched with. The output is reused until a new fetch is kept or the
// sort mode or rate changes. A failed fetch yields an empty list. The
// returned slice is shared and must not be modified.
func (c *Controller) Results() []models.Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	rate := c.result.Rate
	m := &c.memo
	if m.valid && m.trigger == c.resultTrigger && m.sort == c.sort && m.rate == rate {
		return m.out
	}

	matched := filter.Evaluate(c.result.ListingsOrEmpty(), c.resultCriteria, rate)
	m.out = filter.Sort(matched, c.sort, rate)
	m.valid = true
	m.trigger = c.resultTrigger
	m.sort = c.sort
	m.rate = rate
	return m.out
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Kind:    c.kind,
		Draft:   c.draft,
		Applied: c.applied,
		Sort:    c.sort,
		Trigger: c.trigger,
		Loading: c.loading,
		Failed:  c.result.Err != nil,
	}
}

// Close cancels any in-flight fetch. Results arriving afterwards are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

func (c *Controller) touch() {
	c.lastUsed = c.now()
}
