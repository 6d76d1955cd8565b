package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/geo"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/ratelimit"
	"brokerage-portal/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// LeadCounter reports stored leads per form
type LeadCounter interface {
	CountLeads(ctx context.Context) (map[models.LeadKind]int64, error)
}

// JobRunner triggers maintenance jobs by name
type JobRunner interface {
	RunNow(name string) error
}

// FacetSource returns facet counts from the search index
type FacetSource interface {
	GetFacets(facets []string) (map[string]interface{}, error)
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	source   listing.Source
	rates    listing.RateSource
	leads    LeadCounter
	limiter  *ratelimit.KeyedLimiter
	jobs     JobRunner
	facets   FacetSource
	sessions func() int
	reindex  bool
	timeout  time.Duration
}

// AdminDeps groups the optional collaborators of AdminHandler. Nil fields
// leave the related stats out.
type AdminDeps struct {
	Source   listing.Source
	Rates    listing.RateSource
	Leads    LeadCounter
	Limiter  *ratelimit.KeyedLimiter
	Jobs     JobRunner
	Facets   FacetSource
	Sessions func() int
	// Reindex is true when a search index is configured
	Reindex bool
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		source:   deps.Source,
		rates:    deps.Rates,
		leads:    deps.Leads,
		limiter:  deps.Limiter,
		jobs:     deps.Jobs,
		facets:   deps.Facets,
		sessions: deps.Sessions,
		reindex:  deps.Reindex,
		timeout:  30 * time.Second,
	}
}

// PriceRange is one bucket of the UF price distribution
type PriceRange struct {
	RangeLabel string  `json:"range_label"`
	MinUF      float64 `json:"min_uf"`
	MaxUF      float64 `json:"max_uf,omitempty"` // 0 means no upper bound
	Count      int64   `json:"count"`
}

func priceRanges() []PriceRange {
	return []PriceRange{
		{RangeLabel: "Hasta 3.000 UF", MinUF: 0, MaxUF: 3000},
		{RangeLabel: "3.000 a 6.000 UF", MinUF: 3000, MaxUF: 6000},
		{RangeLabel: "6.000 a 10.000 UF", MinUF: 6000, MaxUF: 10000},
		{RangeLabel: "10.000 a 20.000 UF", MinUF: 10000, MaxUF: 20000},
		{RangeLabel: "Más de 20.000 UF", MinUF: 20000},
	}
}

// KindStats summarizes the listings of one kind
type KindStats struct {
	Total             int64            `json:"total"`
	ByRegion          map[string]int64 `json:"by_region"`
	ByOperacion       map[string]int64 `json:"by_operacion"`
	PriceDistribution []PriceRange     `json:"price_distribution"`
	WithoutPrice      int64            `json:"without_price"`
}

const unknownRegion = "Sin región"

func summarize(listings []models.Listing, rate float64) KindStats {
	stats := KindStats{
		ByRegion:          map[string]int64{},
		ByOperacion:       map[string]int64{},
		PriceDistribution: priceRanges(),
	}

	for i := range listings {
		l := &listings[i]
		stats.Total++

		region := unknownRegion
		if r, ok := geo.InferRegion(l.Comuna, l.Barrio); ok {
			region = r.Name
		} else if r, ok := geo.FindRegion(l.Region); ok {
			region = r.Name
		}
		stats.ByRegion[region]++

		if op := strings.ToLower(strings.TrimSpace(l.Operacion)); op != "" {
			stats.ByOperacion[op]++
		}

		uf, ok := currency.ComparableUF(l.PrecioUF, l.PrecioCLP, rate)
		if !ok {
			stats.WithoutPrice++
			continue
		}
		for j := range stats.PriceDistribution {
			pr := &stats.PriceDistribution[j]
			if uf >= pr.MinUF && (pr.MaxUF == 0 || uf < pr.MaxUF) {
				pr.Count++
				break
			}
		}
	}
	return stats
}

// GetStats returns listing counts by region, the UF price distribution and
// lead counts
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	stats := make(map[string]interface{})

	var rate float64
	var hasRate bool
	if h.rates != nil {
		rate, hasRate = h.rates.Rate(ctx)
	}
	stats["uf"] = currency.Pointer(rate, hasRate)

	if h.source != nil {
		for _, kind := range []models.ListingKind{models.KindProperty, models.KindProject} {
			listings, err := h.source.Query(ctx, listing.Query{Kind: kind})
			if err != nil {
				log.Printf("Admin: failed to load %s: %v", kind.Table(), err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			stats[kind.Table()] = summarize(listings, rate)
		}
	}

	if h.leads != nil {
		counts, err := h.leads.CountLeads(ctx)
		if err != nil {
			log.Printf("Admin: failed to count leads: %v", err)
		} else {
			stats["leads"] = counts
		}
	}

	if h.sessions != nil {
		stats["sessions"] = h.sessions()
	}

	c.JSON(http.StatusOK, stats)
}

// GetRateLimitStats returns the lead form limiter state
func (h *AdminHandler) GetRateLimitStats(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.limiter.GetStats())
}

// GetFacets returns facet counts from the search index
func (h *AdminHandler) GetFacets(c *gin.Context) {
	if h.facets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
		return
	}

	fields := []string{"kind", "operacion_key", "region_key", "comuna_key"}
	if q := c.Query("fields"); q != "" {
		fields = fields[:0]
		for _, f := range strings.Split(q, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}

	facets, err := h.facets.GetFacets(fields)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"facets": facets})
}

// TriggerReindex starts a full reindex in the background
func (h *AdminHandler) TriggerReindex(c *gin.Context) {
	if h.jobs == nil || !h.reindex {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
		return
	}

	go func() {
		log.Println("Admin: Manual reindex triggered")
		if err := h.jobs.RunNow(scheduler.JobReindex); err != nil {
			log.Printf("Admin: Manual reindex failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Reindex started",
		"status":  "running",
	})
}

// RefreshUF forces a UF fetch, bypassing the cache TTL
func (h *AdminHandler) RefreshUF(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not configured"})
		return
	}
	if err := h.jobs.RunNow(scheduler.JobUFRefresh); err != nil {
		log.Printf("Admin: UF refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	var uf *float64
	if h.rates != nil {
		uf = currency.Pointer(h.rates.Rate(c.Request.Context()))
	}
	c.JSON(http.StatusOK, gin.H{"uf": uf})
}
