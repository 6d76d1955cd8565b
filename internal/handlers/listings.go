package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"brokerage-portal/internal/currency"
	"brokerage-portal/internal/filter"
	"brokerage-portal/internal/geo"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/search"

	"github.com/gin-gonic/gin"
)

// FullTextSearcher runs free-text queries over the listing index.
type FullTextSearcher interface {
	Search(query string, kind models.ListingKind, limit int64) ([]models.Listing, error)
}

// ListingHandler serves the public listing endpoints.
type ListingHandler struct {
	fetcher *listing.Fetcher
	rates   listing.RateSource
	search  FullTextSearcher
	timeout time.Duration
}

// NewListingHandler creates the handler. search may be nil.
func NewListingHandler(fetcher *listing.Fetcher, rates listing.RateSource, search FullTextSearcher, timeout time.Duration) *ListingHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ListingHandler{fetcher: fetcher, rates: rates, search: search, timeout: timeout}
}

// NewSearchBackend adapts an optional Meilisearch client. A nil client
// yields a nil interface so the handler can tell search is unavailable.
func NewSearchBackend(client *search.SearchClient) FullTextSearcher {
	if client == nil {
		return nil
	}
	return client
}

// List returns the listings of kind matching the query-string criteria.
// A failed fetch answers with an empty list.
func (h *ListingHandler) List(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := filter.ParseCriteria(c.Request.URL.Query())
		mode := filter.ParseSortMode(c.Query(filter.ParamSort))

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		out, res := h.fetcher.Search(ctx, criteria, kind, mode)
		if !res.OK() {
			log.Printf("[Listings] %s query failed: %v", kind.Table(), res.Err)
		}

		c.JSON(http.StatusOK, gin.H{"data": out})
	}
}

// Get returns one listing by id.
func (h *ListingHandler) Get(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		l, err := h.fetcher.Get(ctx, kind, id)
		if err != nil {
			if !errors.Is(err, listing.ErrNotFound) {
				log.Printf("[Listings] get %s/%s failed: %v", kind.Table(), id, err)
			}
			c.JSON(http.StatusNotFound, gin.H{"error": "Publicación no encontrada"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": l})
	}
}

// UF returns the current UF value, null when it could not be obtained.
func (h *ListingHandler) UF(c *gin.Context) {
	if h.rates == nil {
		c.JSON(http.StatusOK, gin.H{"uf": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uf": currency.Pointer(h.rates.Rate(c.Request.Context()))})
}

// Regions returns the region/comuna/barrio tree for the cascading selects.
func (h *ListingHandler) Regions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": geo.Regions()})
}

// Search runs a free-text query.
func (h *ListingHandler) Search(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Búsqueda no disponible"})
		return
	}

	query := c.Query("q")
	kind := models.ListingKind(c.Query("kind"))
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	results, err := h.search.Search(query, kind, limit)
	if err != nil {
		log.Printf("[Search] query %q failed: %v", query, err)
		c.JSON(http.StatusOK, gin.H{"data": []models.Listing{}, "query": query})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  results,
		"query": query,
		"count": len(results),
	})
}
