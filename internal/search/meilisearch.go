package search

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"brokerage-portal/internal/geo"
	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
	"brokerage-portal/internal/textnorm"

	"github.com/meilisearch/meilisearch-go"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "listings"
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// document is what gets stored in the index: the listing plus normalized
// keys the filter expressions run against.
type document struct {
	models.Listing
	DocID        string `json:"doc_id"`
	OperacionKey string `json:"operacion_key"`
	ComunaKey    string `json:"comuna_key"`
	RegionKey    string `json:"region_key,omitempty"`
	CreatedTS    int64  `json:"created_ts"`
}

func newDocument(kind models.ListingKind, l models.Listing) document {
	l.Kind = kind
	d := document{
		Listing:      l,
		DocID:        docID(kind, l.ID),
		OperacionKey: textnorm.Normalize(l.Operacion),
		ComunaKey:    textnorm.Normalize(geo.CanonicalComuna(l.Comuna, l.Barrio)),
		CreatedTS:    l.CreatedAt.Unix(),
	}
	if r, ok := geo.InferRegion(l.Comuna, l.Barrio); ok {
		d.RegionKey = r.Slug
	}
	return d
}

// docID keeps ids of both kinds apart in one index. Meilisearch ids only
// allow alphanumerics, '-' and '_', so the listing id is hex encoded.
func docID(kind models.ListingKind, id string) string {
	return string(kind) + "_" + hex.EncodeToString([]byte(id))
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "doc_id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "index_already_exists") {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"titulo",
		"tipo",
		"comuna",
		"barrio",
		"direccion",
		"descripcion",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"id",
		"kind",
		"operacion_key",
		"comuna_key",
		"region_key",
		"precio_uf",
		"dormitorios",
		"banos",
		"estacionamientos",
		"m2_construidos",
		"m2_terreno",
		"destacado",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"precio_uf",
		"created_ts",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexListings indexes listings of one kind
func (s *SearchClient) IndexListings(kind models.ListingKind, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	docs := make([]document, len(listings))
	for i, l := range listings {
		docs[i] = newDocument(kind, l)
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

// Reindex copies every listing from source into the index.
func (s *SearchClient) Reindex(ctx context.Context, source listing.Source) (int, error) {
	total := 0
	for _, kind := range []models.ListingKind{models.KindProperty, models.KindProject} {
		listings, err := source.Query(ctx, listing.Query{Kind: kind})
		if err != nil {
			return total, fmt.Errorf("load %s: %w", kind.Table(), err)
		}
		if err := s.IndexListings(kind, listings); err != nil {
			return total, fmt.Errorf("index %s: %w", kind.Table(), err)
		}
		total += len(listings)
	}
	log.Printf("[Search] reindexed %d listings into %s", total, s.index)
	return total, nil
}

// SearchRequest represents advanced search parameters
type SearchRequest struct {
	Query  string
	Limit  int64
	Offset int64
	Filter []string
	Sort   []string
	Facets []string
}

// SearchResult represents search results with facets
type SearchResult struct {
	Hits           []models.Listing
	TotalHits      int64
	Facets         map[string]interface{}
	ProcessingTime int64
}

// Search runs a full-text query, optionally limited to one kind.
func (s *SearchClient) Search(query string, kind models.ListingKind, limit int64) ([]models.Listing, error) {
	req := SearchRequest{Query: query, Limit: limit}
	if kind.Valid() {
		req.Filter = []string{"kind = " + quote(string(kind))}
	}
	result, err := s.AdvancedSearch(req)
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// AdvancedSearch performs advanced search with facets and filters
func (s *SearchClient) AdvancedSearch(req SearchRequest) (*SearchResult, error) {
	if req.Limit == 0 {
		req.Limit = 20
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:  req.Limit,
		Offset: req.Offset,
	}

	if len(req.Filter) > 0 {
		searchReq.Filter = strings.Join(req.Filter, " AND ")
	}
	if len(req.Sort) > 0 {
		searchReq.Sort = req.Sort
	}
	if len(req.Facets) > 0 {
		searchReq.Facets = req.Facets
	}

	searchRes, err := s.client.Index(s.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, err
	}

	listings := make([]models.Listing, 0, len(searchRes.Hits))
	for _, hit := range searchRes.Hits {
		l, err := listingFromHit(hit)
		if err != nil {
			log.Printf("[Search] skipping malformed hit: %v", err)
			continue
		}
		listings = append(listings, l)
	}

	var facets map[string]interface{}
	if searchRes.FacetDistribution != nil {
		facets, _ = searchRes.FacetDistribution.(map[string]interface{})
	}

	return &SearchResult{
		Hits:           listings,
		TotalHits:      searchRes.EstimatedTotalHits,
		Facets:         facets,
		ProcessingTime: searchRes.ProcessingTimeMs,
	}, nil
}

// listingFromHit converts a hit through JSON so cover aliases and nullable
// numbers decode the same way as every other source.
func listingFromHit(hit interface{}) (models.Listing, error) {
	var l models.Listing
	data, err := json.Marshal(hit)
	if err != nil {
		return l, err
	}
	err = json.Unmarshal(data, &l)
	return l, err
}

// GetFacets retrieves facet distribution for specified fields
func (s *SearchClient) GetFacets(facets []string) (map[string]interface{}, error) {
	searchRes, err := s.client.Index(s.index).Search("", &meilisearch.SearchRequest{
		Limit:  0,
		Facets: facets,
	})
	if err != nil {
		return nil, err
	}

	if searchRes.FacetDistribution != nil {
		if facetMap, ok := searchRes.FacetDistribution.(map[string]interface{}); ok {
			return facetMap, nil
		}
	}
	return map[string]interface{}{}, nil
}
