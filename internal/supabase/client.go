// Package supabase reads listings from and writes leads to a Supabase
// project through its PostgREST interface.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"
)

// ErrNotConfigured is returned when no project URL or key was given.
var ErrNotConfigured = errors.New("supabase: url or key not configured")

type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
	// Tables overrides the resource name per listing kind
	Tables     map[models.ListingKind]string
	LeadsTable string
}

type Client struct {
	url        string
	client     *http.Client
	tables     map[models.ListingKind]string
	leadsTable string
}

// headerTransport adds the project key to every request.
type headerTransport struct {
	next   http.RoundTripper
	header http.Header
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, vs := range t.header {
		for _, v := range vs {
			r.Header.Set(k, v)
		}
	}
	return t.next.RoundTrip(r)
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.ServiceKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LeadsTable == "" {
		cfg.LeadsTable = "leads"
	}

	header := http.Header{}
	header.Set("apikey", cfg.ServiceKey)
	header.Set("Authorization", "Bearer "+cfg.ServiceKey)

	return &Client{
		url: strings.TrimRight(cfg.URL, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &headerTransport{next: http.DefaultTransport, header: header},
		},
		tables:     cfg.Tables,
		leadsTable: cfg.LeadsTable,
	}, nil
}

func (c *Client) table(kind models.ListingKind) string {
	if t, ok := c.tables[kind]; ok && t != "" {
		return t
	}
	return kind.Table()
}

// Query implements listing.Source.
func (c *Client) Query(ctx context.Context, q listing.Query) ([]models.Listing, error) {
	var rows []models.Listing
	if err := c.get(ctx, c.table(q.Kind), QueryParams(q), &rows); err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Kind = q.Kind
	}
	return rows, nil
}

// Get implements listing.Source.
func (c *Client) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", "eq."+id)
	params.Set("limit", "1")

	var rows []models.Listing
	if err := c.get(ctx, c.table(kind), params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, listing.ErrNotFound
	}
	rows[0].Kind = kind
	return &rows[0], nil
}

// InsertLead stores a contact or referral submission.
func (c *Client) InsertLead(ctx context.Context, lead *models.Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.leadsTable, nil), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// CountLeads returns how many leads of each kind are stored.
func (c *Client) CountLeads(ctx context.Context) (map[models.LeadKind]int64, error) {
	counts := make(map[models.LeadKind]int64)
	for _, kind := range []models.LeadKind{models.LeadContact, models.LeadReferral} {
		params := url.Values{}
		params.Set("select", "id")
		params.Set("kind", "eq."+string(kind))

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint(c.leadsTable, params), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Prefer", "count=exact")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return nil, err
		}

		n, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, nil
}

func (c *Client) endpoint(resource string, params url.Values) string {
	u := c.url + "/rest/v1/" + resource
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(resource, params), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("supabase error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// parseContentRange reads the total from "0-24/3573" or "*/0".
func parseContentRange(v string) (int64, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("supabase: malformed Content-Range %q", v)
	}
	return strconv.ParseInt(v[i+1:], 10, 64)
}
