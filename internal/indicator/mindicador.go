package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMindicadorURL serves the UF series as JSON.
const DefaultMindicadorURL = "https://mindicador.cl/api/uf"

// Mindicador reads the UF value from the mindicador.cl JSON API.
type Mindicador struct {
	url    string
	client *http.Client
}

func NewMindicador(url string, timeout time.Duration) *Mindicador {
	if url == "" {
		url = DefaultMindicadorURL
	}
	return &Mindicador{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type mindicadorResponse struct {
	Codigo string `json:"codigo"`
	Serie  []struct {
		Fecha time.Time `json:"fecha"`
		Valor float64   `json:"valor"`
	} `json:"serie"`
}

func (m *Mindicador) Name() string { return "mindicador" }

// FetchUF returns the most recent value of the series.
func (m *Mindicador) FetchUF(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, &StatusError{Provider: m.Name(), Code: resp.StatusCode}
	}

	var body mindicadorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode mindicador response: %w", err)
	}

	var latest time.Time
	value := 0.0
	for _, point := range body.Serie {
		if point.Valor > 0 && (value == 0 || point.Fecha.After(latest)) {
			latest = point.Fecha
			value = point.Valor
		}
	}
	if value <= 0 {
		return 0, ErrNoValue
	}
	return value, nil
}
